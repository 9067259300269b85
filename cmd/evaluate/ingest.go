package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/hiring-evaluator/internal/metrics"
	"alfredoptarigan/hiring-evaluator/internal/services"
)

var (
	ingestDir    string
	chunkSize    int
	chunkOverlap int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk, embed and store rubric documents in Qdrant",
	Args:  cobra.NoArgs,
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestDir, "dir", "./reference_docs", "directory with rubric, role profile and interview guide documents")
	ingestCmd.Flags().IntVar(&chunkSize, "chunk-size", 1000, "maximum characters per chunk")
	ingestCmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 200, "characters carried over between chunks")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, zl, err := setup()
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	defer zl.Sync() //nolint:errcheck

	if !cfg.Qdrant.Enabled() {
		return fmt.Errorf("QDRANT_URL is required for ingestion")
	}

	ctx := cmd.Context()

	_, embedder, err := services.NewBackendFromConfig(ctx, cfg, zl, metrics.Nop{})
	if err != nil {
		return err
	}
	if embedder == nil {
		return fmt.Errorf("GEMINI_API_KEY is required to embed documents")
	}

	store, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, zl)
	if err != nil {
		return err
	}
	if err := store.InitCollection(ctx); err != nil {
		return err
	}

	entries, err := os.ReadDir(ingestDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", ingestDir, err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() {
			paths = append(paths, filepath.Join(ingestDir, entry.Name()))
		}
	}
	sort.Strings(paths)

	loader := services.NewDocumentLoader(cfg.Server.MaxFileSize)
	ingester := services.NewIngester(nil, services.NewTextChunker(chunkSize, chunkOverlap), embedder, store, zl)

	succeeded, failed := 0, 0
	for _, path := range paths {
		docType := services.DocTypeFor(path)

		doc, err := loader.LoadFile(path)
		if err != nil {
			zl.Warn("skipping document", zap.String("path", path), zap.Error(err))
			failed++
			continue
		}

		if _, err := ingester.Ingest(ctx, doc, docType); err != nil {
			zl.Warn("failed to ingest document", zap.String("path", path), zap.Error(err))
			failed++
			continue
		}
		succeeded++
	}

	zl.Info("ingestion finished", zap.Int("succeeded", succeeded), zap.Int("failed", failed))

	if failed > 0 {
		return fmt.Errorf("%d document(s) failed to ingest", failed)
	}
	return nil
}

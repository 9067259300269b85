package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/hiring-evaluator/internal/logger"
	"alfredoptarigan/hiring-evaluator/internal/models"
)

// PassageStore is the write side of the rubric collection.
type PassageStore interface {
	UpsertPassage(ctx context.Context, passage Passage, embedding []float32) error
	DeleteSource(ctx context.Context, source string) error
}

// Ingester loads reference documents into the rubric collection:
// extract, chunk, embed, upsert.
type Ingester struct {
	extractor TextExtractor
	chunker   TextChunker
	embedder  Embedder
	store     PassageStore
	logger    *zap.Logger
}

func NewIngester(extractor TextExtractor, chunker TextChunker, embedder Embedder, store PassageStore, log *zap.Logger) *Ingester {
	if extractor == nil {
		extractor = NewTextExtractor()
	}
	if chunker == nil {
		chunker = NewTextChunker(defaultChunkSize, defaultChunkOverlap)
	}
	return &Ingester{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		logger:    logger.OrNop(log),
	}
}

// Ingest replaces the stored chunks of doc and returns how many were stored.
// Chunks that fail to embed or store are logged and skipped; the document
// fails only when nothing was stored.
func (in *Ingester) Ingest(ctx context.Context, doc models.Document, docType string) (int, error) {
	log := in.logger.With(zap.String("document", doc.Filename), zap.String("doc_type", docType))

	text, err := in.extractor.Extract(doc)
	if err != nil {
		return 0, err
	}

	chunks := in.chunker.Chunk(text)
	log.Info("document chunked", zap.Int("characters", len(text)), zap.Int("chunks", len(chunks)))

	if err := in.store.DeleteSource(ctx, doc.Filename); err != nil {
		log.Warn("failed to remove previous chunks", zap.Error(err))
	}

	base := strings.TrimSuffix(doc.Filename, filepath.Ext(doc.Filename))
	stored := 0
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return stored, err
		}

		embedding, err := in.embedder.GenerateEmbedding(ctx, chunk)
		if err != nil {
			log.Warn("failed to embed chunk", zap.Int("chunk", i+1), zap.Error(err))
			continue
		}

		passage := Passage{
			ID:      fmt.Sprintf("%s_chunk_%d", base, i),
			Source:  doc.Filename,
			DocType: docType,
			Text:    chunk,
		}
		if err := in.store.UpsertPassage(ctx, passage, embedding); err != nil {
			log.Warn("failed to store chunk", zap.Int("chunk", i+1), zap.Error(err))
			continue
		}
		stored++
	}

	if stored == 0 && len(chunks) > 0 {
		return 0, fmt.Errorf("failed to store any chunk of %s", doc.Filename)
	}

	log.Info("document ingested", zap.Int("stored", stored))
	return stored, nil
}

// DocTypeFor picks the collection type from a reference file name.
func DocTypeFor(filename string) string {
	name := strings.ToLower(filepath.Base(filename))
	switch {
	case strings.Contains(name, "rubric"), strings.Contains(name, "scoring"):
		return DocTypeScoringRubric
	case strings.Contains(name, "interview"), strings.Contains(name, "guide"), strings.Contains(name, "question"):
		return DocTypeInterviewGuide
	default:
		return DocTypeRoleProfile
	}
}

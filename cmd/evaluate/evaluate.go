package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/hiring-evaluator/internal/metrics"
	"alfredoptarigan/hiring-evaluator/internal/models"
	"alfredoptarigan/hiring-evaluator/internal/services"
)

var (
	jobFile string
	pretty  bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate --job job.txt resume1.pdf [resume2.docx ...]",
	Short: "Evaluate local resume files against a job description",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&jobFile, "job", "", "file holding the job description (required)")
	evaluateCmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	_ = evaluateCmd.MarkFlagRequired("job")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, zl, err := setup()
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	defer zl.Sync() //nolint:errcheck

	job, err := os.ReadFile(jobFile)
	if err != nil {
		return fmt.Errorf("reading job description: %w", err)
	}

	loader := services.NewDocumentLoader(cfg.Server.MaxFileSize)
	resumes := make([]models.Document, 0, len(args))
	for _, path := range args {
		doc, err := loader.LoadFile(path)
		if err != nil {
			zl.Warn("failed to load resume", zap.String("path", path), zap.Error(err))
			doc = services.UnreadableDocument(path, err)
		}
		resumes = append(resumes, doc)
	}

	ctx := cmd.Context()
	pipeline, err := services.NewPipelineFromConfig(ctx, cfg, zl, metrics.Nop{})
	if err != nil {
		return err
	}

	resp, err := pipeline.Run(ctx, services.AnalyzeRequest{
		JobDescription: strings.TrimSpace(string(job)),
		Resumes:        resumes,
	})
	if err != nil {
		var analysisErr *services.AnalysisError
		if errors.As(err, &analysisErr) {
			zl.Error("job description rejected", zap.Error(err))
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/hiring-evaluator/internal/config"
	"alfredoptarigan/hiring-evaluator/internal/logger"
	"alfredoptarigan/hiring-evaluator/internal/metrics"
)

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
	ProviderStub   = "stub"
)

// NewBackendFromConfig builds the configured backend wrapped with retries.
// The embedder is non-nil whenever Gemini credentials are available, even
// when another provider generates text.
func NewBackendFromConfig(ctx context.Context, cfg *config.Config, log *zap.Logger, recorder metrics.Recorder) (Backend, Embedder, error) {
	var (
		inner    Backend
		embedder Embedder
	)

	switch provider := strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)); provider {
	case ProviderGemini, "":
		gemini, err := NewGeminiBackend(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, cfg.LLM.Temperature)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize gemini backend: %w", err)
		}
		inner, embedder = gemini, gemini
	case ProviderGroq:
		groq, err := NewGroqBackend(cfg.Groq.APIKey, cfg.Groq.Model, cfg.Groq.BaseURL, cfg.LLM.Temperature)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize groq backend: %w", err)
		}
		inner = groq
		if strings.TrimSpace(cfg.Gemini.APIKey) != "" {
			gemini, err := NewGeminiBackend(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, cfg.LLM.Temperature)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to initialize gemini embedder: %w", err)
			}
			embedder = gemini
		}
	case ProviderStub:
		inner = NewStubBackend()
	default:
		return nil, nil, fmt.Errorf("unknown LLM provider %q", provider)
	}

	policy := DefaultRetryPolicy()
	policy.MaxRetries = cfg.LLM.MaxRetries
	if cfg.LLM.InitialDelay > 0 {
		policy.InitialDelay = cfg.LLM.InitialDelay
	}
	if cfg.LLM.CallTimeout > 0 {
		policy.CallTimeout = cfg.LLM.CallTimeout
	}
	if cfg.Log.MaxLength > 0 {
		policy.LogPreview = cfg.Log.MaxLength
	}

	logger.WithCommonFields(log, inner.Provider(), inner.Model()).Info("language model backend ready",
		zap.Int("max_retries", policy.MaxRetries),
		zap.Duration("call_timeout", policy.CallTimeout),
	)

	return NewRetryingBackend(inner, policy, log, recorder), embedder, nil
}

// NewReferenceStoreFromConfig connects the reference collection. It returns nil
// when Qdrant is not configured or nothing can embed queries.
func NewReferenceStoreFromConfig(ctx context.Context, cfg *config.Config, embedder Embedder, log *zap.Logger) (VectorSearcher, error) {
	log = logger.OrNop(log)

	if !cfg.Qdrant.Enabled() {
		log.Info("reference retrieval disabled: QDRANT_URL not set")
		return nil, nil
	}
	if embedder == nil {
		log.Warn("reference retrieval disabled: no embedding backend configured")
		return nil, nil
	}

	store, err := NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, log)
	if err != nil {
		return nil, err
	}
	if err := store.InitCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// NewPipelineFromConfig assembles every stage around one shared backend.
func NewPipelineFromConfig(ctx context.Context, cfg *config.Config, log *zap.Logger, recorder metrics.Recorder) (*Pipeline, error) {
	backend, embedder, err := NewBackendFromConfig(ctx, cfg, log, recorder)
	if err != nil {
		return nil, err
	}

	store, err := NewReferenceStoreFromConfig(ctx, cfg, embedder, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rubric retrieval: %w", err)
	}

	var rubric, guide RubricRetriever
	if store != nil {
		rubric = NewRubricRetriever(store, embedder, 0)
		guide = NewRubricRetriever(store, embedder, 0, DocTypeInterviewGuide)
	}

	prompts := NewPromptBuilder()

	return NewPipeline(PipelineDeps{
		Extractor: NewTextExtractor(),
		Analyzer:  NewJobAnalyzer(backend, prompts, log),
		Parser:    NewResumeParser(backend, prompts, log, time.Now),
		Evaluator: NewEvaluator(backend, prompts, rubric, log),
		Questions: NewQuestionGenerator(backend, prompts, guide, log),
		Logger:    log,
		Recorder:  recorder,
	}, PipelineOptions{
		MaxBatchSize:  cfg.Pipeline.MaxBatchSize,
		RequestBudget: cfg.Pipeline.RequestBudget,
		SortByScore:   cfg.Pipeline.SortByScore,
	}), nil
}

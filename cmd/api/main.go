package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"alfredoptarigan/hiring-evaluator/internal/config"
	"alfredoptarigan/hiring-evaluator/internal/handlers"
	"alfredoptarigan/hiring-evaluator/internal/logger"
	"alfredoptarigan/hiring-evaluator/internal/metrics"
	"alfredoptarigan/hiring-evaluator/internal/services"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("creating a logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	zl.Info("config loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("provider", cfg.LLM.Provider),
		zap.Int("max_batch_size", cfg.Pipeline.MaxBatchSize),
		zap.Duration("request_budget", cfg.Pipeline.RequestBudget),
	)

	recorder := metrics.New()

	ctx := context.Background()
	pipeline, err := services.NewPipelineFromConfig(ctx, cfg, zl, recorder)
	if err != nil {
		zl.Fatal("failed to initialize pipeline", zap.Error(err))
	}

	model := cfg.Gemini.Model
	if cfg.LLM.Provider == services.ProviderGroq {
		model = cfg.Groq.Model
	}

	analyzeHandler := handlers.NewAnalyzeHandler(pipeline, services.NewDocumentLoader(cfg.Server.MaxFileSize), zl)
	healthHandler := handlers.NewHealthHandler(cfg.LLM.Provider, model)

	app := handlers.NewApp(analyzeHandler, healthHandler, handlers.AppOptions{
		BodyLimit:      int(cfg.Server.MaxFileSize) * (cfg.Pipeline.MaxBatchSize + 1),
		RequestTimeout: cfg.Pipeline.RequestBudget + cfg.LLM.CallTimeout,
		Metrics:        recorder.Handler(),
		Logger:         zl,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zl.Info("shutting down server")
		if err := app.Shutdown(); err != nil {
			zl.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zl.Info("server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zl.Fatal("failed to start server", zap.Error(err))
	}
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

type AppOptions struct {
	BodyLimit      int
	RequestTimeout time.Duration
	Metrics        http.Handler
	Logger         *zap.Logger
}

// NewApp wires middleware and routes onto a fresh Fiber app.
func NewApp(analyze *AnalyzeHandler, health *HealthHandler, opts AppOptions) *fiber.App {
	cfg := fiber.Config{
		AppName:      "Hiring Evaluator API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: opts.RequestTimeout,
		BodyLimit:    opts.BodyLimit,
		ErrorHandler: ErrorHandler,
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 150 * time.Second
	}

	app := fiber.New(cfg)

	app.Use(recover.New())
	app.Use(RequestLogger(opts.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	api := app.Group("/api/v1")
	api.Get("/health", health.HandleHealth)
	api.Post("/analyze", analyze.HandleAnalyze)

	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics))
	}

	app.Get("/", health.HandleIndex)

	return app
}

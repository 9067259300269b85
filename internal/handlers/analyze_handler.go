package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/hiring-evaluator/internal/logger"
	"alfredoptarigan/hiring-evaluator/internal/models"
	"alfredoptarigan/hiring-evaluator/internal/services"
)

const (
	formJobDescription = "job_description"
	formResumes        = "resumes"
)

// BatchRunner is the part of the pipeline the handler needs.
type BatchRunner interface {
	Run(ctx context.Context, req services.AnalyzeRequest) (*models.AnalyzeResponse, error)
}

type AnalyzeHandler struct {
	runner BatchRunner
	loader services.DocumentLoader
	logger *zap.Logger
}

func NewAnalyzeHandler(runner BatchRunner, loader services.DocumentLoader, log *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		runner: runner,
		loader: loader,
		logger: logger.OrNop(log),
	}
}

// HandleAnalyze handles POST /analyze
func (h *AnalyzeHandler) HandleAnalyze(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			State: models.RequestFailed,
			Error: "failed to parse multipart form",
		})
	}

	jobDescription, err := readJobDescription(form)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			State: models.RequestFailed,
			Error: err.Error(),
		})
	}

	files := form.File[formResumes]
	resumes := make([]models.Document, 0, len(files))
	for _, file := range files {
		doc, err := h.loader.LoadUpload(file)
		if err != nil {
			h.logger.Warn("failed to load resume", zap.String("filename", file.Filename), zap.Error(err))
			doc = services.UnreadableDocument(file.Filename, err)
		}
		resumes = append(resumes, doc)
	}

	resp, err := h.runner.Run(c.UserContext(), services.AnalyzeRequest{
		JobDescription: jobDescription,
		Resumes:        resumes,
	})
	if err != nil {
		status, kind := statusFor(err)
		errResp := models.ErrorResponse{
			State: models.RequestFailed,
			Error: err.Error(),
			Kind:  kind,
		}
		if resp != nil {
			errResp.RequestID = resp.RequestID
		}

		if status == fiber.StatusInternalServerError {
			h.logger.Error("analyze request failed", zap.Error(err))
		}
		return c.Status(status).JSON(errResp)
	}

	return c.JSON(resp)
}

func statusFor(err error) (int, models.ErrorKind) {
	var analysisErr *services.AnalysisError

	switch {
	case errors.Is(err, services.ErrEmptyBatch), errors.Is(err, services.ErrBatchTooLarge):
		return fiber.StatusBadRequest, ""
	case errors.As(err, &analysisErr):
		return fiber.StatusBadRequest, models.KindAnalysis
	default:
		return fiber.StatusInternalServerError, ""
	}
}

// readJobDescription accepts the job description as a form value or as an
// uploaded text file under the same key.
func readJobDescription(form *multipart.Form) (string, error) {
	if values := form.Value[formJobDescription]; len(values) > 0 {
		if text := strings.TrimSpace(values[0]); text != "" {
			return text, nil
		}
	}

	if files := form.File[formJobDescription]; len(files) > 0 {
		f, err := files[0].Open()
		if err != nil {
			return "", errors.New("failed to open job_description file")
		}
		defer f.Close()

		content, err := io.ReadAll(f)
		if err != nil {
			return "", errors.New("failed to read job_description file")
		}
		if text := strings.TrimSpace(string(content)); text != "" {
			return text, nil
		}
	}

	return "", errors.New("job_description is required")
}

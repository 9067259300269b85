package services

import (
	"errors"
	"fmt"

	"alfredoptarigan/hiring-evaluator/internal/models"
)

var (
	ErrEmptyBatch      = errors.New("at least one resume is required")
	ErrBatchTooLarge   = errors.New("too many resumes in one request")
	ErrMalformedOutput = errors.New("malformed model output")
)

// AnalysisError means the job description cannot be used. It aborts the whole request.
type AnalysisError struct {
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job analysis failed: %s: %v", e.Reason, e.Err)
	}
	return "job analysis failed: " + e.Reason
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// ParseError means a resume carries no extractable structure.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "resume parse failed: " + e.Reason }

// ExtractionError means the uploaded document could not be turned into text.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// GenerationError means a backend call did not produce usable output after retries.
// Malformed is set when the backend answered but never matched the schema.
type GenerationError struct {
	Stage     string
	Attempts  int
	Malformed bool
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed after %d attempt(s): %v", e.Stage, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// TimeoutError marks candidates that were not finished inside the request budget.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	if e.Err == nil {
		return "request budget exceeded before the candidate was evaluated"
	}
	return fmt.Sprintf("request budget exceeded: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IsMalformed reports whether err is a generation failure caused only by bad output.
func IsMalformed(err error) bool {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Malformed
	}
	return errors.Is(err, ErrMalformedOutput)
}

// classifyError maps a stage failure onto the error taxonomy. Budget expiry is
// detected by the pipeline from the request context, not from err, because a
// per-call timeout inside the budget is a generation failure.
func classifyError(err error) models.ErrorKind {
	var (
		parseErr   *ParseError
		extractErr *ExtractionError
		timeoutErr *TimeoutError
		genErr     *GenerationError
		analysis   *AnalysisError
	)

	switch {
	case errors.As(err, &timeoutErr):
		return models.KindTimeout
	case errors.As(err, &extractErr):
		return models.KindExtraction
	case errors.As(err, &parseErr):
		return models.KindParse
	case errors.As(err, &analysis):
		return models.KindAnalysis
	case errors.As(err, &genErr):
		return models.KindGeneration
	default:
		return models.KindGeneration
	}
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"alfredoptarigan/hiring-evaluator/internal/logger"
	"alfredoptarigan/hiring-evaluator/internal/metrics"
)

// Backend is the narrow text-generation surface every pipeline stage uses.
// Implementations must return ErrMalformedOutput (wrapped) when the answer
// does not match the schema so callers can re-query.
type Backend interface {
	Complete(ctx context.Context, prompt Prompt, schema Schema) (*Completion, error)
	Provider() string
	Model() string
}

type Prompt struct {
	System string
	User   string
}

type FieldType string

const (
	FieldString      FieldType = "string"
	FieldNumber      FieldType = "number"
	FieldBool        FieldType = "bool"
	FieldObject      FieldType = "object"
	FieldArray       FieldType = "array"
	FieldStringArray FieldType = "string_array"
)

type SchemaField struct {
	Path     string
	Type     FieldType
	Required bool
}

// Schema names a stage's expected answer and the fields that must type-check.
type Schema struct {
	Name   string
	Fields []SchemaField
}

// Validate checks a JSON document against the schema.
func (s Schema) Validate(doc string) error {
	if !gjson.Valid(doc) {
		return fmt.Errorf("%w: %s answer is not valid JSON", ErrMalformedOutput, s.Name)
	}

	root := gjson.Parse(doc)
	if !root.IsObject() {
		return fmt.Errorf("%w: %s answer is not a JSON object", ErrMalformedOutput, s.Name)
	}

	for _, field := range s.Fields {
		value := root.Get(field.Path)
		if !value.Exists() || value.Type == gjson.Null {
			if field.Required {
				return fmt.Errorf("%w: %s answer is missing %q", ErrMalformedOutput, s.Name, field.Path)
			}
			continue
		}

		if !matchesType(value, field.Type) {
			return fmt.Errorf("%w: %s field %q is not a %s", ErrMalformedOutput, s.Name, field.Path, field.Type)
		}
	}

	return nil
}

func matchesType(value gjson.Result, t FieldType) bool {
	switch t {
	case FieldString:
		return value.Type == gjson.String
	case FieldNumber:
		return value.Type == gjson.Number
	case FieldBool:
		return value.Type == gjson.True || value.Type == gjson.False
	case FieldObject:
		return value.IsObject()
	case FieldArray:
		return value.IsArray()
	case FieldStringArray:
		if !value.IsArray() {
			return false
		}
		for _, item := range value.Array() {
			if item.Type != gjson.String {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Completion is a schema-valid answer.
type Completion struct {
	Raw  string
	JSON string
}

// Decode unmarshals the JSON answer into target.
func (c *Completion) Decode(target interface{}) error {
	if err := json.Unmarshal([]byte(c.JSON), target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// Get reads a single value by gjson path.
func (c *Completion) Get(path string) gjson.Result {
	return gjson.Get(c.JSON, path)
}

// NewCompletion extracts the JSON document from a raw model answer and validates it.
func NewCompletion(raw string, schema Schema) (*Completion, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty %s answer", ErrMalformedOutput, schema.Name)
	}

	doc := extractJSON(raw)
	if err := schema.Validate(doc); err != nil {
		return nil, err
	}

	return &Completion{Raw: raw, JSON: doc}, nil
}

// extractJSON tries to extract JSON from text that might contain markdown or other formatting
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	endObj := strings.LastIndex(text, "}")

	if startObj != -1 && endObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	}

	return strings.TrimSpace(text)
}

// RetryPolicy bounds how long and how often a stage waits on the backend.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	CallTimeout  time.Duration

	// LogPreview is how many characters of the prompt debug logs carry.
	LogPreview int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   2,
		InitialDelay: time.Second,
		CallTimeout:  30 * time.Second,
		LogPreview:   200,
	}
}

type retryingBackend struct {
	inner    Backend
	policy   RetryPolicy
	logger   *zap.Logger
	recorder metrics.Recorder
	wait     func(ctx context.Context, d time.Duration) error
}

// NewRetryingBackend wraps a backend with per-call timeouts and exponential
// backoff. Malformed answers are re-queried within the same retry budget.
func NewRetryingBackend(inner Backend, policy RetryPolicy, log *zap.Logger, recorder metrics.Recorder) Backend {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &retryingBackend{
		inner:    inner,
		policy:   policy,
		logger:   logger.WithCommonFields(log, inner.Provider(), inner.Model()),
		recorder: recorder,
		wait:     sleepContext,
	}
}

func (r *retryingBackend) Provider() string { return r.inner.Provider() }
func (r *retryingBackend) Model() string    { return r.inner.Model() }

// Complete implements Backend.
func (r *retryingBackend) Complete(ctx context.Context, prompt Prompt, schema Schema) (*Completion, error) {
	maxAttempts := r.policy.MaxRetries + 1

	var lastErr error
	malformed := false

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		completion, err := r.attempt(ctx, prompt, schema)
		if err == nil {
			r.recorder.ObserveBackendAttempt(r.Provider(), schema.Name, "ok")
			return completion, nil
		}

		lastErr = err
		malformed = errors.Is(err, ErrMalformedOutput)

		outcome := "error"
		if malformed {
			outcome = "malformed"
		}
		r.recorder.ObserveBackendAttempt(r.Provider(), schema.Name, outcome)

		if ctx.Err() != nil {
			return nil, &GenerationError{Stage: schema.Name, Attempts: attempt, Err: ctx.Err()}
		}

		if attempt == maxAttempts {
			break
		}

		delay := r.policy.InitialDelay * time.Duration(1<<(attempt-1))
		r.logger.Warn("backend attempt failed, retrying",
			zap.String("schema", schema.Name),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Bool("malformed", malformed),
			zap.Error(err),
		)

		if err := r.wait(ctx, delay); err != nil {
			return nil, &GenerationError{Stage: schema.Name, Attempts: attempt, Err: err}
		}
	}

	return nil, &GenerationError{
		Stage:     schema.Name,
		Attempts:  maxAttempts,
		Malformed: malformed,
		Err:       lastErr,
	}
}

func (r *retryingBackend) attempt(ctx context.Context, prompt Prompt, schema Schema) (*Completion, error) {
	if r.policy.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.policy.CallTimeout)
		defer cancel()
	}

	r.logger.Debug("backend request",
		zap.String("schema", schema.Name),
		zap.Int("prompt_length", len(prompt.User)),
		zap.String("prompt", logger.TruncateForLog(prompt.User, r.policy.LogPreview)),
	)

	return r.inner.Complete(ctx, prompt, schema)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package services

import (
	"context"
	"strings"
	"sync"
)

// StubCall records one request made against a StubBackend.
type StubCall struct {
	Schema string
	Prompt Prompt
}

// StubBackend is a deterministic Backend for tests and offline runs. Queued
// answers are served per schema in order; once a queue is empty the stub
// answers with the smallest document that satisfies the schema.
type StubBackend struct {
	mu        sync.Mutex
	responses map[string][]string
	errs      map[string]error
	calls     []StubCall

	// FailWhen, when set, can fail selected requests, e.g. one candidate only.
	FailWhen func(prompt Prompt, schema Schema) error
}

func NewStubBackend() *StubBackend {
	return &StubBackend{
		responses: make(map[string][]string),
		errs:      make(map[string]error),
	}
}

func (s *StubBackend) Provider() string { return "stub" }
func (s *StubBackend) Model() string    { return "stub-deterministic" }

// Enqueue adds a raw answer for the named schema.
func (s *StubBackend) Enqueue(schema, raw string) *StubBackend {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[schema] = append(s.responses[schema], raw)
	return s
}

// FailWith makes every request for the schema return err.
func (s *StubBackend) FailWith(schema string, err error) *StubBackend {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[schema] = err
	return s
}

// Calls returns a copy of the recorded requests.
func (s *StubBackend) Calls() []StubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StubCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsFor counts the recorded requests for one schema.
func (s *StubBackend) CallsFor(schema string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Schema == schema {
			n++
		}
	}
	return n
}

// Complete implements Backend.
func (s *StubBackend) Complete(ctx context.Context, prompt Prompt, schema Schema) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.calls = append(s.calls, StubCall{Schema: schema.Name, Prompt: prompt})
	failWhen := s.FailWhen
	err := s.errs[schema.Name]

	raw := ""
	if queue := s.responses[schema.Name]; len(queue) > 0 {
		raw = queue[0]
		s.responses[schema.Name] = queue[1:]
	} else {
		raw = minimalDocument(schema)
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if failWhen != nil {
		if err := failWhen(prompt, schema); err != nil {
			return nil, err
		}
	}

	return NewCompletion(raw, schema)
}

func minimalDocument(schema Schema) string {
	var parts []string
	for _, field := range schema.Fields {
		if !field.Required || strings.Contains(field.Path, ".") {
			continue
		}

		value := `""`
		switch field.Type {
		case FieldNumber:
			value = "0"
		case FieldBool:
			value = "false"
		case FieldObject:
			value = "{}"
		case FieldArray, FieldStringArray:
			value = "[]"
		}
		parts = append(parts, `"`+field.Path+`":`+value)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

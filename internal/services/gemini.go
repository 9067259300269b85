package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel      = "gemini-2.5-flash"
	defaultGeminiEmbedModel = "text-embedding-004"

	// roughly the embedding model's 10k token input limit
	maxEmbeddingRunes = 40000
)

// Embedder turns text into a vector for rubric retrieval.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type GeminiBackend struct {
	client      *genai.Client
	modelName   string
	embedModel  string
	temperature float32
}

func NewGeminiBackend(ctx context.Context, apiKey, model, embedModel string, temperature float32) (*GeminiBackend, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	if embedModel = strings.TrimSpace(embedModel); embedModel == "" {
		embedModel = defaultGeminiEmbedModel
	}

	return &GeminiBackend{
		client:      client,
		modelName:   model,
		embedModel:  embedModel,
		temperature: temperature,
	}, nil
}

func (g *GeminiBackend) Provider() string { return "gemini" }
func (g *GeminiBackend) Model() string    { return g.modelName }

// Complete implements Backend.
func (g *GeminiBackend) Complete(ctx context.Context, prompt Prompt, schema Schema) (*Completion, error) {
	temperature := g.temperature
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  4096,
		ResponseMIMEType: "application/json",
	}

	if system := strings.TrimSpace(prompt.System); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt.User), config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate text: %w", err)
	}

	if resp == nil {
		return nil, fmt.Errorf("%w: nil gemini response", ErrMalformedOutput)
	}

	return NewCompletion(resp.Text(), schema)
}

// GenerateEmbedding implements Embedder.
func (g *GeminiBackend) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(embeddingInput(text)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

func embeddingInput(text string) string {
	return truncateRunes(text, maxEmbeddingRunes)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultGroqModel   = "llama-3.3-70b-versatile"
	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
)

// GroqBackend talks to Groq through its OpenAI-compatible chat API.
type GroqBackend struct {
	client      *openai.Client
	modelName   string
	temperature float32
	maxTokens   int
}

func NewGroqBackend(apiKey, model, baseURL string, temperature float32) (*GroqBackend, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("groq api key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = defaultGroqBaseURL
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGroqModel
	}

	return &GroqBackend{
		client:      openai.NewClientWithConfig(cfg),
		modelName:   model,
		temperature: temperature,
		maxTokens:   2000,
	}, nil
}

func (g *GroqBackend) Provider() string { return "groq" }
func (g *GroqBackend) Model() string    { return g.modelName }

// Complete implements Backend.
func (g *GroqBackend) Complete(ctx context.Context, prompt Prompt, schema Schema) (*Completion, error) {
	var messages []openai.ChatCompletionMessage
	if system := strings.TrimSpace(prompt.System); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt.User,
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.modelName,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("groq chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: groq returned no choices", ErrMalformedOutput)
	}

	return NewCompletion(resp.Choices[0].Message.Content, schema)
}

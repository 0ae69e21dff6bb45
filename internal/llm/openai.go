package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ontobot/sparql-selfquery/internal/selfquery"
)

// OpenAICompatAdapter talks to any OpenAI Chat Completions-compatible
// endpoint. No OpenAI Go SDK is part of this codebase's dependency corpus
// either, so this is a direct net/http client, matching OllamaAdapter's
// approach.
type OpenAICompatAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewOpenAICompatAdapter(baseURL, apiKey string) *OpenAICompatAdapter {
	return &OpenAICompatAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

func (a *OpenAICompatAdapter) authHeader(req *http.Request) {
	key := a.apiKey
	if key == "" {
		key = "none"
	}
	req.Header.Set("Authorization", "Bearer "+key)
}

type openAIModelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (a *OpenAICompatAdapter) ListModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("llm.OpenAICompatAdapter.ListModels: %w", err)
	}
	a.authHeader(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm.OpenAICompatAdapter.ListModels: %w", err)
	}
	defer resp.Body.Close()

	var parsed openAIModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("llm.OpenAICompatAdapter.ListModels: %w", err)
	}

	out := make([]Model, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		out = append(out, Model{ID: m.ID, Name: m.ID})
	}
	return out, nil
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIChatRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIChatMessage   `json:"messages"`
	Stream         bool                  `json:"stream"`
	Temperature    *float64              `json:"temperature,omitempty"`
	MaxTokens      *int                  `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
		Delta   openAIChatMessage `json:"delta"`
	} `json:"choices"`
}

func toOpenAIMessages(messages []selfquery.Message) []openAIChatMessage {
	out := make([]openAIChatMessage, len(messages))
	for i, m := range messages {
		out[i] = openAIChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func (a *OpenAICompatAdapter) post(ctx context.Context, body openAIChatRequest) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm.OpenAICompatAdapter: marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("llm.OpenAICompatAdapter: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	a.authHeader(req)
	return a.client.Do(req)
}

func (a *OpenAICompatAdapter) ChatText(ctx context.Context, model string, messages []selfquery.Message) (string, error) {
	resp, err := a.post(ctx, openAIChatRequest{Model: model, Messages: toOpenAIMessages(messages)})
	if err != nil {
		return "", fmt.Errorf("llm.OpenAICompatAdapter.ChatText: %w", err)
	}
	defer resp.Body.Close()

	var parsed openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("llm.OpenAICompatAdapter.ChatText: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm.OpenAICompatAdapter.ChatText: empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (a *OpenAICompatAdapter) StreamText(ctx context.Context, model string, messages []selfquery.Message) (<-chan string, <-chan error) {
	chunks := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		req := openAIChatRequest{Model: model, Messages: toOpenAIMessages(messages), Stream: true}
		resp, err := a.post(ctx, req)
		if err != nil {
			errs <- fmt.Errorf("llm.OpenAICompatAdapter.StreamText: %w", err)
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				return
			}
			var chunk openAIChatResponse
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				select {
				case chunks <- content:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return chunks, errs
}

func (a *OpenAICompatAdapter) ChatJSON(ctx context.Context, model string, messages []selfquery.Message, temperature float64, maxTokens int) (string, error) {
	req := openAIChatRequest{
		Model:          model,
		Messages:       toOpenAIMessages(messages),
		Temperature:    &temperature,
		ResponseFormat: &openAIResponseFormat{Type: "json_object"},
	}
	if maxTokens >= 0 {
		req.MaxTokens = &maxTokens
	}

	resp, err := a.post(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm.OpenAICompatAdapter.ChatJSON: %w", err)
	}
	defer resp.Body.Close()

	var parsed openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("llm.OpenAICompatAdapter.ChatJSON: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm.OpenAICompatAdapter.ChatJSON: empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

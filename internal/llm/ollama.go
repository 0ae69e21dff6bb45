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

// OllamaAdapter talks to an Ollama server's HTTP API. No Ollama Go SDK
// appears anywhere in this codebase's dependency corpus, so this wraps
// net/http directly, the same way the codebase reaches for net/http
// whenever no client library exists for a given upstream.
type OllamaAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewOllamaAdapter(baseURL, apiKey string) *OllamaAdapter {
	return &OllamaAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

func (a *OllamaAdapter) authHeader(req *http.Request) {
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}
}

type ollamaModelsResponse struct {
	Models []struct {
		Model string `json:"model"`
		Name  string `json:"name"`
	} `json:"models"`
}

func (a *OllamaAdapter) ListModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("llm.OllamaAdapter.ListModels: %w", err)
	}
	a.authHeader(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm.OllamaAdapter.ListModels: %w", err)
	}
	defer resp.Body.Close()

	var parsed ollamaModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("llm.OllamaAdapter.ListModels: %w", err)
	}

	out := make([]Model, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		out = append(out, Model{ID: m.Model, Name: m.Name})
	}
	return out, nil
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Format   string              `json:"format,omitempty"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

func toOllamaMessages(messages []selfquery.Message) []ollamaChatMessage {
	out := make([]ollamaChatMessage, len(messages))
	for i, m := range messages {
		out[i] = ollamaChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func (a *OllamaAdapter) post(ctx context.Context, body any) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm.OllamaAdapter: marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("llm.OllamaAdapter: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	a.authHeader(req)
	return a.client.Do(req)
}

func (a *OllamaAdapter) ChatText(ctx context.Context, model string, messages []selfquery.Message) (string, error) {
	resp, err := a.post(ctx, ollamaChatRequest{Model: model, Messages: toOllamaMessages(messages), Stream: false})
	if err != nil {
		return "", fmt.Errorf("llm.OllamaAdapter.ChatText: %w", err)
	}
	defer resp.Body.Close()

	var parsed ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("llm.OllamaAdapter.ChatText: %w", err)
	}
	return parsed.Message.Content, nil
}

func (a *OllamaAdapter) StreamText(ctx context.Context, model string, messages []selfquery.Message) (<-chan string, <-chan error) {
	chunks := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		resp, err := a.post(ctx, ollamaChatRequest{Model: model, Messages: toOllamaMessages(messages), Stream: true})
		if err != nil {
			errs <- fmt.Errorf("llm.OllamaAdapter.StreamText: %w", err)
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			var chunk ollamaChatResponse
			if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
				continue
			}
			if chunk.Message.Content != "" {
				select {
				case chunks <- chunk.Message.Content:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return chunks, errs
}

func (a *OllamaAdapter) ChatJSON(ctx context.Context, model string, messages []selfquery.Message, temperature float64, maxTokens int) (string, error) {
	options := map[string]any{"temperature": temperature}
	if maxTokens >= 0 {
		options["num_predict"] = maxTokens
	}
	resp, err := a.post(ctx, ollamaChatRequest{
		Model:    model,
		Messages: toOllamaMessages(messages),
		Stream:   false,
		Format:   "json",
		Options:  options,
	})
	if err != nil {
		return "", fmt.Errorf("llm.OllamaAdapter.ChatJSON: %w", err)
	}
	defer resp.Body.Close()

	var parsed ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("llm.OllamaAdapter.ChatJSON: %w", err)
	}
	return parsed.Message.Content, nil
}

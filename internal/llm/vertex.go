package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/google"

	"github.com/ontobot/sparql-selfquery/internal/selfquery"
)

// VertexAdapter talks to the Vertex AI Gemini REST endpoint directly,
// the same way this codebase's other Vertex client falls back to REST
// for the global endpoint rather than the SDK: there is no Go SDK path
// that supports every location this adapter may be pointed at.
//
// baseURL is expected in "project/location" form (e.g.
// "my-project/us-central1"); apiKey, when set, is used as a static bearer
// token instead of application-default credentials, for environments that
// provision a short-lived token out of band.
type VertexAdapter struct {
	project  string
	location string
	apiKey   string
	client   *http.Client
}

func NewVertexAdapter(baseURL, apiKey string) (*VertexAdapter, error) {
	project, location, err := splitProjectLocation(baseURL)
	if err != nil {
		return nil, fmt.Errorf("llm.NewVertexAdapter: %w", err)
	}
	return &VertexAdapter{
		project:  project,
		location: location,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

func splitProjectLocation(baseURL string) (string, string, error) {
	parts := strings.SplitN(baseURL, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected base URL in \"project/location\" form, got %q", baseURL)
	}
	return parts[0], parts[1], nil
}

func (a *VertexAdapter) token(ctx context.Context) (string, error) {
	if a.apiKey != "" {
		return a.apiKey, nil
	}
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("llm.VertexAdapter.token: %w", err)
	}
	tok, err := creds.TokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("llm.VertexAdapter.token: %w", err)
	}
	return tok.AccessToken, nil
}

func (a *VertexAdapter) endpoint() string {
	host := a.location + "-aiplatform.googleapis.com"
	if a.location == "global" {
		host = "aiplatform.googleapis.com"
	}
	return fmt.Sprintf("https://%s/v1/projects/%s/locations/%s/publishers/google", host, a.project, a.location)
}

// ListModels returns nothing useful for Vertex's publisher model catalog
// without a separate Model Garden listing call, so it is left to fail
// gracefully; callers should fall back to the configured default model.
func (a *VertexAdapter) ListModels(ctx context.Context) ([]Model, error) {
	return nil, fmt.Errorf("llm.VertexAdapter.ListModels: model listing is not supported for Vertex AI, use a configured default model")
}

type vertexPart struct {
	Text string `json:"text"`
}

type vertexContent struct {
	Role  string       `json:"role"`
	Parts []vertexPart `json:"parts"`
}

type vertexGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type vertexGenerateRequest struct {
	Contents         []vertexContent         `json:"contents"`
	GenerationConfig *vertexGenerationConfig `json:"generationConfig,omitempty"`
}

type vertexGenerateResponse struct {
	Candidates []struct {
		Content vertexContent `json:"content"`
	} `json:"candidates"`
}

func toVertexContents(messages []selfquery.Message) []vertexContent {
	out := make([]vertexContent, len(messages))
	for i, m := range messages {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		out[i] = vertexContent{Role: role, Parts: []vertexPart{{Text: m.Content}}}
	}
	return out
}

func (a *VertexAdapter) generate(ctx context.Context, model string, messages []selfquery.Message, cfg *vertexGenerationConfig) (string, error) {
	return a.generateAt(ctx, a.endpoint(), model, messages, cfg)
}

// generateAt is generate with the endpoint broken out as a parameter so
// tests can point it at a fake server without reimplementing host
// selection.
func (a *VertexAdapter) generateAt(ctx context.Context, endpoint, model string, messages []selfquery.Message, cfg *vertexGenerationConfig) (string, error) {
	return withRetry(ctx, "vertex.generateContent", func() (string, error) {
		tok, err := a.token(ctx)
		if err != nil {
			return "", err
		}

		reqBody := vertexGenerateRequest{Contents: toVertexContents(messages), GenerationConfig: cfg}
		buf, err := json.Marshal(reqBody)
		if err != nil {
			return "", fmt.Errorf("llm.VertexAdapter.generate: %w", err)
		}

		url := fmt.Sprintf("%s/models/%s:generateContent", endpoint, model)
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
		if err != nil {
			return "", fmt.Errorf("llm.VertexAdapter.generate: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+tok)

		resp, err := a.client.Do(httpReq)
		if err != nil {
			return "", fmt.Errorf("llm.VertexAdapter.generate: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("llm.VertexAdapter.generate: reading response: %w", err)
		}
		if resp.StatusCode >= 300 {
			return "", fmt.Errorf("llm.VertexAdapter.generate: status %d: %s", resp.StatusCode, string(body))
		}

		var parsed vertexGenerateResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", fmt.Errorf("llm.VertexAdapter.generate: %w", err)
		}
		if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("llm.VertexAdapter.generate: empty candidates")
		}
		return parsed.Candidates[0].Content.Parts[0].Text, nil
	})
}

func (a *VertexAdapter) ChatText(ctx context.Context, model string, messages []selfquery.Message) (string, error) {
	return a.generate(ctx, model, messages, nil)
}

// StreamText is not implemented over the REST path used here; Vertex's
// streaming endpoint requires a separate chunked-response decoder this
// adapter does not need for planning, so it returns immediately with an
// error on the error channel.
func (a *VertexAdapter) StreamText(ctx context.Context, model string, messages []selfquery.Message) (<-chan string, <-chan error) {
	chunks := make(chan string)
	errs := make(chan error, 1)
	close(chunks)
	errs <- fmt.Errorf("llm.VertexAdapter.StreamText: streaming is not supported by this adapter")
	close(errs)
	return chunks, errs
}

func (a *VertexAdapter) ChatJSON(ctx context.Context, model string, messages []selfquery.Message, temperature float64, maxTokens int) (string, error) {
	cfg := &vertexGenerationConfig{Temperature: &temperature, ResponseMIMEType: "application/json"}
	if maxTokens >= 0 {
		cfg.MaxOutputTokens = &maxTokens
	}
	return a.generate(ctx, model, messages, cfg)
}

// Package llm provides the adapter contract self-query planners use to
// talk to a chat model, plus a small factory choosing an implementation
// by provider name — the same shape as a typical API-key/base-URL client
// wrapper, generalized across providers instead of locked to one vendor.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ontobot/sparql-selfquery/internal/selfquery"
)

// Model describes one model an adapter can serve.
type Model struct {
	ID   string
	Name string
}

// Adapter is the full capability contract an LLM client exposes to this
// service: listing models, plain chat, streaming chat, and JSON-mode
// chat (used by the planner). Every Adapter implementation also satisfies
// selfquery.ChatJSONClient.
type Adapter interface {
	ListModels(ctx context.Context) ([]Model, error)
	ChatText(ctx context.Context, model string, messages []selfquery.Message) (string, error)
	StreamText(ctx context.Context, model string, messages []selfquery.Message) (<-chan string, <-chan error)
	ChatJSON(ctx context.Context, model string, messages []selfquery.Message, temperature float64, maxTokens int) (string, error)
}

// BuildAdapter constructs an Adapter for provider. Recognized provider
// strings are "ollama" and any of "openai", "openai_compat",
// "openai-compatible", "openai_compatible" (all aliases for the same
// OpenAI-compatible REST client); "vertex" selects the Vertex AI Gemini
// client. Any other value is an error.
func BuildAdapter(provider, baseURL, apiKey string) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "ollama":
		return NewOllamaAdapter(baseURL, apiKey), nil
	case "openai", "openai_compat", "openai-compatible", "openai_compatible":
		return NewOpenAICompatAdapter(baseURL, apiKey), nil
	case "vertex":
		return NewVertexAdapter(baseURL, apiKey)
	default:
		return nil, fmt.Errorf("llm.BuildAdapter: unsupported provider %q", provider)
	}
}

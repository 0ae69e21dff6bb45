package llm

import "testing"

func TestBuildAdapterRecognizesOllama(t *testing.T) {
	a, err := BuildAdapter("ollama", "http://localhost:11434", "")
	if err != nil {
		t.Fatalf("BuildAdapter: %v", err)
	}
	if _, ok := a.(*OllamaAdapter); !ok {
		t.Errorf("expected *OllamaAdapter, got %T", a)
	}
}

func TestBuildAdapterRecognizesOpenAIAliases(t *testing.T) {
	for _, provider := range []string{"openai", "openai_compat", "openai-compatible", "openai_compatible", "  OpenAI  "} {
		a, err := BuildAdapter(provider, "http://localhost:8000/v1", "key")
		if err != nil {
			t.Fatalf("BuildAdapter(%q): %v", provider, err)
		}
		if _, ok := a.(*OpenAICompatAdapter); !ok {
			t.Errorf("BuildAdapter(%q): expected *OpenAICompatAdapter, got %T", provider, a)
		}
	}
}

func TestBuildAdapterRecognizesVertex(t *testing.T) {
	a, err := BuildAdapter("vertex", "my-project/us-central1", "")
	if err != nil {
		t.Fatalf("BuildAdapter: %v", err)
	}
	if _, ok := a.(*VertexAdapter); !ok {
		t.Errorf("expected *VertexAdapter, got %T", a)
	}
}

func TestBuildAdapterRejectsUnknownProvider(t *testing.T) {
	if _, err := BuildAdapter("anthropic", "http://localhost", ""); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ontobot/sparql-selfquery/internal/selfquery"
)

func TestSplitProjectLocation(t *testing.T) {
	project, location, err := splitProjectLocation("my-project/us-central1")
	if err != nil {
		t.Fatalf("splitProjectLocation: %v", err)
	}
	if project != "my-project" || location != "us-central1" {
		t.Errorf("got project=%q location=%q", project, location)
	}
}

func TestSplitProjectLocationRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "no-slash", "/missing-project", "missing-location/"} {
		if _, _, err := splitProjectLocation(in); err == nil {
			t.Errorf("splitProjectLocation(%q): expected error", in)
		}
	}
}

func TestVertexAdapterEndpointRegional(t *testing.T) {
	a := &VertexAdapter{project: "proj", location: "us-central1"}
	got := a.endpoint()
	want := "https://us-central1-aiplatform.googleapis.com/v1/projects/proj/locations/us-central1/publishers/google"
	if got != want {
		t.Errorf("endpoint() = %q, want %q", got, want)
	}
}

func TestVertexAdapterEndpointGlobal(t *testing.T) {
	a := &VertexAdapter{project: "proj", location: "global"}
	got := a.endpoint()
	want := "https://aiplatform.googleapis.com/v1/projects/proj/locations/global/publishers/google"
	if got != want {
		t.Errorf("endpoint() = %q, want %q", got, want)
	}
}

func TestToVertexContentsMapsAssistantToModel(t *testing.T) {
	out := toVertexContents([]selfquery.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Role != "user" || out[1].Role != "model" {
		t.Errorf("roles = %q, %q", out[0].Role, out[1].Role)
	}
	if out[0].Parts[0].Text != "hi" || out[1].Parts[0].Text != "hello" {
		t.Errorf("unexpected part text: %+v", out)
	}
}

func TestVertexAdapterListModelsUnsupported(t *testing.T) {
	a := &VertexAdapter{project: "p", location: "global"}
	if _, err := a.ListModels(context.Background()); err == nil {
		t.Fatal("expected ListModels to report unsupported")
	}
}

func TestVertexAdapterStreamTextReturnsError(t *testing.T) {
	a := &VertexAdapter{project: "p", location: "global"}
	chunks, errs := a.StreamText(context.Background(), "gemini", nil)
	for range chunks {
		t.Fatal("expected no chunks")
	}
	if err := <-errs; err == nil {
		t.Fatal("expected StreamText to report unsupported")
	}
}

func TestVertexAdapterGenerateAtUsesStaticAPIKeyAndParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer static-token" {
			t.Errorf("Authorization = %q, want Bearer static-token", auth)
		}
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req vertexGenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) != 1 || req.Contents[0].Role != "user" {
			t.Errorf("unexpected request contents: %+v", req.Contents)
		}
		_ = json.NewEncoder(w).Encode(vertexGenerateResponse{
			Candidates: []struct {
				Content vertexContent `json:"content"`
			}{{Content: vertexContent{Parts: []vertexPart{{Text: "ok"}}}}},
		})
	}))
	defer srv.Close()

	a := &VertexAdapter{project: "proj", location: "us-central1", apiKey: "static-token", client: srv.Client()}
	got, err := a.generateAt(context.Background(), srv.URL, "gemini-test", []selfquery.Message{{Role: "user", Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("generateAt: %v", err)
	}
	if got != "ok" {
		t.Errorf("got = %q", got)
	}
}

func TestVertexAdapterGenerateAtReturnsErrorOnEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(vertexGenerateResponse{})
	}))
	defer srv.Close()

	a := &VertexAdapter{project: "proj", location: "us-central1", apiKey: "static-token", client: srv.Client()}
	if _, err := a.generateAt(context.Background(), srv.URL, "gemini-test", nil, nil); err == nil {
		t.Fatal("expected error on empty candidates")
	}
}

func TestVertexAdapterGenerateAtSendsGenerationConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req vertexGenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.GenerationConfig == nil || req.GenerationConfig.ResponseMIMEType != "application/json" {
			t.Errorf("expected responseMimeType application/json, got %+v", req.GenerationConfig)
		}
		if req.GenerationConfig.MaxOutputTokens != nil {
			t.Errorf("expected MaxOutputTokens omitted when unset, got %v", *req.GenerationConfig.MaxOutputTokens)
		}
		_ = json.NewEncoder(w).Encode(vertexGenerateResponse{
			Candidates: []struct {
				Content vertexContent `json:"content"`
			}{{Content: vertexContent{Parts: []vertexPart{{Text: `{"queries":[]}`}}}}},
		})
	}))
	defer srv.Close()

	a := &VertexAdapter{project: "proj", location: "us-central1", apiKey: "static-token", client: srv.Client()}
	cfg := &vertexGenerationConfig{ResponseMIMEType: "application/json"}
	got, err := a.generateAt(context.Background(), srv.URL, "gemini-test", nil, cfg)
	if err != nil {
		t.Fatalf("generateAt: %v", err)
	}
	if got != `{"queries":[]}` {
		t.Errorf("got = %q", got)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ontobot/sparql-selfquery/internal/config"
	"github.com/ontobot/sparql-selfquery/internal/llm"
	"github.com/ontobot/sparql-selfquery/internal/selfquery"
)

// fakeAdapter implements llm.Adapter with a fixed planner response, enough
// to drive one iteration of the engine without a real LLM.
type fakeAdapter struct {
	chatJSON string
	models   []llm.Model
	err      error
}

func (f *fakeAdapter) ListModels(ctx context.Context) ([]llm.Model, error) { return f.models, f.err }
func (f *fakeAdapter) ChatText(ctx context.Context, model string, messages []selfquery.Message) (string, error) {
	return f.chatJSON, nil
}
func (f *fakeAdapter) StreamText(ctx context.Context, model string, messages []selfquery.Message) (<-chan string, <-chan error) {
	ch := make(chan string)
	errs := make(chan error)
	close(ch)
	close(errs)
	return ch, errs
}
func (f *fakeAdapter) ChatJSON(ctx context.Context, model string, messages []selfquery.Message, temperature float64, maxTokens int) (string, error) {
	return f.chatJSON, nil
}

func newStubSPARQLServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		values, _ := url.ParseQuery(string(raw))
		query := values.Get("query")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		if strings.Contains(query, "classes") || strings.Contains(query, "?class") {
			_, _ = w.Write([]byte(`{"results":{"bindings":[]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":{"bindings":[{"s":{"type":"uri","value":"urn:bike"}}]}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T, adapter *fakeAdapter) *QueryHandler {
	t.Helper()
	sparqlSrv := newStubSPARQLServer(t)
	cfg := &config.Config{
		SPARQLEndpoint:               sparqlSrv.URL,
		TimeoutSec:                   5,
		TopK:                         3,
		QueryCandidates:              2,
		MaxRows:                      50,
		MaxTriples:                   30,
		PlannerTimeoutSec:            5,
		PlannerMaxTokens:             -1,
		AllowDescribe:                true,
		MaxQueryChars:                8000,
		MaxIterations:                1,
		MinIterationsBeforeEarlyStop: 1,
		GlobalTimeBudgetSec:          30,
	}
	engine := selfquery.NewEngine(cfg, adapter, nil)
	return NewQueryHandler(QueryDeps{Engine: engine, Adapter: adapter, DefaultModel: "default-model"})
}

func TestHandleQuerySyncReturnsJSON(t *testing.T) {
	adapter := &fakeAdapter{chatJSON: `{"queries": ["SELECT ?s WHERE { ?s ?p ?o } LIMIT 10"]}`}
	h := newTestHandler(t, adapter)

	body := strings.NewReader(`{"query":"find bikes"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/query", body)
	rec := httptest.NewRecorder()

	h.HandleQuery(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Code = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp queryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.StopReason == "" {
		t.Error("expected a stop reason")
	}
}

func TestHandleQueryRejectsEmptyQuery(t *testing.T) {
	adapter := &fakeAdapter{}
	h := newTestHandler(t, adapter)

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"query":""}`))
	rec := httptest.NewRecorder()
	h.HandleQuery(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Code = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleQueryRejectsInvalidJSON(t *testing.T) {
	adapter := &fakeAdapter{}
	h := newTestHandler(t, adapter)

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	h.HandleQuery(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Code = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleQueryStreamEmitsSSEEvents(t *testing.T) {
	adapter := &fakeAdapter{chatJSON: `{"queries": ["SELECT ?s WHERE { ?s ?p ?o } LIMIT 10"]}`}
	h := newTestHandler(t, adapter)

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"query":"find bikes","stream":true}`))
	rec := httptest.NewRecorder()
	h.HandleQuery(rec, req)

	out := rec.Body.String()
	if !strings.Contains(out, "event: progress") {
		t.Error("expected at least one progress event")
	}
	if !strings.Contains(out, "event: result") {
		t.Error("expected a final result event")
	}
}

func TestHandleListModelsReturnsAdapterModels(t *testing.T) {
	adapter := &fakeAdapter{models: []llm.Model{{ID: "m1", Name: "Model One"}}}
	h := newTestHandler(t, adapter)

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	h.HandleListModels(rec, req)

	var resp modelsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Models) != 1 || resp.Models[0].ID != "m1" {
		t.Fatalf("models = %+v", resp.Models)
	}
}

func TestHandleListModelsFallsBackOnError(t *testing.T) {
	adapter := &fakeAdapter{err: context.DeadlineExceeded}
	h := newTestHandler(t, adapter)

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	h.HandleListModels(rec, req)

	var resp modelsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Models) != 1 || resp.Models[0].ID != "default-model" {
		t.Fatalf("expected fallback to default model, got %+v", resp.Models)
	}
}

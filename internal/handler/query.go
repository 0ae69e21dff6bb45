// Package handler exposes the self-query engine over HTTP: a streaming or
// synchronous retrieval endpoint and a model-listing endpoint, using
// sendEvent over an http.Flusher for the streaming case.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ontobot/sparql-selfquery/internal/llm"
	"github.com/ontobot/sparql-selfquery/internal/middleware"
	"github.com/ontobot/sparql-selfquery/internal/repository"
	"github.com/ontobot/sparql-selfquery/internal/selfquery"
)

// QueryDeps bundles the collaborators QueryHandler needs.
type QueryDeps struct {
	Engine      *selfquery.Engine
	Adapter     llm.Adapter
	QueryLog    *repository.QueryLogRepository
	DefaultModel string
}

type QueryHandler struct {
	deps QueryDeps
}

func NewQueryHandler(deps QueryDeps) *QueryHandler {
	return &QueryHandler{deps: deps}
}

type queryRequest struct {
	Query   string `json:"query"`
	ModelID string `json:"model_id"`
	Stream  bool   `json:"stream"`
}

type queryResponse struct {
	Context        string                     `json:"context"`
	Evidence       []selfquery.QueryEvidence  `json:"evidence"`
	IterationsUsed int                        `json:"iterations_used"`
	StopReason     string                     `json:"stop_reason"`
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	buf, err := json.Marshal(data)
	if err != nil {
		slog.Warn("[SelfQuery] failed to marshal SSE payload", "event", event, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, buf)
	flusher.Flush()
}

// HandleQuery runs one retrieval. With stream=true it pushes each
// ProgressEvent over SSE as it happens, then a final "result" event; with
// stream=false it runs to completion and returns one JSON body.
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	modelID := req.ModelID
	if modelID == "" {
		modelID = h.deps.DefaultModel
	}

	userReq := selfquery.UserRequest{Query: req.Query, ModelID: modelID}

	if !req.Stream {
		h.handleSync(r.Context(), w, userReq)
		return
	}
	h.handleStream(r.Context(), w, userReq)
}

func (h *QueryHandler) handleSync(ctx context.Context, w http.ResponseWriter, req selfquery.UserRequest) {
	result, err := h.deps.Engine.Process(ctx, req, nil)
	if err != nil {
		http.Error(w, fmt.Sprintf("retrieval failed: %v", err), http.StatusInternalServerError)
		return
	}
	h.recordAndObserve(ctx, req.Query, result)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(queryResponse{
		Context:        result.Context,
		Evidence:       result.Evidence,
		IterationsUsed: result.IterationsUsed,
		StopReason:     result.StopReason,
	})
}

func (h *QueryHandler) handleStream(ctx context.Context, w http.ResponseWriter, req selfquery.UserRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	presenter := selfquery.ProgressPresenter{}
	progress := func(ev selfquery.ProgressEvent) {
		status := presenter.Present(ev)
		sendEvent(w, flusher, "progress", map[string]any{
			"stage":       ev.Stage,
			"description": status.Description,
			"hidden":      status.Hidden,
			"chips":       status.QueryChips,
			"done":        ev.Done,
			"payload":     ev.Payload,
		})
	}

	result, err := h.deps.Engine.Process(ctx, req, progress)
	if err != nil {
		sendEvent(w, flusher, "error", map[string]any{"error": err.Error()})
		return
	}
	h.recordAndObserve(ctx, req.Query, result)

	sendEvent(w, flusher, "result", queryResponse{
		Context:        result.Context,
		Evidence:       result.Evidence,
		IterationsUsed: result.IterationsUsed,
		StopReason:     result.StopReason,
	})
}

func (h *QueryHandler) recordAndObserve(ctx context.Context, query string, result *selfquery.Result) {
	middleware.IterationsUsed.Observe(float64(result.IterationsUsed))
	middleware.StopReasons.WithLabelValues(result.StopReason).Inc()

	if h.deps.QueryLog == nil {
		return
	}
	if err := h.deps.QueryLog.Record(ctx, "", query, result); err != nil {
		slog.Warn("[SelfQuery] failed to record query log", "error", err)
	}
}

type modelsResponse struct {
	Models []llm.Model `json:"models"`
}

// HandleListModels lists models from the configured adapter, falling back
// to the single configured default model when listing fails.
func (h *QueryHandler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.deps.Adapter.ListModels(r.Context())
	if err != nil {
		slog.Warn("[SelfQuery] model listing failed, falling back to default", "error", err)
		if h.deps.DefaultModel != "" {
			models = []llm.Model{{ID: h.deps.DefaultModel, Name: h.deps.DefaultModel + " (fallback model)"}}
		} else {
			models = nil
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(modelsResponse{Models: models})
}

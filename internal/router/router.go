// Package router assembles the HTTP surface for the self-query engine:
// a chi mux wiring the query and model-listing handlers behind the
// logging, metrics, and timeout middleware.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ontobot/sparql-selfquery/internal/handler"
	"github.com/ontobot/sparql-selfquery/internal/middleware"
)

// Dependencies bundles everything the router's handlers need.
type Dependencies struct {
	Query *handler.QueryHandler
}

func New(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", deps.Query.HandleQuery)
		r.Get("/models", deps.Query.HandleListModels)
	})

	return r
}

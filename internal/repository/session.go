package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ontobot/sparql-selfquery/internal/selfquery"
)

// QueryLogRepository records the outcome of each Engine.Process call for
// later inspection — how many iterations it took, why it stopped, and how
// many evidence items it kept. It is an optional collaborator; a nil
// *QueryLogRepository disables logging entirely.
type QueryLogRepository struct {
	pool *pgxpool.Pool
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{pool: pool}
}

// Record inserts one row describing a completed retrieval. Failures are
// returned to the caller to log; they must never abort the retrieval
// itself, which has already completed by the time Record is called.
func (r *QueryLogRepository) Record(ctx context.Context, requestID, query string, result *selfquery.Result) error {
	if r == nil || r.pool == nil {
		return nil
	}

	const stmt = `
INSERT INTO selfquery_request_log
	(request_id, query, iterations_used, stop_reason, evidence_count, context_chars)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, stmt,
		requestID,
		query,
		result.IterationsUsed,
		result.StopReason,
		len(result.Evidence),
		len(result.Context),
	)
	if err != nil {
		return fmt.Errorf("repository.QueryLogRepository.Record: %w", err)
	}
	return nil
}

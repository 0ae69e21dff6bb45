package repository

import (
	"context"
	"testing"

	"github.com/ontobot/sparql-selfquery/internal/selfquery"
)

func TestQueryLogRepositoryRecordNilReceiverIsNoop(t *testing.T) {
	var repo *QueryLogRepository
	err := repo.Record(context.Background(), "req1", "find bikes", &selfquery.Result{})
	if err != nil {
		t.Fatalf("Record on nil repository should be a no-op, got %v", err)
	}
}

func TestQueryLogRepositoryRecordNilPoolIsNoop(t *testing.T) {
	repo := NewQueryLogRepository(nil)
	err := repo.Record(context.Background(), "req1", "find bikes", &selfquery.Result{
		IterationsUsed: 3,
		StopReason:     selfquery.StopMaxIterations,
	})
	if err != nil {
		t.Fatalf("Record with nil pool should be a no-op, got %v", err)
	}
}

package selfquery

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ontobot/sparql-selfquery/internal/config"
)

// Engine is one configured self-query retrieval pipeline: an endpoint, a
// planner, and the iteration/stop-condition logic tying them together.
// An Engine is safe for concurrent use by multiple Process calls; all
// per-request state lives in requestState, not on the Engine itself. The
// schema cache is the one piece of state shared across calls, by design.
type Engine struct {
	cfg      *config.Config
	driver   *endpointDriver
	schema   *schemaLoader
	planner  *plannerInvoker
	executor *batchExecutor
	lexical  *lexicalCandidateGenerator
}

// NewEngine wires one Engine from Config and an LLM client. cache may be
// nil, in which case schema context is refetched on every request.
func NewEngine(cfg *config.Config, client ChatJSONClient, cache SchemaCache) *Engine {
	driver := newEndpointDriver(cfg.SPARQLEndpoint, cfg.TimeoutSec)

	return &Engine{
		cfg:    cfg,
		driver: driver,
		schema: &schemaLoader{
			driver:               driver,
			cache:                cache,
			graphURI:             cfg.SchemaGraphURI,
			includeFullSchemaTTL: cfg.IncludeFullSchemaTTL,
			schemaTTLMaxChars:    cfg.SchemaTTLMaxChars,
			maxRows:              cfg.MaxRows,
		},
		planner: &plannerInvoker{
			client:            client,
			timeout:           time.Duration(cfg.PlannerTimeoutSec) * time.Second,
			maxTokens:         cfg.PlannerMaxTokens,
			queryCandidates:   cfg.QueryCandidates,
			maxRows:           cfg.MaxRows,
			maxTriples:        cfg.MaxTriples,
			allowDescribe:     cfg.AllowDescribe,
			minIterBeforeStop: cfg.MinIterationsBeforeEarlyStop,
		},
		executor: &batchExecutor{
			driver:        driver,
			maxQueryChars: cfg.MaxQueryChars,
			allowDescribe: cfg.AllowDescribe,
			maxRows:       cfg.MaxRows,
			maxTriples:    cfg.MaxTriples,
		},
		lexical: &lexicalCandidateGenerator{
			matchLiterals:   cfg.LexicalMatchLiterals,
			matchLabels:     cfg.LexicalMatchLabels,
			matchIRILocal:   cfg.LexicalMatchIRILocal,
			matchPredicates: cfg.LexicalMatchPredicates,
			maxTokens:       cfg.LexicalMaxTokens,
			maxCandidates:   cfg.LexicalMaxCandidates,
			maxRows:         cfg.MaxRows,
		},
	}
}

// Process runs the full iterative retrieval loop for one request: load
// schema context, then repeatedly plan, execute, and score SPARQL
// candidates until a stop condition fires, then pack the best evidence
// into a Result.
func (e *Engine) Process(ctx context.Context, req UserRequest, progressFn ProgressFunc) (*Result, error) {
	requestID := uuid.NewString()[:8]
	progress := &progressEmitter{fn: progressFn, requestID: requestID}
	state := newRequestState(requestID)

	slog.Info("[SelfQuery] process start", "request_id", requestID, "query", req.Query)
	progress.emit(StageStart, false, map[string]any{
		"max_iterations":                  e.cfg.MaxIterations,
		"min_iterations_before_early_stop": e.cfg.MinIterationsBeforeEarlyStop,
	})

	schema := e.loadSchemaContext(ctx, progress)

	stopReason := StopMaxIterations
	iterationsUsed := 0

	for iteration := 1; iteration <= e.cfg.MaxIterations; iteration++ {
		iterationsUsed = iteration
		progress.emit(StageIterationStart, false, map[string]any{"iteration": iteration})

		if e.globalBudgetReached(state, iteration, progress) {
			stopReason = StopGlobalTimeBudget
			break
		}

		merged, plannerCount, lexicalCount := e.planIterationCandidates(ctx, req, schema, state, iteration)
		progress.emit(StageIterationCandidates, false, map[string]any{
			"iteration":          iteration,
			"planner_candidates": plannerCount,
			"lexical_candidates": lexicalCount,
			"new_candidates":     len(merged),
			"query_previews":     previewAll(merged, 2),
		})

		if len(merged) == 0 {
			stopReason = StopNoNewCandidates
			progress.emit(StageIterationStop, false, map[string]any{"iteration": iteration, "reason": stopReason})
			break
		}

		state.allCandidates = append(state.allCandidates, merged...)
		evidence := e.executor.executeBatch(ctx, merged, req.Query)
		state.allEvidence = append(state.allEvidence, evidence...)
		progress.emit(StageIterationExecuted, false, map[string]any{
			"iteration":  iteration,
			"evidence":   len(evidence),
			"accumulated": len(state.allEvidence),
		})

		shouldStop, nextBest := e.evaluateEarlyStop(state, iteration, progress)
		state.bestScore = nextBest
		if shouldStop {
			stopReason = StopNoMeaningfulImprovement
			break
		}
	}

	return e.buildResult(schema, state, iterationsUsed, stopReason, progress), nil
}

func (e *Engine) loadSchemaContext(ctx context.Context, progress *progressEmitter) *SchemaContext {
	sc := e.schema.load(ctx)
	progress.emit(StageSchemaMetadata, false, map[string]any{"chars": len(sc.MetadataJSON)})
	if e.cfg.IncludeFullSchemaTTL {
		progress.emit(StageSchemaTTL, false, map[string]any{"chars": len(sc.TTL)})
	}
	return sc
}

func (e *Engine) globalBudgetReached(state *requestState, iteration int, progress *progressEmitter) bool {
	elapsed := time.Since(state.startTime).Seconds()
	budget := float64(e.cfg.GlobalTimeBudgetSec)
	if elapsed < budget {
		return false
	}
	slog.Warn("[SelfQuery] global time budget exceeded", "request_id", state.requestID, "elapsed_sec", elapsed, "budget_sec", budget)
	progress.emit(StageIterationStop, false, map[string]any{
		"iteration":   iteration,
		"elapsed_sec": round2(elapsed),
		"budget_sec":  e.cfg.GlobalTimeBudgetSec,
	})
	return true
}

// planIterationCandidates asks the planner for candidates, adds lexical
// candidates when enabled, and dedupes both against everything already
// seen this request (mutating state.seenQueries).
func (e *Engine) planIterationCandidates(ctx context.Context, req UserRequest, schema *SchemaContext, state *requestState, iteration int) ([]string, int, int) {
	loopContext := e.packTopEvidence(state.allEvidence)

	plannerCandidates := e.planner.generate(ctx, req.Query, req.ModelID, schema, loopContext, iteration)

	var lexicalCandidates []string
	if e.cfg.EnableLexicalSearch {
		lexicalCandidates = e.lexical.generate(req.Query)
	}

	merged := make([]string, 0, len(plannerCandidates)+len(lexicalCandidates))
	for _, q := range append(append([]string{}, plannerCandidates...), lexicalCandidates...) {
		norm := normalizeQuery(q)
		if _, ok := state.seenQueries[norm]; ok {
			continue
		}
		state.seenQueries[norm] = struct{}{}
		merged = append(merged, q)
	}

	return merged, len(plannerCandidates), len(lexicalCandidates)
}

func (e *Engine) evaluateEarlyStop(state *requestState, iteration int, progress *progressEmitter) (bool, float64) {
	nextBest := 0.0
	for _, ev := range state.allEvidence {
		if ev.Score > nextBest {
			nextBest = ev.Score
		}
	}

	improvement := nextBest - state.bestScore
	canEarlyStop := iteration >= e.cfg.MinIterationsBeforeEarlyStop

	if iteration < e.cfg.MaxIterations && canEarlyStop && improvement < e.cfg.MinScoreImprovement {
		progress.emit(StageIterationStop, false, map[string]any{
			"iteration":         iteration,
			"improvement":       round4(improvement),
			"minimum_improvement": e.cfg.MinScoreImprovement,
		})
		return true, nextBest
	}
	return false, nextBest
}

func (e *Engine) buildResult(schema *SchemaContext, state *requestState, iterationsUsed int, stopReason string, progress *progressEmitter) *Result {
	sorted := make([]QueryEvidence, len(state.allEvidence))
	copy(sorted, state.allEvidence)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	best := sorted
	if len(best) > e.cfg.TopK {
		best = best[:e.cfg.TopK]
	}

	context := e.packTopEvidence(best)

	progress.emit(StageComplete, true, map[string]any{
		"iterations_used":  iterationsUsed,
		"stop_reason":       stopReason,
		"selected_evidence": len(best),
	})

	return &Result{
		SchemaMetadataJSON: schema.MetadataJSON,
		Queries:            state.allCandidates,
		Evidence:           best,
		Context:            context,
		IterationsUsed:     iterationsUsed,
		StopReason:         stopReason,
	}
}

// packTopEvidence sorts by score descending, takes TopK, and renders each
// item as a text block the planner prompt and final context both reuse.
func (e *Engine) packTopEvidence(evidence []QueryEvidence) string {
	sorted := make([]QueryEvidence, len(evidence))
	copy(sorted, evidence)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	if len(sorted) > e.cfg.TopK {
		sorted = sorted[:e.cfg.TopK]
	}
	return rankAndPackContext(sorted)
}

func rankAndPackContext(evidence []QueryEvidence) string {
	blocks := make([]string, 0, len(evidence))
	for i, item := range evidence {
		block := fmt.Sprintf("Evidence #%d\nQueryType: %s\nQuery:\n%s", i+1, item.QueryType, item.Query)
		if item.Error != "" {
			block += "\nError: " + item.Error
		} else {
			block += "\nTop bindings/subgraph:\n" + item.Preview
		}
		blocks = append(blocks, block)
	}
	return joinBlocks(blocks)
}

func joinBlocks(blocks []string) string {
	out := ""
	for i, b := range blocks {
		if i > 0 {
			out += "\n\n"
		}
		out += b
	}
	return out
}

func previewAll(queries []string, limit int) []string {
	if len(queries) > limit {
		queries = queries[:limit]
	}
	out := make([]string, len(queries))
	for i, q := range queries {
		out[i] = short(q, 120)
	}
	return out
}

// normalizeQuery collapses whitespace and case so equivalent queries
// (differing only in formatting) are recognized as already-seen.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}

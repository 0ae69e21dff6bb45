// Package selfquery implements an iterative, self-querying SPARQL
// retrieval engine: given a natural-language question it asks an LLM to
// propose SPARQL candidates, validates and runs them against a read-only
// endpoint, scores the results as evidence, and repeats until the answer
// looks good enough or a stop condition fires.
package selfquery

import "time"

// UserRequest is the input to one Engine.Process call.
type UserRequest struct {
	Query   string
	ModelID string
}

// QueryEvidence is what one executed SPARQL candidate contributed to the
// retrieval: either a scored preview of its results, or an error if it was
// rejected or failed to run.
type QueryEvidence struct {
	Query     string  `json:"query"`
	QueryType string  `json:"query_type"`
	Preview   string  `json:"preview"`
	Score     float64 `json:"score"`
	Error     string  `json:"error,omitempty"`
}

// ProgressEvent reports engine progress to an external caller (a streaming
// HTTP handler, a CLI, a test). Emission failures from the caller's
// callback must never break retrieval.
type ProgressEvent struct {
	Stage       string         `json:"stage"`
	Description string         `json:"description"`
	Done        bool           `json:"done"`
	Payload     map[string]any `json:"payload"`
}

// ProgressFunc receives ProgressEvents during Process. Implementations
// should not block for long; the engine calls them synchronously from the
// iteration loop.
type ProgressFunc func(ProgressEvent)

// SchemaContext is the cached description of the target graph's shape:
// a JSON summary of classes/properties plus, optionally, a raw Turtle
// dump of a schema graph.
type SchemaContext struct {
	MetadataJSON string
	TTL          string
}

// EndpointCandidates is the ordered list of SPARQL endpoint URLs to try,
// built once per Engine from its configured endpoint.
type EndpointCandidates []string

// Result is what Engine.Process returns: the evidence selected for the
// answer, the packed context text ready to hand to a downstream LLM call,
// and bookkeeping about how the loop terminated.
type Result struct {
	SchemaMetadataJSON string
	Queries            []string
	Evidence           []QueryEvidence
	Context            string
	IterationsUsed      int
	StopReason          string
}

// Stop reasons, matching the engine's closed set of termination causes.
const (
	StopMaxIterations           = "max_iterations"
	StopNoNewCandidates         = "no_new_candidates"
	StopNoMeaningfulImprovement = "no_meaningful_improvement"
	StopGlobalTimeBudget        = "global_time_budget"
)

// Progress stages, matching the engine's closed set of wire stages.
const (
	StageStart              = "start"
	StageSchemaMetadata     = "schema_metadata"
	StageSchemaTTL          = "schema_ttl"
	StageIterationStart     = "iteration_start"
	StageIterationCandidates = "iteration_candidates"
	StageIterationExecuted  = "iteration_executed"
	StageIterationStop      = "iteration_stop"
	StageError              = "error"
	StageComplete           = "complete"
)

// Query types recognized by the validator and scorer.
const (
	QueryTypeSelect    = "SELECT"
	QueryTypeAsk       = "ASK"
	QueryTypeConstruct = "CONSTRUCT"
	QueryTypeDescribe  = "DESCRIBE"
	QueryTypeUnknown   = "UNKNOWN"
)

// requestState is the per-call mutable state of one Process invocation. It
// is created at the top of Process and discarded when it returns; nothing
// here is shared across concurrent calls to the same Engine.
type requestState struct {
	requestID      string
	startTime      time.Time
	seenQueries    map[string]struct{}
	allCandidates  []string
	allEvidence    []QueryEvidence
	bestScore      float64
}

func newRequestState(requestID string) *requestState {
	return &requestState{
		requestID:   requestID,
		startTime:   time.Now(),
		seenQueries: make(map[string]struct{}),
	}
}

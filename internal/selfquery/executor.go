package selfquery

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// OnQueryRejected, when set, is called once per candidate the validator
// rejects. It exists so an HTTP layer can export a rejection-rate metric
// without this package depending on a metrics library directly.
var OnQueryRejected func()

// batchExecutor validates and runs one iteration's SPARQL candidates
// against the endpoint, turning each into QueryEvidence. Candidates within
// a batch may run concurrently, but the result slice preserves the
// original candidate order regardless of completion order.
type batchExecutor struct {
	driver        *endpointDriver
	maxQueryChars int
	allowDescribe bool
	maxRows       int
	maxTriples    int
}

func (e *batchExecutor) executeBatch(ctx context.Context, candidates []string, userQuery string) []QueryEvidence {
	results := make([]QueryEvidence, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	for i, query := range candidates {
		i, query := i, query
		g.Go(func() error {
			results[i] = e.executeOne(gctx, query, userQuery)
			return nil
		})
	}
	// executeOne never returns an error from the group itself — failures
	// are captured as zero-score evidence — so the Wait error is ignored.
	_ = g.Wait()

	return results
}

func (e *batchExecutor) executeOne(ctx context.Context, query, userQuery string) QueryEvidence {
	qType := queryType(query)

	ok, reason := validateQuery(query, qType, e.maxQueryChars, e.allowDescribe)
	if !ok {
		if OnQueryRejected != nil {
			OnQueryRejected()
		}
		return QueryEvidence{Query: query, QueryType: qType, Score: 0, Error: reason}
	}

	var preview string
	var score float64
	var err error

	switch qType {
	case QueryTypeSelect, QueryTypeAsk, QueryTypeDescribe:
		preview, score, err = e.runRawJSON(ctx, query, qType, userQuery)
	case QueryTypeConstruct:
		preview, score, err = e.runConstructScored(ctx, query, userQuery)
	default:
		err = fmt.Errorf("selfquery.batchExecutor: unexpected query type %q after validation", qType)
	}

	if err != nil {
		return QueryEvidence{Query: query, QueryType: qType, Score: 0, Error: err.Error()}
	}
	return QueryEvidence{Query: query, QueryType: qType, Preview: preview, Score: score}
}

// runRawJSON executes SELECT/ASK directly against the JSON results
// endpoint. DESCRIBE is special-cased: it is fetched as Turtle, scored as
// a Turtle payload, then wrapped into a synthetic single-binding JSON
// result so the caller has one evidence shape to work with regardless of
// query type.
func (e *batchExecutor) runRawJSON(ctx context.Context, query, qType, userQuery string) (string, float64, error) {
	if qType == QueryTypeDescribe {
		body, err := e.driver.run(ctx, query, acceptTurtle)
		if err != nil {
			return "", 0, fmt.Errorf("selfquery.batchExecutor.runRawJSON: %w", err)
		}
		preview, score := scoreConstructPayload(string(body), "", e.maxTriples)
		synthetic := &sparqlJSONResults{describeScore: score, hasDescribeScore: true}
		synthetic.Results.Bindings = []map[string]sparqlBinding{
			{"describe": {Type: "literal", Value: preview}},
		}
		return scoreJSONPayload(synthetic, userQuery, e.maxRows)
	}

	body, err := e.driver.run(ctx, query, acceptJSON)
	if err != nil {
		return "", 0, fmt.Errorf("selfquery.batchExecutor.runRawJSON: %w", err)
	}
	parsed, err := parseSPARQLJSON(body)
	if err != nil {
		return "", 0, fmt.Errorf("selfquery.batchExecutor.runRawJSON: %w", err)
	}
	return scoreJSONPayload(parsed, userQuery, e.maxRows)
}

func (e *batchExecutor) runConstructScored(ctx context.Context, query, userQuery string) (string, float64, error) {
	body, err := e.driver.run(ctx, query, acceptTurtle)
	if err != nil {
		return "", 0, fmt.Errorf("selfquery.batchExecutor.runConstructScored: %w", err)
	}
	preview, score := scoreConstructPayload(string(body), userQuery, e.maxTriples)
	return preview, score, nil
}

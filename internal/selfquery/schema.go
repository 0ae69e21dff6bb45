package selfquery

import (
	"context"
	"encoding/json"
	"fmt"
)

// SchemaCache is the write-once-read-many cache contract an Engine uses to
// avoid re-fetching schema context on every request. Implementations (see
// internal/cache) must be safe for concurrent Get/Set from multiple
// in-flight Process calls against the same Engine.
type SchemaCache interface {
	Get(ctx context.Context) (*SchemaContext, bool)
	Set(ctx context.Context, sc *SchemaContext)
}

const (
	classesQuery = `PREFIX owl: <http://www.w3.org/2002/07/owl#>
SELECT ?class (COUNT(?instance) AS ?instanceCount) WHERE {
  ?class a owl:Class .
  OPTIONAL { ?instance a ?class }
} GROUP BY ?class ORDER BY DESC(?instanceCount) LIMIT 25`

	propertiesQuery = `PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT ?prop ?domain ?range WHERE {
  ?prop a rdf:Property .
  OPTIONAL { ?prop rdfs:domain ?domain }
  OPTIONAL { ?prop rdfs:range ?range }
} LIMIT 30`
)

type schemaMetadata struct {
	Classes    []map[string]string `json:"classes"`
	Properties []map[string]string `json:"properties"`
	Warning    string              `json:"warning,omitempty"`
}

// schemaLoader fetches and caches the SchemaContext an Engine hands to the
// planner each iteration: a compact JSON summary of classes/properties,
// and optionally a raw Turtle dump of a named schema graph.
type schemaLoader struct {
	driver  *endpointDriver
	cache   SchemaCache
	graphURI             string
	includeFullSchemaTTL bool
	schemaTTLMaxChars    int
	maxRows              int
}

// load returns the cached SchemaContext when present, otherwise fetches it
// from the endpoint. Fetch failures degrade to an empty-with-warning
// metadata payload rather than aborting retrieval — schema context is an
// aid to the planner, not a precondition for running queries.
func (l *schemaLoader) load(ctx context.Context) *SchemaContext {
	if l.cache != nil {
		if sc, ok := l.cache.Get(ctx); ok {
			return sc
		}
	}

	sc := &SchemaContext{MetadataJSON: l.fetchMetadataJSON(ctx)}
	if l.includeFullSchemaTTL {
		sc.TTL = l.fetchTTL(ctx)
	}

	if l.cache != nil {
		l.cache.Set(ctx, sc)
	}
	return sc
}

func (l *schemaLoader) fetchMetadataJSON(ctx context.Context) string {
	classes, err := l.runSelect(ctx, classesQuery)
	if err != nil {
		return l.warningJSON(err)
	}
	properties, err := l.runSelect(ctx, propertiesQuery)
	if err != nil {
		return l.warningJSON(err)
	}

	meta := schemaMetadata{Classes: classes, Properties: properties}
	buf, err := json.Marshal(meta)
	if err != nil {
		return l.warningJSON(err)
	}
	return string(buf)
}

func (l *schemaLoader) warningJSON(err error) string {
	meta := schemaMetadata{Classes: []map[string]string{}, Properties: []map[string]string{}, Warning: err.Error()}
	buf, marshalErr := json.Marshal(meta)
	if marshalErr != nil {
		return `{"classes":[],"properties":[],"warning":"schema fetch failed"}`
	}
	return string(buf)
}

func (l *schemaLoader) runSelect(ctx context.Context, query string) ([]map[string]string, error) {
	body, err := l.driver.run(ctx, query, acceptJSON)
	if err != nil {
		return nil, fmt.Errorf("selfquery.schemaLoader.runSelect: %w", err)
	}
	parsed, err := parseSPARQLJSON(body)
	if err != nil {
		return nil, fmt.Errorf("selfquery.schemaLoader.runSelect: %w", err)
	}
	rows := make([]map[string]string, 0, len(parsed.Results.Bindings))
	for i, row := range parsed.Results.Bindings {
		if i >= l.maxRows {
			break
		}
		rows = append(rows, compactRow(row))
	}
	return rows, nil
}

func (l *schemaLoader) fetchTTL(ctx context.Context) string {
	var query string
	if l.graphURI == "" {
		query = `CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }`
	} else {
		query = fmt.Sprintf(`CONSTRUCT { ?s ?p ?o } WHERE { GRAPH <%s> { ?s ?p ?o } }`, l.graphURI)
	}

	body, err := l.driver.run(ctx, query, acceptTurtle)
	if err != nil {
		return ""
	}
	ttl := string(body)
	if l.schemaTTLMaxChars > 0 && len(ttl) > l.schemaTTLMaxChars {
		ttl = ttl[:l.schemaTTLMaxChars]
	}
	return ttl
}

package selfquery

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Message is one chat turn sent to an LLM adapter.
type Message struct {
	Role    string
	Content string
}

// ChatJSONClient is the narrow capability the planner needs from an LLM
// adapter: a JSON-mode chat completion. Any internal/llm.Adapter satisfies
// this by structural typing.
type ChatJSONClient interface {
	ChatJSON(ctx context.Context, model string, messages []Message, temperature float64, maxTokens int) (string, error)
}

var fencedJSONRe = regexp.MustCompile("^```(?:json)?\\s*|\\s*```$")

// sparqlKeywordStartRe locates the start of each bare SPARQL statement when
// the model ignores the JSON instruction and answers in plain text. It
// deliberately excludes DESCRIBE, matching the two-shape parsing
// (structured JSON, or raw SELECT/ASK/CONSTRUCT text) the planner falls
// back through. Fragments are recovered by slicing the text between
// consecutive keyword starts rather than matching a lookahead, since RE2
// has no lookahead support.
var sparqlKeywordStartRe = regexp.MustCompile(`(?i)\b(?:SELECT|ASK|CONSTRUCT)\b`)

// plannerInvoker asks an LLM to propose SPARQL candidates for the current
// iteration, enforcing a timeout distinct from the caller's context so one
// slow planner call can't silently consume the whole retrieval budget.
type plannerInvoker struct {
	client            ChatJSONClient
	timeout           time.Duration
	maxTokens         int
	queryCandidates   int
	maxRows           int
	maxTriples        int
	allowDescribe     bool
	minIterBeforeStop int
}

type queriesPayload struct {
	Queries []string `json:"queries"`
}

// generate runs one bounded planner call and returns up to
// queryCandidates SPARQL strings. On timeout or any call failure it
// returns a single fallback candidate on iteration 1 (so the very first
// iteration always has something to execute) and nothing on later
// iterations (earlier evidence is assumed to carry the loop).
func (p *plannerInvoker) generate(ctx context.Context, userQuery, modelID string, schema *SchemaContext, loopContext string, iteration int) []string {
	prompt := p.buildPrompt(userQuery, schema, loopContext, iteration)

	content, err := p.invokeWithTimeout(ctx, modelID, prompt)
	if err != nil {
		if iteration == 1 {
			return []string{fallbackQuery(userQuery, p.maxRows)}
		}
		return nil
	}

	queries := extractQueries(content)
	if len(queries) == 0 {
		if iteration == 1 {
			return []string{fallbackQuery(userQuery, p.maxRows)}
		}
		return nil
	}
	if len(queries) > p.queryCandidates {
		queries = queries[:p.queryCandidates]
	}
	return queries
}

func (p *plannerInvoker) invokeWithTimeout(ctx context.Context, modelID, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type callResult struct {
		content string
		err     error
	}
	done := make(chan callResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: fmt.Errorf("selfquery.plannerInvoker: panic during planner call: %v", r)}
			}
		}()
		content, err := p.client.ChatJSON(ctx, modelID, []Message{{Role: "user", Content: prompt}}, 0, p.maxTokens)
		done <- callResult{content: content, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("selfquery.plannerInvoker: planner call timed out after %s", p.timeout)
	case res := <-done:
		return res.content, res.err
	}
}

func (p *plannerInvoker) buildPrompt(userQuery string, schema *SchemaContext, loopContext string, iteration int) string {
	allowedTypes := "SELECT, ASK, CONSTRUCT"
	if p.allowDescribe {
		allowedTypes += ", DESCRIBE"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a SPARQL query planner. Propose up to %d candidate queries to help answer the question.\n", p.queryCandidates)
	fmt.Fprintf(&b, "Rules:\n")
	fmt.Fprintf(&b, "1. Only use these query types: %s.\n", allowedTypes)
	fmt.Fprintf(&b, "2. Every SELECT or CONSTRUCT query must include a LIMIT, no higher than %d rows / %d triples.\n", p.maxRows, p.maxTriples)
	fmt.Fprintf(&b, "3. Respond with strict JSON of the form {\"queries\": [\"...\", ...]} and nothing else.\n\n")

	fmt.Fprintf(&b, "Iteration: %d\n", iteration)
	fmt.Fprintf(&b, "Schema metadata:\n%s\n\n", schema.MetadataJSON)
	fmt.Fprintf(&b, "Question: %s\n", userQuery)

	if iteration < p.minIterBeforeStop {
		b.WriteString("\nPlanning guidance: this is an early iteration, keep exploring the schema broadly rather than narrowing too soon.\n")
	}

	if loopContext != "" {
		fmt.Fprintf(&b, "\nPrevious evidence summary:\n%s\n", loopContext)
		b.WriteString("If evidence is already strong, return an empty \"queries\" list.\n")
	}

	if schema.TTL != "" {
		fmt.Fprintf(&b, "\nSchema graph (Turtle):\n%s\n", schema.TTL)
	}

	return b.String()
}

func extractQueries(content string) []string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = fencedJSONRe.ReplaceAllString(trimmed, "")
		trimmed = strings.TrimSpace(trimmed)
	}

	var payload queriesPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
		out := make([]string, 0, len(payload.Queries))
		for _, q := range payload.Queries {
			q = strings.TrimSpace(q)
			if q != "" {
				out = append(out, q)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	return extractSPARQLFragments(content)
}

// extractSPARQLFragments finds every bare-text SPARQL statement start and
// slices the text between consecutive starts, so each fragment runs up to
// (but not including) the next statement's leading keyword.
func extractSPARQLFragments(content string) []string {
	starts := sparqlKeywordStartRe.FindAllStringIndex(content, -1)
	out := make([]string, 0, len(starts))
	for i, loc := range starts {
		end := len(content)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		q := strings.TrimSpace(content[loc[0]:end])
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}

package selfquery

import (
	"encoding/json"
	"regexp"
	"strings"
)

// textTokenRe tokenizes arbitrary result text for lexical-hit scoring.
// Kept deliberately simpler than userQueryTokenRe (no minimum length, no
// hyphens) because here every alphanumeric run should count toward recall.
var textTokenRe = regexp.MustCompile(`[a-zA-Z0-9_]+`)

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range textTokenRe.FindAllString(strings.ToLower(s), -1) {
		out[tok] = struct{}{}
	}
	return out
}

func lexicalHits(queryTokens map[string]struct{}, text string) int {
	hits := 0
	for tok := range tokenize(text) {
		if _, ok := queryTokens[tok]; ok {
			hits++
		}
	}
	return hits
}

// scoreJSONPayload scores a SELECT/ASK/DESCRIBE result. DESCRIBE results
// arrive here pre-wrapped by runRawJSON with a synthesized single binding
// and a describeScore computed from the underlying Turtle; the final score
// is the max of the row-based score and that describe score.
func scoreJSONPayload(parsed *sparqlJSONResults, userQuery string, maxRows int) (string, float64) {
	queryTokens := tokenize(userQuery)

	if len(parsed.Results.Bindings) == 0 && parsed.Boolean != nil {
		answer := "False"
		score := 0.2
		if *parsed.Boolean {
			answer = "True"
			score = 1.0
		}
		return "ASK result: " + answer, score
	}

	var lines []string
	lexHits := 0
	for i, row := range parsed.Results.Bindings {
		if i >= maxRows {
			break
		}
		compact := compactRow(row)
		buf, err := json.Marshal(compact)
		if err != nil {
			continue
		}
		line := string(buf)
		lines = append(lines, line)
		lexHits += lexicalHits(queryTokens, line)
	}

	preview := "No rows returned"
	if len(lines) > 0 {
		preview = strings.Join(lines, "\n")
	}

	score := float64(len(lines))/float64(max1(maxRows)) + float64(lexHits)*0.03
	if score > 1.0 {
		score = 1.0
	}
	if parsed.hasDescribeScore {
		score = maxFloat(score, parsed.describeScore)
	}
	return preview, score
}

// scoreConstructPayload scores a CONSTRUCT/DESCRIBE Turtle body: triple
// lines (minus blank lines and @prefix declarations) capped at maxTriples,
// plus a lexical-hit bonus against the user's question.
func scoreConstructPayload(turtle, userQuery string, maxTriples int) (string, float64) {
	queryTokens := tokenize(userQuery)

	rawLines := strings.Split(turtle, "\n")
	var lines []string
	lexHits := 0
	for _, raw := range rawLines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "@prefix") {
			continue
		}
		lines = append(lines, line)
		lexHits += lexicalHits(queryTokens, line)
		if len(lines) >= maxTriples {
			break
		}
	}

	preview := "No triples returned"
	if len(lines) > 0 {
		preview = strings.Join(lines, "\n")
	}

	score := float64(len(lines))/float64(max1(maxTriples)) + float64(lexHits)*0.03
	if score > 1.0 {
		score = 1.0
	}
	return preview, score
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

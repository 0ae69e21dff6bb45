package selfquery

import "testing"

func TestScoreJSONPayloadAskTrue(t *testing.T) {
	b := true
	parsed := &sparqlJSONResults{Boolean: &b}
	preview, score := scoreJSONPayload(parsed, "does it exist", 100)
	if score != 1.0 {
		t.Errorf("score = %v, want 1.0", score)
	}
	if preview != "ASK result: True" {
		t.Errorf("preview = %q", preview)
	}
}

func TestScoreJSONPayloadAskFalse(t *testing.T) {
	b := false
	parsed := &sparqlJSONResults{Boolean: &b}
	_, score := scoreJSONPayload(parsed, "does it exist", 100)
	if score != 0.2 {
		t.Errorf("score = %v, want 0.2", score)
	}
}

func TestScoreJSONPayloadNoRows(t *testing.T) {
	parsed := &sparqlJSONResults{}
	preview, score := scoreJSONPayload(parsed, "anything", 100)
	if preview != "No rows returned" {
		t.Errorf("preview = %q", preview)
	}
	if score != 0 {
		t.Errorf("score = %v, want 0", score)
	}
}

func TestScoreJSONPayloadLexicalHitsBoostScore(t *testing.T) {
	rows := []map[string]sparqlBinding{
		{"s": {Type: "uri", Value: "http://example.org/aardvark"}},
	}
	parsed := &sparqlJSONResults{}
	parsed.Results.Bindings = rows
	_, score := scoreJSONPayload(parsed, "tell me about the aardvark", 10)
	if score <= 0.1 {
		t.Errorf("score = %v, expected lexical hit bonus to raise it above row-fraction alone", score)
	}
}

func TestScoreJSONPayloadDescribeScoreMerge(t *testing.T) {
	parsed := &sparqlJSONResults{describeScore: 0.9, hasDescribeScore: true}
	parsed.Results.Bindings = []map[string]sparqlBinding{
		{"describe": {Type: "literal", Value: "x"}},
	}
	_, score := scoreJSONPayload(parsed, "unrelated", 100)
	if score < 0.9 {
		t.Errorf("score = %v, want at least describeScore 0.9", score)
	}
}

func TestScoreConstructPayloadStripsPrefixAndBlankLines(t *testing.T) {
	turtle := "@prefix ex: <http://example.org/> .\n\n<a> <b> <c> .\n<d> <e> <f> .\n"
	preview, score := scoreConstructPayload(turtle, "", 30)
	if preview != "<a> <b> <c> .\n<d> <e> <f> ." {
		t.Errorf("preview = %q", preview)
	}
	if score <= 0 {
		t.Errorf("score = %v, want positive", score)
	}
}

func TestScoreConstructPayloadNoTriples(t *testing.T) {
	preview, score := scoreConstructPayload("@prefix ex: <http://example.org/> .\n", "q", 30)
	if preview != "No triples returned" {
		t.Errorf("preview = %q", preview)
	}
	if score != 0 {
		t.Errorf("score = %v, want 0", score)
	}
}

package selfquery

import (
	"fmt"
	"regexp"
	"strings"
)

// userQueryTokenRe tokenizes a natural-language question for lexical
// candidate generation. It requires at least two characters and allows
// hyphenated identifiers, deliberately different from textTokenRe used by
// the scorer: candidate generation wants to skip single-character noise
// and keep compound identifiers whole, scoring wants every alphanumeric
// run counted for recall.
var userQueryTokenRe = regexp.MustCompile(`[a-zA-Z0-9_\-]{2,}`)

const (
	rdfsLabelIRI  = "<http://www.w3.org/2000/01/rdf-schema#label>"
	skosPrefLabel = "<http://www.w3.org/2004/02/skos/core#prefLabel>"
)

// lexicalCandidateGenerator builds schema-agnostic SPARQL candidates from
// the raw tokens of the user's question, for cases where the planner's
// schema-aware guesses miss.
type lexicalCandidateGenerator struct {
	matchLiterals   bool
	matchLabels     bool
	matchIRILocal   bool
	matchPredicates bool
	maxTokens       int
	maxCandidates   int
	maxRows         int
}

func tokenizeUserQuery(query string, maxTokens int) []string {
	matches := userQueryTokenRe.FindAllString(strings.ToLower(query), -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
		if len(out) >= maxTokens {
			break
		}
	}
	return out
}

func escapeLiteral(raw string) string {
	raw = strings.ReplaceAll(raw, `\`, `\\`)
	raw = strings.ReplaceAll(raw, `'`, `\'`)
	return raw
}

// generate builds up to maxCandidates SPARQL SELECT queries whose FILTER
// clauses disjoin CONTAINS checks for every token across whichever term
// positions (literal objects, rdfs:label/skos:prefLabel text, IRI local
// names, predicate local names) are enabled.
func (g *lexicalCandidateGenerator) generate(userQuery string) []string {
	tokens := tokenizeUserQuery(userQuery, g.maxTokens)
	if len(tokens) == 0 {
		return nil
	}

	var filters []string
	for _, t := range tokens {
		escaped := escapeLiteral(t)
		if g.matchLiterals {
			filters = append(filters, fmt.Sprintf("CONTAINS(LCASE(STR(?o)), LCASE('%s'))", escaped))
		}
		if g.matchLabels {
			filters = append(filters, fmt.Sprintf("CONTAINS(LCASE(STR(?label)), LCASE('%s'))", escaped))
		}
		if g.matchIRILocal {
			filters = append(filters, fmt.Sprintf("CONTAINS(LCASE(REPLACE(STR(?s), '^.*[#/]', '')), LCASE('%s'))", escaped))
			filters = append(filters, fmt.Sprintf("CONTAINS(LCASE(REPLACE(STR(?o), '^.*[#/]', '')), LCASE('%s'))", escaped))
		}
		if g.matchPredicates {
			filters = append(filters, fmt.Sprintf("CONTAINS(LCASE(REPLACE(STR(?p), '^.*[#/]', '')), LCASE('%s'))", escaped))
		}
	}
	if len(filters) == 0 {
		return nil
	}
	where := strings.Join(filters, " || ")

	q1 := fmt.Sprintf(`SELECT ?s ?p ?o ?label WHERE {
  ?s ?p ?o .
  OPTIONAL { ?s %s ?label }
  OPTIONAL { ?s %s ?label }
  FILTER(%s)
} LIMIT %d`, rdfsLabelIRI, skosPrefLabel, where, g.maxRows)

	q2 := fmt.Sprintf(`SELECT ?s ?label WHERE {
  ?s a ?type .
  OPTIONAL { ?s %s ?label }
  OPTIONAL { ?s %s ?label }
  FILTER(%s)
} LIMIT %d`, rdfsLabelIRI, skosPrefLabel, where, g.maxRows)

	candidates := []string{q1, q2}
	if len(candidates) > g.maxCandidates {
		candidates = candidates[:g.maxCandidates]
	}
	return candidates
}

// fallbackQuery is the single candidate used when the planner produces
// nothing usable on the first iteration: a broad subject/object contains
// match over the raw user query text.
func fallbackQuery(userQuery string, maxRows int) string {
	escaped := escapeLiteral(userQuery)
	return fmt.Sprintf(`SELECT ?s ?p ?o WHERE {
  ?s ?p ?o .
  FILTER(CONTAINS(LCASE(STR(?s)), LCASE('%s')) || CONTAINS(LCASE(STR(?o)), LCASE('%s')))
} LIMIT %d`, escaped, escaped, maxRows)
}

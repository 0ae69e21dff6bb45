package selfquery

import "testing"

func TestQueryType(t *testing.T) {
	cases := map[string]string{
		"SELECT ?s WHERE { ?s ?p ?o } LIMIT 10": QueryTypeSelect,
		"  ask { ?s ?p ?o }":                    QueryTypeAsk,
		"CONSTRUCT { ?s ?p ?o } WHERE {}":       QueryTypeConstruct,
		"describe <http://example.org/x>":       QueryTypeDescribe,
		"garbage":                               QueryTypeUnknown,
	}
	for query, want := range cases {
		if got := queryType(query); got != want {
			t.Errorf("queryType(%q) = %q, want %q", query, got, want)
		}
	}
}

func TestValidateQueryRejectsForbiddenKeywords(t *testing.T) {
	query := "SELECT ?s WHERE { ?s ?p ?o } LIMIT 10 ; INSERT DATA { <a> <b> <c> }"
	ok, reason := validateQuery(query, QueryTypeSelect, 8000, true)
	if ok {
		t.Fatalf("expected rejection, got ok with reason %q", reason)
	}
}

func TestValidateQueryRequiresLimitOnSelect(t *testing.T) {
	ok, reason := validateQuery("SELECT ?s WHERE { ?s ?p ?o }", QueryTypeSelect, 8000, true)
	if ok {
		t.Fatal("expected rejection for missing LIMIT")
	}
	if reason == "" {
		t.Fatal("expected a rejection reason")
	}
}

func TestValidateQueryAllowsAskWithoutLimit(t *testing.T) {
	ok, _ := validateQuery("ASK { ?s ?p ?o }", QueryTypeAsk, 8000, true)
	if !ok {
		t.Fatal("ASK should not require LIMIT")
	}
}

func TestValidateQueryRejectsDescribeWhenDisallowed(t *testing.T) {
	ok, _ := validateQuery("DESCRIBE <http://example.org/x>", QueryTypeDescribe, 8000, false)
	if ok {
		t.Fatal("DESCRIBE should be rejected when allowDescribe is false")
	}
}

func TestValidateQueryRejectsOverlongQuery(t *testing.T) {
	query := "SELECT ?s WHERE { ?s ?p ?o } LIMIT 10"
	ok, _ := validateQuery(query, QueryTypeSelect, 5, true)
	if ok {
		t.Fatal("expected rejection for exceeding max query length")
	}
}

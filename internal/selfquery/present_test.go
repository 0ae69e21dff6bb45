package selfquery

import "testing"

func TestPresentHidesSetupStages(t *testing.T) {
	p := ProgressPresenter{}
	status := p.Present(ProgressEvent{Stage: StageSchemaMetadata, Payload: map[string]any{}})
	if !status.Hidden {
		t.Error("schema_metadata stage should be hidden")
	}

	status = p.Present(ProgressEvent{Stage: StageIterationStart, Payload: map[string]any{}})
	if status.Hidden {
		t.Error("iteration_start stage should not be hidden")
	}
}

func TestPresentBuildsQueryChips(t *testing.T) {
	p := ProgressPresenter{}
	status := p.Present(ProgressEvent{
		Stage: StageIterationCandidates,
		Payload: map[string]any{
			"query_previews": []string{"SELECT ?s WHERE { ?s ?p ?o } LIMIT 10"},
		},
	})
	if len(status.QueryChips) != 1 {
		t.Fatalf("len(QueryChips) = %d, want 1", len(status.QueryChips))
	}
}

func TestShortTruncatesLongValues(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "x"
	}
	got := short(long, 10)
	if len(got) != 13 {
		t.Errorf("len(got) = %d, want 13 (10 chars + ...)", len(got))
	}
}

func TestShortCollapsesWhitespace(t *testing.T) {
	got := short("SELECT   ?s\nWHERE { ?s ?p ?o }", 200)
	if got != "SELECT ?s WHERE { ?s ?p ?o }" {
		t.Errorf("got = %q", got)
	}
}

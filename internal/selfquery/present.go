package selfquery

import (
	"fmt"
	"regexp"
	"strings"
)

// hiddenStages are setup stages a chat-style frontend typically wants to
// fold into a single "thinking" indicator instead of showing verbatim.
var hiddenStages = map[string]struct{}{
	StageStart:          {},
	StageSchemaMetadata: {},
	StageSchemaTTL:      {},
}

// PresentedStatus is a UI-ready rendering of one ProgressEvent: a short
// human description, whether the stage should be folded into a generic
// "thinking" indicator, and compact one-line previews of the queries
// being run, for a frontend that wants chips/badges instead of the raw
// event payload.
type PresentedStatus struct {
	Description string
	Hidden      bool
	QueryChips  []string
}

// ProgressPresenter turns raw ProgressEvents into a form meant for display,
// so an HTTP/chat frontend doesn't need to re-derive chip text or hidden-
// stage logic from the wire payload itself.
type ProgressPresenter struct{}

func (ProgressPresenter) Present(ev ProgressEvent) PresentedStatus {
	_, hidden := hiddenStages[ev.Stage]

	status := PresentedStatus{
		Description: ev.Description,
		Hidden:      hidden,
	}

	if previews, ok := ev.Payload["query_previews"].([]string); ok {
		status.QueryChips = toQueryChips(previews)
	}

	return status
}

func toQueryChips(previews []string) []string {
	const maxChips = 4
	chips := make([]string, 0, len(previews))
	for _, p := range previews {
		chips = append(chips, compactQueryPreview(p))
		if len(chips) >= maxChips {
			break
		}
	}
	return chips
}

var chipKeywordRe = regexp.MustCompile(`(?i)\b(?:SELECT|ASK|CONSTRUCT|DESCRIBE)\b`)

// compactQueryPreview collapses whitespace and truncates to a single
// display-friendly line, starting at the query's leading SPARQL keyword
// when one can be found.
func compactQueryPreview(query string) string {
	if loc := chipKeywordRe.FindStringIndex(query); loc != nil {
		query = query[loc[0]:]
	}
	return short(query, 120)
}

// short collapses internal whitespace runs to single spaces and truncates
// to maxLen, appending "..." when truncated.
func short(value string, maxLen int) string {
	collapsed := strings.Join(strings.Fields(value), " ")
	if len(collapsed) <= maxLen {
		return collapsed
	}
	return fmt.Sprintf("%s...", collapsed[:maxLen])
}

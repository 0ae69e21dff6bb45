package selfquery

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	queryTypeRe    = regexp.MustCompile(`(?i)^\s*(SELECT|ASK|CONSTRUCT|DESCRIBE)\b`)
	forbiddenRe    = regexp.MustCompile(`(?i)\b(INSERT|DELETE|DROP|CLEAR|CREATE|LOAD|COPY|MOVE|ADD|SERVICE|WITH|USING|VALUES\s*\{\s*<http)\b`)
)

// queryType returns the upper-cased leading SPARQL keyword, or
// QueryTypeUnknown if none matches.
func queryType(query string) string {
	m := queryTypeRe.FindStringSubmatch(query)
	if m == nil {
		return QueryTypeUnknown
	}
	return strings.ToUpper(m[1])
}

// validateQuery enforces the read-only whitelist: only SELECT/ASK/CONSTRUCT
// (and DESCRIBE when allowed) pass, forbidden write/graph-management
// keywords are rejected outright, and row- or graph-returning queries must
// carry an explicit LIMIT.
func validateQuery(query string, qType string, maxQueryChars int, allowDescribe bool) (bool, string) {
	if len(query) > maxQueryChars {
		return false, fmt.Sprintf("query exceeds maximum length of %d characters", maxQueryChars)
	}

	allowed := map[string]struct{}{
		QueryTypeSelect:    {},
		QueryTypeAsk:       {},
		QueryTypeConstruct: {},
	}
	if allowDescribe {
		allowed[QueryTypeDescribe] = struct{}{}
	}
	if _, ok := allowed[qType]; !ok {
		names := make([]string, 0, len(allowed))
		for k := range allowed {
			names = append(names, k)
		}
		sort.Strings(names)
		return false, fmt.Sprintf("only %s are allowed", strings.Join(names, ", "))
	}

	if forbiddenRe.MatchString(query) {
		return false, "Query contains forbidden operation"
	}

	if (qType == QueryTypeSelect || qType == QueryTypeConstruct) && !strings.Contains(strings.ToLower(query), "limit") {
		return false, "Row/graph returning query must include LIMIT"
	}

	return true, ""
}

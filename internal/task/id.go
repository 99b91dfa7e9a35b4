package task

import (
	"fmt"
	"slices"
	"strings"
)

// ImportTaskID is import:{user}:{query}. The query is kept verbatim.
func ImportTaskID(userID, query string) string {
	return fmt.Sprintf("import:%s:%s", userID, query)
}

// AnalysisTaskID is analysis:{user}:{types}:{limit}, types sorted and de-duplicated
// so that the same request in any order maps to the same task.
func AnalysisTaskID(userID string, types []AnalysisType, limit int) string {
	return fmt.Sprintf("analysis:%s:%s:%d", userID, strings.Join(NormalizeTypes(types), ","), limit)
}

// NormalizeTypes returns the sorted, de-duplicated string form of types
func NormalizeTypes(types []AnalysisType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

package storage

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/career-assistant/shared/pagination"
)

// keysetQuery composes the listing queries of every resource:
//
//	<base> WHERE <conditions> [AND <cursor predicate>]
//	ORDER BY <time> DESC, <id> DESC LIMIT limit+1
//
// Placeholders are written as "?" and rebound by the caller.
type keysetQuery struct {
	base       string
	timeColumn string
	idColumn   string
	conditions []string
	args       []any
	cursor     *pagination.Cursor
	ascending  bool
	limit      int
}

func newKeysetQuery(base, timeColumn, idColumn string) *keysetQuery {
	return &keysetQuery{
		base:       base,
		timeColumn: timeColumn,
		idColumn:   idColumn,
	}
}

// Where adds a condition joined with AND
func (q *keysetQuery) Where(condition string, args ...any) *keysetQuery {
	q.conditions = append(q.conditions, condition)
	q.args = append(q.args, args...)
	return q
}

// WhereIn adds "column IN (...)"; an empty set adds nothing
func (q *keysetQuery) WhereIn(column string, values []string) *keysetQuery {
	if len(values) == 0 {
		return q
	}
	return q.Where(column+" IN (?)", values)
}

// After continues past the cursor towards older rows
func (q *keysetQuery) After(cursor *pagination.Cursor) *keysetQuery {
	q.cursor = cursor
	q.ascending = false
	return q
}

// Since walks from the cursor towards newer rows, oldest first
func (q *keysetQuery) Since(cursor *pagination.Cursor) *keysetQuery {
	q.cursor = cursor
	q.ascending = true
	return q
}

// Limit sets the page size; the query fetches one extra row
func (q *keysetQuery) Limit(limit int) *keysetQuery {
	q.limit = limit
	return q
}

// Build returns the query with "?" placeholders and IN lists expanded
func (q *keysetQuery) Build() (string, []any, error) {
	conditions := append([]string(nil), q.conditions...)
	args := append([]any(nil), q.args...)

	if q.cursor != nil {
		op := "<"
		if q.ascending {
			op = ">"
		}
		conditions = append(conditions, fmt.Sprintf("(%[1]s %[3]s ? OR (%[1]s = ? AND %[2]s %[3]s ?))", q.timeColumn, q.idColumn, op))
		ts := q.cursor.Timestamp.UTC()
		args = append(args, ts, ts, q.cursor.ID)
	}

	var sb strings.Builder
	sb.WriteString(q.base)
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}

	direction := "DESC"
	if q.ascending {
		direction = "ASC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s, %s %s LIMIT ?", q.timeColumn, direction, q.idColumn, direction)
	args = append(args, q.limit+1)

	query, args, err := sqlx.In(sb.String(), args...)
	if err != nil {
		return "", nil, fmt.Errorf("failed to expand query: %w", err)
	}
	return query, args, nil
}

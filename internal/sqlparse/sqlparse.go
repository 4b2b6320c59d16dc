// Package sqlparse provides textual parsing of SELECT statements: resolving a
// column name to its position in the column list, and extracting the table
// name for use in generated UPDATE statements.
//
// Resolution is purely textual, by design: the data-source drivers are never
// consulted. Known limitation: the parser splits the column list on commas
// and locates clauses by substring, so subqueries, computed columns, and
// function calls with commas will confuse it. Selection statements must keep
// a flat column list.
package sqlparse

import (
	"fmt"
	"strings"
)

// DefaultTable is the placeholder table name used when TableName cannot
// extract one from the selection statement.
const DefaultTable = "table_name"

// Columns returns the trimmed column names between SELECT and FROM.
// It fails when the statement lacks a SELECT or FROM clause; both are
// configuration errors that must be fixed before a run.
func Columns(stmt string) ([]string, error) {
	upper := strings.ToUpper(stmt)
	selPos := strings.Index(upper, "SELECT ")
	if selPos < 0 {
		return nil, fmt.Errorf("selection statement has no SELECT clause: %q", stmt)
	}
	fromPos := strings.Index(upper, " FROM ")
	if fromPos < 0 || fromPos < selPos {
		return nil, fmt.Errorf("selection statement has no FROM clause: %q", stmt)
	}

	raw := strings.Split(stmt[selPos+len("SELECT "):fromPos], ",")
	cols := make([]string, 0, len(raw))
	for _, c := range raw {
		cols = append(cols, strings.TrimSpace(c))
	}
	return cols, nil
}

// ColumnIndex returns the zero-based position of field in the statement's
// column list. Matching is case-insensitive on the exact column name or on a
// trailing ".field" qualifier (e.g. "t.zip_code" matches "zip_code").
func ColumnIndex(stmt, field string) (int, error) {
	cols, err := Columns(stmt)
	if err != nil {
		return 0, err
	}
	want := strings.ToLower(field)
	for i, c := range cols {
		lc := strings.ToLower(c)
		if lc == want || strings.HasSuffix(lc, "."+want) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("field %q not found in selection column list %q", field, strings.Join(cols, ", "))
}

// TableName extracts the token sequence between FROM and the next
// WHERE/LIMIT clause (or end of statement). The result is uppercased, as the
// scan works on the uppercased statement. When no FROM clause is present it
// falls back to DefaultTable rather than failing; generation continues with
// the placeholder name.
func TableName(stmt string) string {
	upper := strings.ToUpper(strings.TrimSpace(stmt))

	fromPos := strings.Index(upper, " FROM ")
	if fromPos < 0 {
		return DefaultTable
	}
	after := upper[fromPos+len(" FROM "):]
	if p := strings.Index(after, " WHERE "); p >= 0 {
		return strings.TrimSpace(after[:p])
	}
	if p := strings.Index(after, " LIMIT "); p >= 0 {
		return strings.TrimSpace(after[:p])
	}
	return strings.TrimSpace(after)
}

// Package sqllint performs an offline syntactic sanity check of generated
// statements before they are replayed against the data source. It is a lint,
// not a parser: every check is necessary and none is sufficient, so a passing
// statement can still fail at execution time (wrong table, wrong types).
package sqllint

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmpty is returned for empty or whitespace-only statements.
var ErrEmpty = errors.New("statement is empty")

// Check validates stmt and returns nil when every check passes, or an error
// describing the first failing check. The checks, in order:
//
//  1. non-empty statement,
//  2. statement begins with UPDATE, INSERT, or DELETE,
//  3. UPDATE contains both " SET " and " WHERE ",
//  4. INSERT contains " VALUES " or " SELECT ",
//  5. DELETE contains " FROM ",
//  6. single and double quotes are balanced,
//  7. parentheses are balanced and never close before opening.
func Check(stmt string) error {
	s := strings.ToUpper(strings.TrimSpace(stmt))
	if s == "" {
		return ErrEmpty
	}

	switch {
	case strings.HasPrefix(s, "UPDATE"):
		if !strings.Contains(s, " SET ") || !strings.Contains(s, " WHERE ") {
			return errors.New("UPDATE requires both SET and WHERE clauses")
		}
	case strings.HasPrefix(s, "INSERT"):
		if !strings.Contains(s, " VALUES ") && !strings.Contains(s, " SELECT ") {
			return errors.New("INSERT requires a VALUES or SELECT clause")
		}
	case strings.HasPrefix(s, "DELETE"):
		if !strings.Contains(s, " FROM ") {
			return errors.New("DELETE requires a FROM clause")
		}
	default:
		verb := s
		if i := strings.IndexByte(verb, ' '); i > 0 {
			verb = verb[:i]
		}
		return fmt.Errorf("statement verb %q is not allowed (want UPDATE, INSERT, or DELETE)", verb)
	}

	// Quote balance. A quote character only toggles its own kind when not
	// inside the other kind.
	var inSingle, inDouble bool
	for _, c := range s {
		switch c {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		}
	}
	if inSingle {
		return errors.New("unbalanced single quotes")
	}
	if inDouble {
		return errors.New("unbalanced double quotes")
	}

	// Parenthesis balance: the running count must never go negative and must
	// end at zero.
	depth := 0
	for _, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return errors.New("closing parenthesis before any opening parenthesis")
			}
		}
	}
	if depth != 0 {
		return errors.New("unbalanced parentheses")
	}

	return nil
}

// Valid reports whether stmt passes Check.
func Valid(stmt string) bool { return Check(stmt) == nil }

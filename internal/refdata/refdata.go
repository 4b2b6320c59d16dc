// Package refdata holds the static ZIP-to-county reference table used by the
// lookup-repair strategies. The table maps a 5-digit ZIP code to the
// administrative county code (2-digit), the county FIPS code (3-digit), the
// rate division, and the county display name.
//
// The table is immutable and process-wide. It is built lazily on first use
// and lives for the lifetime of the process; callers that need a different
// mapping (tests, mainly) can construct a Table directly.
package refdata

import (
	"strings"
	"sync"
)

// Entry describes the canonical county data for one ZIP code.
type Entry struct {
	// CountyCode is the 2-digit state county code (e.g. "17").
	CountyCode string

	// FIPSCode is the 3-digit county FIPS code (e.g. "033").
	FIPSCode string

	// Division is the single-letter rate division ("A" or "B").
	Division string

	// CountyName is the human-readable county name.
	CountyName string
}

// Table maps a normalized 5-digit ZIP code to its county Entry.
type Table map[string]Entry

var (
	loadOnce sync.Once
	loaded   Table
)

// Load returns the built-in ZIP→county table. The table is built once and
// shared; callers must treat it as read-only.
func Load() Table {
	loadOnce.Do(func() {
		loaded = buildTable()
	})
	return loaded
}

// Lookup normalizes zip (see NormalizeZip) and returns the matching Entry.
// The second return value reports whether the ZIP is present in the table.
func (t Table) Lookup(zip string) (Entry, bool) {
	e, ok := t[NormalizeZip(zip)]
	return e, ok
}

// NormalizeZip reduces a possibly zip+4-style value to its 5-character form:
// the part before a hyphen if one is present, otherwise the first five
// characters, otherwise the whole value when shorter than five characters.
func NormalizeZip(zip string) string {
	if i := strings.IndexByte(zip, '-'); i >= 0 {
		return zip[:i]
	}
	if len(zip) >= 5 {
		return zip[:5]
	}
	return zip
}

// buildTable expands the compact zip:county:division dataset into a Table,
// joining each row against the county code table for FIPS code and name.
func buildTable() Table {
	t := make(Table, len(zipData))
	for _, raw := range zipData {
		parts := strings.Split(raw, ":")
		if len(parts) != 3 {
			continue
		}
		e := Entry{
			CountyCode: parts[1],
			Division:   parts[2],
		}
		if c, ok := counties[e.CountyCode]; ok {
			e.FIPSCode = c.fips
			e.CountyName = c.name
		}
		t[parts[0]] = e
	}
	return t
}

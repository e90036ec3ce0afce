package core

import "slices"

// Expect is the set of acceptable values for one column.
// A single-element Expect is an equality check.
type Expect []string

// Is expects a column to equal value exactly.
func Is(value string) Expect {
	return Expect{value}
}

// OneOf expects a column to equal any of values.
func OneOf(values ...string) Expect {
	return Expect(values)
}

// Accepts reports whether value is one of the expected values.
func (e Expect) Accepts(value string) bool {
	return slices.Contains(e, value)
}

// Predicate maps column names to their expected values. A row matches when
// every configured column is present and holds an accepted value.
// All conditions are combined with AND logic.
type Predicate map[string]Expect

// Match reports whether row satisfies every condition.
// A missing column fails the row; Match never panics on unknown columns.
func (p Predicate) Match(row Row) bool {
	for column, expect := range p {
		value, ok := row[column]
		if !ok || !expect.Accepts(value) {
			return false
		}
	}
	return true
}

// HasColumns reports whether every named column is present in row.
func (r Row) HasColumns(columns []string) bool {
	for _, c := range columns {
		if _, ok := r[c]; !ok {
			return false
		}
	}
	return true
}

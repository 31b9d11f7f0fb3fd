// Package transform holds the per-row normalization rules applied to
// decoded DBF rows. Every rule is a pure function of a single row; rules are
// composed into a Chain and applied in order, since later rules read fields
// written by earlier ones.
package transform

import (
	godbf "github.com/recruitdata/go-dbf"
)

// Rule mutates one row in place.
type Rule interface {
	Name() string
	Apply(row godbf.Row)
}

// Chain is an ordered list of rules.
type Chain []Rule

// Apply runs every rule over row and returns it.
func (c Chain) Apply(row godbf.Row) godbf.Row {
	for _, r := range c {
		if r == nil {
			continue
		}
		r.Apply(row)
	}
	return row
}

// Names lists the rule names in order.
func (c Chain) Names() []string {
	names := make([]string, 0, len(c))
	for _, r := range c {
		if r == nil {
			continue
		}
		names = append(names, r.Name())
	}
	return names
}

// castInt returns the integer form of v, or null when v is null.
func castInt(v godbf.Value) godbf.Value {
	if v.IsNull() {
		return godbf.NullValue()
	}
	return godbf.IntValue(v.ToInt())
}

// Package mapper renames decoded fields to output columns.
package mapper

import (
	"github.com/pkg/errors"
	godbf "github.com/recruitdata/go-dbf"
	"gopkg.in/yaml.v3"
)

// Entry copies the value of From into every target in To. One target is a
// rename; several targets fan the same value out.
type Entry struct {
	From string   `yaml:"from"`
	To   []string `yaml:"to"`
}

// UnmarshalYAML accepts `to` as a single name or a list of names.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		From string    `yaml:"from"`
		To   yaml.Node `yaml:"to"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	e.From = raw.From
	switch raw.To.Kind {
	case yaml.ScalarNode:
		e.To = []string{raw.To.Value}
	case yaml.SequenceNode:
		e.To = nil
		if err := raw.To.Decode(&e.To); err != nil {
			return errors.Wrapf(err, "decoding targets of '%s'", e.From)
		}
	case 0:
		e.To = []string{raw.From}
	default:
		return errors.Errorf("line %d: 'to' must be a name or a list of names", raw.To.Line)
	}
	return nil
}

// Mapper applies an ordered list of entries to rows.
type Mapper struct {
	entries []Entry
	columns []string
}

// New validates entries and returns a Mapper. An empty entry list yields an
// identity mapper.
func New(entries []Entry) (*Mapper, error) {
	m := &Mapper{}
	seen := make(map[string]bool)
	for i, e := range entries {
		if e.From == "" {
			return nil, errors.Errorf("map entry %d has no source field", i)
		}
		if len(e.To) == 0 {
			return nil, errors.Errorf("map entry '%s' has no target", e.From)
		}
		for _, to := range e.To {
			if to == "" {
				return nil, errors.Errorf("map entry '%s' has an empty target", e.From)
			}
			if !seen[to] {
				seen[to] = true
				m.columns = append(m.columns, to)
			}
		}
		m.entries = append(m.entries, Entry{From: e.From, To: append([]string(nil), e.To...)})
	}
	return m, nil
}

// Identity reports whether the mapper passes rows through unchanged.
func (m *Mapper) Identity() bool { return len(m.entries) == 0 }

// Columns returns the target column names in declaration order. It is empty
// for an identity mapper.
func (m *Mapper) Columns() []string { return append([]string(nil), m.columns...) }

// Map builds the output row. Sources missing from row map to null.
func (m *Mapper) Map(row godbf.Row) godbf.Row {
	if m.Identity() {
		return row
	}
	out := make(godbf.Row, len(m.columns))
	for _, e := range m.entries {
		v := row.Get(e.From)
		for _, to := range e.To {
			out[to] = v
		}
	}
	return out
}

// Package sqlgen renders rows as MySQL style INSERT statements.
package sqlgen

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
	godbf "github.com/recruitdata/go-dbf"
)

// Generator writes INSERT statements for a fixed table and column list.
// BatchSize rows share one statement; a BatchSize of 1 or less writes one
// statement per row.
type Generator struct {
	Table     string
	Columns   []string
	BatchSize int
}

// QuoteIdent quotes a table or column name with backticks.
func QuoteIdent(name string) string {
	return "`" + strings.Replace(name, "`", "``", -1) + "`"
}

// Literal renders a value as a SQL literal: NULL, a bare number or a single
// quoted string with embedded quotes doubled.
func Literal(v godbf.Value) string {
	switch v.Kind {
	case godbf.KindNull:
		return "NULL"
	case godbf.KindInt, godbf.KindReal, godbf.KindBool:
		return v.String()
	}
	return "'" + strings.Replace(v.Str, "'", "''", -1) + "'"
}

func (g *Generator) prefix() string {
	cols := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		cols[i] = QuoteIdent(c)
	}
	return "INSERT INTO " + QuoteIdent(g.Table) + " (" + strings.Join(cols, ",") + ") VALUES"
}

func (g *Generator) tuple(row godbf.Row) string {
	vals := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		vals[i] = Literal(row.Get(c))
	}
	return "(" + strings.Join(vals, ",") + ")"
}

// Write renders rows to w. Nothing is written for an empty row set.
func (g *Generator) Write(w io.Writer, rows []godbf.Row) error {
	if g.Table == "" {
		return errors.New("no table name")
	}
	if len(g.Columns) == 0 {
		return errors.New("no columns")
	}
	bw := bufio.NewWriter(w)
	prefix := g.prefix()
	if g.BatchSize <= 1 {
		for _, r := range rows {
			bw.WriteString(prefix)
			bw.WriteString(" ")
			bw.WriteString(g.tuple(r))
			bw.WriteString(";\n")
		}
		return errors.Wrap(bw.Flush(), "writing statements")
	}
	for start := 0; start < len(rows); start += g.BatchSize {
		end := start + g.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		bw.WriteString(prefix)
		bw.WriteString("\n")
		for i, r := range rows[start:end] {
			if i > 0 {
				bw.WriteString(",\n")
			}
			bw.WriteString(g.tuple(r))
		}
		bw.WriteString(";\n\n")
	}
	return errors.Wrap(bw.Flush(), "writing statements")
}

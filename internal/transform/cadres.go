package transform

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	godbf "github.com/recruitdata/go-dbf"
)

const (
	General   = "GG"
	Technical = "TT"
	Both      = "GT"
)

var cadrePattern = regexp.MustCompile(`(?i)([A-Z]+)\s*\(\s*(\d+)\s*\)`)

// CadreCounts maps cadre codes to counts and remembers the order in which
// codes first appeared.
type CadreCounts struct {
	codes  []string
	counts map[string]int64
}

func (c *CadreCounts) set(code string, n int64) {
	if c.counts == nil {
		c.counts = make(map[string]int64)
	}
	if _, ok := c.counts[code]; !ok {
		c.codes = append(c.codes, code)
	}
	c.counts[code] = n
}

func (c CadreCounts) Len() int { return len(c.codes) }

func (c CadreCounts) Get(code string) (int64, bool) {
	n, ok := c.counts[code]
	return n, ok
}

func (c CadreCounts) Codes() []string { return append([]string(nil), c.codes...) }

// JSON renders the counts as an object in first-seen order; no codes render
// as {}.
func (c CadreCounts) JSON() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, code := range c.codes {
		if i > 0 {
			sb.WriteByte(',')
		}
		k, _ := json.Marshal(code)
		sb.Write(k)
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatInt(c.counts[code], 10))
	}
	sb.WriteByte('}')
	return sb.String()
}

// ParseTechnicalPassedCadres parses text like "ABC(5), XYZ(12)". Tokens that
// do not look like CODE(N) are ignored; a repeated code keeps the last count.
func ParseTechnicalPassedCadres(s string) CadreCounts {
	var out CadreCounts
	if strings.TrimSpace(s) == "" {
		return out
	}
	for _, tok := range strings.Split(s, ",") {
		m := cadrePattern.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		out.set(strings.ToUpper(strings.TrimSpace(m[1])), godbf.TextValue(m[2]).ToInt())
	}
	return out
}

// TechnicalPassedCadres replaces the free-text passed-cadre list with its
// JSON object form.
type TechnicalPassedCadres struct {
	Field  string
	Target string
}

func (TechnicalPassedCadres) Name() string { return "technical_passed_cadres" }

func (t TechnicalPassedCadres) Apply(row godbf.Row) {
	row[t.Target] = godbf.TextValue(ParseTechnicalPassedCadres(row.Get(t.Field).String()).JSON())
}

// NormalizeCategory upper-cases the category code and expands the short
// forms T and GN.
func NormalizeCategory(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "T":
		return Technical
	case "GN":
		return General
	}
	return s
}

// CadreCategory normalizes the letter based cadre category in place.
type CadreCategory struct {
	Field string
}

func (CadreCategory) Name() string { return "cadre_category" }

func (c CadreCategory) Apply(row godbf.Row) {
	row[c.Field] = godbf.TextValue(NormalizeCategory(row.Get(c.Field).String()))
}

// MeritPositions casts the merit positions to integers and nulls the one
// that does not apply to the (already normalized) category.
type MeritPositions struct {
	Category  string
	General   string
	Technical string
}

func (MeritPositions) Name() string { return "merit_positions" }

func (m MeritPositions) Apply(row godbf.Row) {
	gen, tech := castInt(row.Get(m.General)), castInt(row.Get(m.Technical))
	switch row.Get(m.Category).String() {
	case General:
		tech = godbf.NullValue()
	case Technical:
		gen = godbf.NullValue()
	}
	row[m.General] = gen
	row[m.Technical] = tech
}

// CadreType derives the category from the numeric cadre type code. It must
// not be combined with CadreCategory on the same dataset.
type CadreType struct {
	Source string
	Target string
}

func (CadreType) Name() string { return "cadre_type" }

func (c CadreType) Apply(row godbf.Row) {
	row[c.Target] = CategoryForType(row.Get(c.Source))
}

// CategoryForType maps 1, 2 and 3 to GG, TT and GT. Anything else is null.
func CategoryForType(v godbf.Value) godbf.Value {
	n, ok := v.Numeric()
	if !ok {
		return godbf.NullValue()
	}
	switch n {
	case 1:
		return godbf.TextValue(General)
	case 2:
		return godbf.TextValue(Technical)
	case 3:
		return godbf.TextValue(Both)
	}
	return godbf.NullValue()
}

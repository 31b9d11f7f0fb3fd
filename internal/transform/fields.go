package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	godbf "github.com/recruitdata/go-dbf"
)

var genders = map[string]string{
	"1": "Male",
	"2": "Female",
	"3": "Third Gender",
}

// GenderLabel translates a gender code; unknown codes pass through.
func GenderLabel(code string) string {
	code = strings.TrimSpace(code)
	if label, ok := genders[code]; ok {
		return label
	}
	return code
}

type Gender struct {
	Field string
}

func (Gender) Name() string { return "gender" }

func (g Gender) Apply(row godbf.Row) {
	row[g.Field] = godbf.TextValue(GenderLabel(row.Get(g.Field).String()))
}

var ddmmyy = regexp.MustCompile(`^\d{6}$`)

// DDMMYYToISO converts a six digit day-month-year date to YYYY-MM-DD. Years
// up to 29 are 20xx, the rest 19xx. It reports false for malformed text and
// impossible dates.
func DDMMYYToISO(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !ddmmyy.MatchString(s) {
		return "", false
	}
	dd, _ := strconv.Atoi(s[0:2])
	mm, _ := strconv.Atoi(s[2:4])
	yy, _ := strconv.Atoi(s[4:6])
	year := 1900 + yy
	if yy <= 29 {
		year = 2000 + yy
	}
	if mm < 1 || mm > 12 || dd < 1 {
		return "", false
	}
	d := time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	if d.Day() != dd || int(d.Month()) != mm {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, mm, dd), true
}

// DDMMYYDate writes the ISO form of Source into Target, or null when the
// source is blank or not a valid date.
type DDMMYYDate struct {
	Source string
	Target string
}

func (DDMMYYDate) Name() string { return "ddmmyy_date" }

func (d DDMMYYDate) Apply(row godbf.Row) {
	iso, ok := DDMMYYToISO(row.Get(d.Source).String())
	if !ok {
		row[d.Target] = godbf.NullValue()
		return
	}
	row[d.Target] = godbf.TextValue(iso)
}

// Integers casts numeric values to integers; blank and non-numeric values
// become null.
type Integers struct {
	Fields []string
}

func (Integers) Name() string { return "integers" }

func (n Integers) Apply(row godbf.Row) {
	for _, f := range n.Fields {
		if i, ok := row.Get(f).Numeric(); ok {
			row[f] = godbf.IntValue(i)
		} else {
			row[f] = godbf.NullValue()
		}
	}
}

// IntegersOrZero casts values to integers with 0 for blank or missing
// values.
type IntegersOrZero struct {
	Fields []string
}

func (IntegersOrZero) Name() string { return "integers_or_zero" }

func (n IntegersOrZero) Apply(row godbf.Row) {
	for _, f := range n.Fields {
		row[f] = godbf.IntValue(row.Get(f).ToInt())
	}
}

// LeadingIntegers casts values by their leading digits ("12abc" is 12).
// Results of 0, including blank and non-numeric text, become null.
type LeadingIntegers struct {
	Fields []string
}

func (LeadingIntegers) Name() string { return "leading_integers" }

func (n LeadingIntegers) Apply(row godbf.Row) {
	for _, f := range n.Fields {
		if i := row.Get(f).ToInt(); i != 0 {
			row[f] = godbf.IntValue(i)
		} else {
			row[f] = godbf.NullValue()
		}
	}
}

// NullIfBlank trims text values and turns empty ones into null.
type NullIfBlank struct {
	Fields []string
}

func (NullIfBlank) Name() string { return "null_if_blank" }

func (n NullIfBlank) Apply(row godbf.Row) {
	for _, f := range n.Fields {
		v := row.Get(f)
		if v.Kind != godbf.KindText {
			continue
		}
		if s := strings.TrimSpace(v.Str); s != "" {
			row[f] = godbf.TextValue(s)
		} else {
			row[f] = godbf.NullValue()
		}
	}
}

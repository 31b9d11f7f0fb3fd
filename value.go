package godbf

import (
	"math"
	"strconv"
	"strings"
)

// Kind tags the dynamic type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindInt
	KindReal
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindBool:
		return "bool"
	}
	return "invalid"
}

// Value is a decoded or derived field value. The zero Value is null.
type Value struct {
	Kind Kind
	Str  string
	Int  int64
	Real float64
	Bool bool
}

func NullValue() Value          { return Value{} }
func TextValue(s string) Value  { return Value{Kind: KindText, Str: s} }
func IntValue(i int64) Value    { return Value{Kind: KindInt, Int: i} }
func RealValue(f float64) Value { return Value{Kind: KindReal, Real: f} }
func BoolValue(b bool) Value    { return Value{Kind: KindBool, Bool: b} }

func (v Value) IsNull() bool   { return v.Kind == KindNull }
func (v Value) IsNumber() bool { return v.Kind == KindInt || v.Kind == KindReal }

// String renders the value the way a text column would hold it. Null renders
// as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindReal:
		return strconv.FormatFloat(v.Real, 'f', -1, 64)
	case KindBool:
		if v.Bool {
			return "1"
		}
		return "0"
	}
	return ""
}

// Interface returns the value as a plain Go value (nil, string, int64,
// float64 or bool).
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindText:
		return v.Str
	case KindInt:
		return v.Int
	case KindReal:
		return v.Real
	case KindBool:
		return v.Bool
	}
	return nil
}

// ToInt casts the value to an integer with loose semantics: text yields its
// leading integer (0 if there is none), reals are truncated and null is 0.
func (v Value) ToInt() int64 {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindReal:
		return truncate(v.Real)
	case KindBool:
		if v.Bool {
			return 1
		}
		return 0
	case KindText:
		return leadingInt(v.Str)
	}
	return 0
}

// Numeric reports whether the value holds a number (or numeric text) and
// returns it truncated to an integer.
func (v Value) Numeric() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindReal:
		return truncate(v.Real), true
	case KindText:
		s := strings.TrimSpace(v.Str)
		if s == "" || strings.ContainsAny(s, "xXnNiI_") {
			return 0, false
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false
		}
		return truncate(f), true
	}
	return 0, false
}

func truncate(f float64) int64 {
	if math.IsNaN(f) {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}

func leadingInt(s string) int64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	i, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		// out of range, saturate like a float cast would
		if s[0] == '-' {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return i
}

// Row maps field names to values.
type Row map[string]Value

// Get returns the named value, null if the field is absent.
func (r Row) Get(name string) Value {
	return r[name]
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Select restricts the row to the given names. Names missing from the row
// are set to null; fields not listed are dropped.
func (r Row) Select(names []string) Row {
	out := make(Row, len(names))
	for _, name := range names {
		out[name] = r[name]
	}
	return out
}

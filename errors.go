package godbf

import (
	"fmt"
)

// FatalIOError is returned when the source cannot be opened or read. It
// aborts the whole run.
type FatalIOError struct {
	Path string
	Err  error
}

func (e *FatalIOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("dbf: reading source: %v", e.Err)
	}
	return fmt.Sprintf("dbf: reading '%s': %v", e.Path, e.Err)
}

// Cause lets errors.Cause reach the underlying io error.
func (e *FatalIOError) Cause() error { return e.Err }

// FormatError is returned when the file is too short to hold a header.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err == nil {
		return "dbf: " + e.Reason
	}
	return fmt.Sprintf("dbf: %s: %v", e.Reason, e.Err)
}

func (e *FormatError) Cause() error { return e.Err }

// AnomalyKind classifies a recoverable per-record problem.
type AnomalyKind int

const (
	TruncatedRecord AnomalyKind = iota + 1
	InvalidText
	ShortField
)

func (k AnomalyKind) String() string {
	switch k {
	case TruncatedRecord:
		return "truncated record"
	case InvalidText:
		return "invalid text bytes dropped"
	case ShortField:
		return "short binary field"
	}
	return "unknown anomaly"
}

// Anomaly is a recovered decode problem. The affected value is replaced by
// null or a best-effort value and the scan continues.
type Anomaly struct {
	Kind   AnomalyKind
	Record uint32
	Field  string
}

func (a Anomaly) String() string {
	if a.Field == "" {
		return fmt.Sprintf("record %d: %v", a.Record, a.Kind)
	}
	return fmt.Sprintf("record %d field %s: %v", a.Record, a.Field, a.Kind)
}

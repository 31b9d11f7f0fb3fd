package godbf

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// trailing padding stripped from character fields before transcoding
	charPadding = "\x00 \t\r\n"
	whitespace  = " \t\n\r\v\x00"
)

// Transcoder converts character bytes to UTF-8. It reports false when bytes
// had to be dropped.
type Transcoder func(b []byte) (string, bool)

// FieldDecoder decodes the raw bytes of one field. A non-zero AnomalyKind
// reports that the value is a best-effort substitute.
type FieldDecoder func(raw []byte, tc Transcoder) (Value, AnomalyKind)

// DefaultDecoders returns the decoders for the supported type codes. Codes
// without an entry fall back to DecodeFallback.
func DefaultDecoders() map[FieldType]FieldDecoder {
	return map[FieldType]FieldDecoder{
		Character: DecodeCharacter,
		Numeric:   DecodeNumeric,
		Float:     DecodeNumeric,
		Integer:   DecodeInteger,
		Currency:  DecodeCurrency,
	}
}

func DecodeCharacter(raw []byte, tc Transcoder) (Value, AnomalyKind) {
	b := bytes.TrimRight(raw, charPadding)
	s := string(b)
	var anom AnomalyKind
	if tc != nil {
		var clean bool
		if s, clean = tc(b); !clean {
			anom = InvalidText
		}
	}
	return TextValue(strings.Trim(s, whitespace)), anom
}

func DecodeNumeric(raw []byte, _ Transcoder) (Value, AnomalyKind) {
	s := strings.Trim(string(raw), whitespace)
	if s == "" {
		return NullValue(), 0
	}
	return TextValue(s), 0
}

func DecodeInteger(raw []byte, _ Transcoder) (Value, AnomalyKind) {
	if len(raw) < 4 {
		return NullValue(), ShortField
	}
	return IntValue(int64(binary.LittleEndian.Uint32(raw))), 0
}

func DecodeCurrency(raw []byte, _ Transcoder) (Value, AnomalyKind) {
	if len(raw) < 8 {
		return NullValue(), ShortField
	}
	v := int64(binary.LittleEndian.Uint64(raw))
	return RealValue(float64(v) / 10000), 0
}

// DecodeFallback handles unknown type codes: whitespace is trimmed, the
// bytes are not transcoded.
func DecodeFallback(raw []byte, _ Transcoder) (Value, AnomalyKind) {
	return TextValue(strings.Trim(string(raw), whitespace)), 0
}

// ScanStats summarizes one pass over the records.
type ScanStats struct {
	Visited   uint32 // record slots read, deleted ones included
	Deleted   uint32
	Emitted   uint32
	Anomalies uint32
	Truncated bool
}

// Scan decodes every active record in file order and passes it to fn. A
// short read ends the scan without error. An error from fn stops the scan
// and is returned.
func (dbf *DBFReader) Scan(fn func(Row) error) (ScanStats, error) {
	var stats ScanStats
	if _, err := dbf.r.Seek(int64(dbf.header.HeaderLength), io.SeekStart); err != nil {
		return stats, &FatalIOError{Path: dbf.name, Err: err}
	}
	recLen := int(dbf.header.RecordLength)
	if recLen < 1 {
		dbf.logger.Warn("record length is zero, nothing to scan", zap.String("source", dbf.name))
		return stats, nil
	}
	var tc Transcoder
	if dbf.decoder != nil {
		tc = dbf.decoder.convert
	}
	report := func(a Anomaly) {
		stats.Anomalies++
		dbf.logger.Debug("decode anomaly", zap.String("source", dbf.name), zap.Stringer("anomaly", a))
		if dbf.onAnom != nil {
			dbf.onAnom(a)
		}
	}

	buf := make([]byte, recLen)
	for i := uint32(0); i < dbf.header.NumRecords; i++ {
		_, err := io.ReadFull(dbf.r, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			stats.Truncated = true
			report(Anomaly{Kind: TruncatedRecord, Record: i})
			dbf.logger.Warn("source ended before the declared record count",
				zap.String("source", dbf.name),
				zap.Uint32("record", i),
				zap.Uint32("declared", dbf.header.NumRecords))
			break
		}
		if err != nil {
			return stats, &FatalIOError{Path: dbf.name, Err: err}
		}
		stats.Visited++
		if buf[0] == DELETED {
			stats.Deleted++
			continue
		}
		row := dbf.decodeRecord(i, buf, tc, report)
		stats.Emitted++
		if err := fn(row); err != nil {
			return stats, errors.Wrapf(err, "handling record %d", i)
		}
	}
	return stats, nil
}

// ReadAll collects the rows of a full scan.
func (dbf *DBFReader) ReadAll() ([]Row, ScanStats, error) {
	var rows []Row
	stats, err := dbf.Scan(func(r Row) error {
		rows = append(rows, r)
		return nil
	})
	return rows, stats, err
}

func (dbf *DBFReader) decodeRecord(index uint32, data []byte, tc Transcoder, report func(Anomaly)) Row {
	row := make(Row, len(dbf.fields))
	// +1 skips the deletion flag
	pos := 1
	for _, f := range dbf.fields {
		next := pos + int(f.Length)
		raw := data[clamp(pos, len(data)):clamp(next, len(data))]
		decode, ok := dbf.decoders[f.Type]
		if !ok {
			decode = DecodeFallback
		}
		v, anom := decode(raw, tc)
		if anom != 0 {
			report(Anomaly{Kind: anom, Record: index, Field: f.Name})
		}
		row[f.Name] = v
		pos = next
	}
	if dbf.selected != nil {
		row = row.Select(dbf.selected)
	}
	return row
}

func clamp(i, n int) int {
	if i > n {
		return n
	}
	return i
}

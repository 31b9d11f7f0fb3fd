package godbf_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	godbf "github.com/recruitdata/go-dbf"
	"github.com/recruitdata/go-dbf/internal/dbftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func le32(v uint32) string {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return string(b)
}

func le64(v int64) string {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return string(b)
}

func TestDBF_Read(t *testing.T) {
	data := dbftest.Build(t, candidateFields, []dbftest.Record{
		dbftest.R("u1", "Alice\x00\x00", " 12  ", le32(1), le64(250000)),
		dbftest.R("u2", "  Bob\t\r\n", "", le32(70000), le64(-15000)),
	})
	dbf, err := godbf.NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	rows, stats, err := dbf.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, godbf.Row{
		"USER":      godbf.TextValue("u1"),
		"NAME":      godbf.TextValue("Alice"),
		"MERIT_GEN": godbf.TextValue("12"),
		"SCORE":     godbf.IntValue(1),
		"FEE":       godbf.RealValue(25.0),
	}, rows[0])
	assert.Equal(t, godbf.TextValue("Bob"), rows[1]["NAME"])
	assert.True(t, rows[1]["MERIT_GEN"].IsNull())
	assert.Equal(t, godbf.IntValue(70000), rows[1]["SCORE"])
	assert.Equal(t, godbf.RealValue(-1.5), rows[1]["FEE"])

	assert.Equal(t, godbf.ScanStats{Visited: 2, Emitted: 2}, stats)
}

func TestDBF_ReadSkipsDeleted(t *testing.T) {
	deleted := dbftest.R("u2", "Gone")
	deleted.Deleted = true
	data := dbftest.Build(t, candidateFields, []dbftest.Record{dbftest.R("u1", "A"), deleted, dbftest.R("u3", "C")})
	dbf, err := godbf.NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	rows, stats, err := dbf.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, godbf.TextValue("u1"), rows[0]["USER"])
	// the deleted span is consumed so the next record stays aligned
	assert.Equal(t, godbf.TextValue("u3"), rows[1]["USER"])
	assert.Equal(t, godbf.TextValue("C"), rows[1]["NAME"])
	for _, r := range rows {
		assert.NotEqual(t, godbf.TextValue("Gone"), r["NAME"])
	}

	assert.EqualValues(t, 3, stats.Visited)
	assert.EqualValues(t, 1, stats.Deleted)
	assert.EqualValues(t, 2, stats.Emitted)
}

func TestDBF_VisitedEqualsRecordCount(t *testing.T) {
	var records []dbftest.Record
	for i := 0; i < 25; i++ {
		r := dbftest.R("u", "n")
		r.Deleted = i%3 == 0
		records = append(records, r)
	}
	dbf, err := godbf.NewReader(bytes.NewReader(dbftest.Build(t, candidateFields, records)))
	require.NoError(t, err)

	_, stats, err := dbf.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, dbf.NumRecords(), stats.Visited)
	assert.EqualValues(t, 9, stats.Deleted)
	assert.False(t, stats.Truncated)
}

func TestDBF_ReadTruncated(t *testing.T) {
	data := dbftest.Build(t, candidateFields, []dbftest.Record{dbftest.R("u1", "A"), dbftest.R("u2", "B")})
	// cut the EOF marker and half of the second record
	data = data[:len(data)-1-20]

	var anomalies []godbf.Anomaly
	dbf, err := godbf.NewReader(bytes.NewReader(data), godbf.OptAnomalyHandler(func(a godbf.Anomaly) {
		anomalies = append(anomalies, a)
	}))
	require.NoError(t, err)

	rows, stats, err := dbf.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, stats.Truncated)
	assert.EqualValues(t, 1, stats.Visited)
	require.Len(t, anomalies, 1)
	assert.Equal(t, godbf.Anomaly{Kind: godbf.TruncatedRecord, Record: 1}, anomalies[0])
}

func TestDBF_ReadSelect(t *testing.T) {
	data := dbftest.Build(t, candidateFields, []dbftest.Record{dbftest.R("u1", "Alice", "3")})
	dbf, err := godbf.NewReader(bytes.NewReader(data), godbf.OptSelect("NAME", "MERIT_GEN", "has_quota"))
	require.NoError(t, err)

	rows, _, err := dbf.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, godbf.Row{
		"NAME":      godbf.TextValue("Alice"),
		"MERIT_GEN": godbf.TextValue("3"),
		"has_quota": godbf.NullValue(),
	}, rows[0])
	assert.Equal(t, []string{"NAME", "MERIT_GEN", "has_quota"}, dbf.Columns())
}

func TestDBF_ReadEncoding(t *testing.T) {
	fields := []dbftest.Field{dbftest.C("NAME", 10), {Name: "CODE", Type: 'X', Length: 4}}
	data := dbftest.Build(t, fields, []dbftest.Record{dbftest.R("Jos\xe9", " \xe9 ")})
	dbf, err := godbf.NewReader(bytes.NewReader(data), godbf.OptEncoding("CP1252"))
	require.NoError(t, err)

	rows, _, err := dbf.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, godbf.TextValue("José"), rows[0]["NAME"])
	// unknown type codes are trimmed but never transcoded
	assert.Equal(t, godbf.TextValue("\xe9"), rows[0]["CODE"])
}

func TestDBF_ReadCustomDecoder(t *testing.T) {
	fields := []dbftest.Field{{Name: "FLAG", Type: 'L', Length: 1}}
	data := dbftest.Build(t, fields, []dbftest.Record{dbftest.R("T"), dbftest.R("F")})
	logical := func(raw []byte, _ godbf.Transcoder) (godbf.Value, godbf.AnomalyKind) {
		return godbf.BoolValue(len(raw) > 0 && raw[0] == 'T'), 0
	}
	dbf, err := godbf.NewReader(bytes.NewReader(data), godbf.OptDecoder('L', logical))
	require.NoError(t, err)

	rows, _, err := dbf.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, godbf.BoolValue(true), rows[0]["FLAG"])
	assert.Equal(t, godbf.BoolValue(false), rows[1]["FLAG"])
}

func TestDBF_ScanStopsOnHandlerError(t *testing.T) {
	data := dbftest.Build(t, candidateFields, []dbftest.Record{dbftest.R("u1"), dbftest.R("u2"), dbftest.R("u3")})
	dbf, err := godbf.NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	boom := errors.New("boom")
	seen := 0
	_, err = dbf.Scan(func(godbf.Row) error {
		seen++
		if seen == 2 {
			return boom
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, boom, errors.Cause(err))
	assert.Equal(t, 2, seen)
}

func TestDecodeInteger(t *testing.T) {
	v, anom := godbf.DecodeInteger([]byte{0x01, 0x00, 0x00, 0x00}, nil)
	assert.Equal(t, godbf.IntValue(1), v)
	assert.Zero(t, anom)

	v, anom = godbf.DecodeInteger([]byte{0xff, 0xff, 0xff, 0xff}, nil)
	assert.Equal(t, godbf.IntValue(4294967295), v)

	v, anom = godbf.DecodeInteger([]byte{0x01}, nil)
	assert.True(t, v.IsNull())
	assert.Equal(t, godbf.ShortField, anom)
}

func TestDecodeCurrency(t *testing.T) {
	v, anom := godbf.DecodeCurrency([]byte(le64(250000)), nil)
	assert.Equal(t, godbf.RealValue(25.0), v)
	assert.Zero(t, anom)

	v, anom = godbf.DecodeCurrency([]byte{1, 2, 3}, nil)
	assert.True(t, v.IsNull())
	assert.Equal(t, godbf.ShortField, anom)
}

func TestDecodeNumeric(t *testing.T) {
	v, _ := godbf.DecodeNumeric([]byte("   "), nil)
	assert.True(t, v.IsNull())
	v, _ = godbf.DecodeNumeric([]byte("  42.50"), nil)
	assert.Equal(t, godbf.TextValue("42.50"), v)
}

func TestDecodeCharacterEmpty(t *testing.T) {
	v, anom := godbf.DecodeCharacter([]byte("\x00\x00  "), nil)
	assert.Equal(t, godbf.TextValue(""), v)
	assert.Zero(t, anom)
}

func TestDecodeCharacterInvalidText(t *testing.T) {
	tc := func(b []byte) (string, bool) { return "ok", false }
	v, anom := godbf.DecodeCharacter([]byte("o\xffk"), tc)
	assert.Equal(t, godbf.TextValue("ok"), v)
	assert.Equal(t, godbf.InvalidText, anom)
}

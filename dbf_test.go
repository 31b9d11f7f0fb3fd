package godbf_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	godbf "github.com/recruitdata/go-dbf"
	"github.com/recruitdata/go-dbf/internal/dbftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var candidateFields = []dbftest.Field{
	dbftest.C("USER", 8),
	dbftest.C("NAME", 20),
	{Name: "MERIT_GEN", Type: godbf.Numeric, Length: 5},
	{Name: "SCORE", Type: godbf.Integer, Length: 4},
	{Name: "FEE", Type: godbf.Currency, Length: 8},
}

func TestDBF_Header(t *testing.T) {
	data := dbftest.Build(t, candidateFields, []dbftest.Record{dbftest.R("u1", "A")})
	dbf, err := godbf.NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	h := dbf.Header()
	assert.EqualValues(t, 1, h.NumRecords)
	assert.EqualValues(t, 32+5*32+1, h.HeaderLength)
	assert.EqualValues(t, 1+8+20+5+4+8, h.RecordLength)
	assert.EqualValues(t, 1, dbf.NumRecords())
}

func TestDBF_Fields(t *testing.T) {
	data := dbftest.Build(t, candidateFields, nil)
	dbf, err := godbf.NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	fields := dbf.Fields()
	require.Len(t, fields, 5)
	assert.Equal(t, godbf.FieldDescriptor{Name: "USER", Type: godbf.Character, Length: 8}, fields[0])
	assert.Equal(t, godbf.FieldDescriptor{Name: "MERIT_GEN", Type: godbf.Numeric, Length: 5}, fields[2])
	assert.Equal(t, godbf.Currency, fields[4].Type)
	assert.Equal(t, []string{"USER", "NAME", "MERIT_GEN", "SCORE", "FEE"}, dbf.Columns())
}

func TestDBF_FieldNamesAreTranscoded(t *testing.T) {
	fields := []dbftest.Field{dbftest.C("ANN\xc9E", 4), dbftest.C("NAME", 6)}
	data := dbftest.Build(t, fields, []dbftest.Record{dbftest.R("1999", "Jos\xe9")})
	dbf, err := godbf.NewReader(bytes.NewReader(data), godbf.OptEncoding("CP1252"))
	require.NoError(t, err)
	assert.Equal(t, "ANNÉE", dbf.Fields()[0].Name)
	assert.Equal(t, []string{"ANNÉE", "NAME"}, dbf.Columns())

	rows, _, err := dbf.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, godbf.TextValue("1999"), rows[0]["ANNÉE"])
	assert.Equal(t, godbf.TextValue("José"), rows[0]["NAME"])

	// without an encoding the raw bytes are kept
	dbf, err = godbf.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "ANN\xc9E", dbf.Fields()[0].Name)
}

func TestDBF_FieldsTerminatorIsAuthoritative(t *testing.T) {
	data := dbftest.Build(t, candidateFields[:2], []dbftest.Record{dbftest.R("u1", "A")})
	// claim a much longer header; the terminator still ends the table
	data[8] = 0xff
	dbf, err := godbf.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, dbf.Fields(), 2)
}

func TestDBF_FieldsWithoutTerminator(t *testing.T) {
	data := dbftest.Build(t, candidateFields[:1], nil)
	// drop terminator and EOF marker: the table ends with the bytes
	data = data[:32+32]
	dbf, err := godbf.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, dbf.Fields(), 1)
	assert.Equal(t, "USER", dbf.Fields()[0].Name)
}

func TestDBF_ShortHeader(t *testing.T) {
	_, err := godbf.NewReader(bytes.NewReader(make([]byte, 20)))
	require.Error(t, err)
	_, ok := err.(*godbf.FormatError)
	assert.True(t, ok, "expected *FormatError, got %T", err)
}

func TestDBF_OpenMissingFile(t *testing.T) {
	_, err := godbf.Open(filepath.Join(t.TempDir(), "missing.dbf"))
	require.Error(t, err)
	fe, ok := err.(*godbf.FatalIOError)
	require.True(t, ok, "expected *FatalIOError, got %T", err)
	assert.True(t, os.IsNotExist(errors.Cause(fe)))
}

func TestDBF_OpenFile(t *testing.T) {
	path := dbftest.WriteFile(t, t.TempDir(), "cand.dbf", candidateFields, []dbftest.Record{dbftest.R("u1", "Alice")})

	dbf, err := godbf.Open(path)
	require.NoError(t, err)
	rows, _, err := dbf.ReadAll()
	require.NoError(t, err)
	require.NoError(t, dbf.Close())
	require.NoError(t, dbf.Close())

	require.Len(t, rows, 1)
	assert.Equal(t, godbf.TextValue("Alice"), rows[0]["NAME"])
}

func TestDBF_UnsupportedEncoding(t *testing.T) {
	data := dbftest.Build(t, candidateFields, nil)
	_, err := godbf.NewReader(bytes.NewReader(data), godbf.OptEncoding("no-such-charset"))
	require.Error(t, err)
}

func TestDBF_RecordLengthMismatchIsLogged(t *testing.T) {
	data := dbftest.Build(t, candidateFields, nil)
	data[10]++
	core, logs := observer.New(zap.WarnLevel)
	_, err := godbf.NewReader(bytes.NewReader(data), godbf.OptLogger(zap.New(core)))
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("record length does not match field descriptors").Len())

	core, logs = observer.New(zap.WarnLevel)
	_, err = godbf.NewReader(bytes.NewReader(dbftest.Build(t, candidateFields, nil)), godbf.OptLogger(zap.New(core)))
	require.NoError(t, err)
	assert.Zero(t, logs.Len())
}

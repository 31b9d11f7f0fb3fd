// Package dbftest writes small DBF files for tests.
package dbftest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	godbf "github.com/recruitdata/go-dbf"
)

// Field describes one column of a fixture.
type Field struct {
	Name   string
	Type   godbf.FieldType
	Length uint8
}

// C is a character field of the given length.
func C(name string, length uint8) Field {
	return Field{Name: name, Type: godbf.Character, Length: length}
}

// Record is one fixture record. Values are copied at their field offset and
// cut to the field length.
type Record struct {
	Deleted bool
	Values  []string
}

// R returns a live record.
func R(values ...string) Record {
	return Record{Values: values}
}

// Build lays out a DBF file: header, descriptors, terminator, space padded
// records and the trailing EOF marker.
func Build(t testing.TB, fields []Field, records []Record) []byte {
	t.Helper()
	recordLength := 1
	for _, f := range fields {
		recordLength += int(f.Length)
	}

	var buf bytes.Buffer
	header := godbf.DBFHeader{
		Version:         0x03,
		LastUpdateYear:  124,
		LastUpdateMonth: 1,
		LastUpdateDay:   1,
		NumRecords:      uint32(len(records)),
		HeaderLength:    uint16(32 + 32*len(fields) + 1),
		RecordLength:    uint16(recordLength),
	}
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		t.Fatalf("writing header: %v", err)
	}
	for _, f := range fields {
		desc := make([]byte, 32)
		copy(desc[:11], f.Name)
		desc[11] = byte(f.Type)
		desc[16] = f.Length
		buf.Write(desc)
	}
	buf.WriteByte(godbf.TERMINATOR)

	for _, r := range records {
		data := bytes.Repeat([]byte{godbf.SPACE}, recordLength)
		if r.Deleted {
			data[0] = godbf.DELETED
		}
		pos := 1
		for i, f := range fields {
			next := pos + int(f.Length)
			if i < len(r.Values) {
				copy(data[pos:next], r.Values[i])
			}
			pos = next
		}
		buf.Write(data)
	}
	buf.WriteByte(godbf.EOF)
	return buf.Bytes()
}

// WriteFile builds a fixture into dir and returns its path.
func WriteFile(t testing.TB, dir, name string, fields []Field, records []Record) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(t, fields, records), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

package godbf

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"

	"go.uber.org/zap"
)

func (dbf *DBFReader) initMetaData() error {
	if err := dbf.initHeader(); err != nil {
		return err
	}
	if err := dbf.initFields(); err != nil {
		return err
	}
	dbf.checkLayout()
	return nil
}

func (dbf *DBFReader) initHeader() error {
	if _, err := dbf.r.Seek(0, io.SeekStart); err != nil {
		return &FatalIOError{Path: dbf.name, Err: err}
	}
	buf := make([]byte, headerSize)
	n, err := io.ReadFull(dbf.r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &FormatError{Reason: "file shorter than the 32 byte header", Err: err}
	}
	if err != nil {
		return &FatalIOError{Path: dbf.name, Err: err}
	}
	return binary.Read(bytes.NewReader(buf[:n]), binary.LittleEndian, &dbf.header)
}

// initFields reads descriptors until the terminator byte. The terminator is
// authoritative; HeaderLength is not used to count fields.
func (dbf *DBFReader) initFields() error {
	dbf.fields = dbf.fields[:0]
	dbf.columns = dbf.columns[:0]
	buf := make([]byte, descriptorSize)
	for {
		n, err := io.ReadFull(dbf.r, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return &FatalIOError{Path: dbf.name, Err: err}
		}
		if n == 0 || buf[0] == TERMINATOR || n < descriptorSize {
			break
		}
		var raw rawDescriptor
		if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &raw); err != nil {
			return &FatalIOError{Path: dbf.name, Err: err}
		}
		name := strings.TrimRight(string(raw.Name[:]), "\x00 ")
		if dbf.decoder != nil {
			name, _ = dbf.decoder.convert([]byte(name))
		}
		fd := FieldDescriptor{
			Name:    name,
			Type:    FieldType(raw.Type),
			Length:  raw.Length,
			Decimal: raw.Decimal,
		}
		dbf.fields = append(dbf.fields, fd)
		dbf.columns = append(dbf.columns, fd.Name)
	}
	return nil
}

// checkLayout logs files whose record length disagrees with the descriptors.
// Decoding still follows the descriptors.
func (dbf *DBFReader) checkLayout() {
	total := 1
	for _, f := range dbf.fields {
		total += int(f.Length)
	}
	if total != int(dbf.header.RecordLength) {
		dbf.logger.Warn("record length does not match field descriptors",
			zap.String("source", dbf.name),
			zap.Uint16("record_length", dbf.header.RecordLength),
			zap.Int("descriptor_total", total))
	}
}

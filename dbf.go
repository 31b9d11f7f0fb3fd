package godbf

import (
	"io"
	"os"

	"go.uber.org/zap"
)

const (
	SPACE      = 0x20
	EOF        = 0x1A
	NUL        = 0x00
	DELETED    = '*'
	TERMINATOR = 0x0D

	headerSize     = 32
	descriptorSize = 32
)

// DBFReader decodes the records of a single DBF source. It is not safe for
// concurrent use; one reader serves one sequential scan.
type DBFReader struct {
	name    string
	r       io.ReadSeeker
	closer  io.Closer
	logger  *zap.Logger
	decoder *textDecoder

	encoding string
	selected []string
	decoders map[FieldType]FieldDecoder
	onAnom   func(Anomaly)

	header  DBFHeader
	fields  []FieldDescriptor
	columns []string
}

// Option configures a DBFReader.
type Option func(dbf *DBFReader)

// OptEncoding sets the text encoding of character fields (e.g. "CP1252").
// Empty or UTF-8 disables transcoding.
func OptEncoding(encoding string) Option {
	return func(dbf *DBFReader) {
		dbf.encoding = encoding
	}
}

// OptSelect restricts decoded rows to the named fields.
func OptSelect(fields ...string) Option {
	return func(dbf *DBFReader) {
		dbf.selected = append([]string(nil), fields...)
	}
}

// OptLogger sets the logger used for scan progress and anomalies.
func OptLogger(logger *zap.Logger) Option {
	return func(dbf *DBFReader) {
		if logger != nil {
			dbf.logger = logger
		}
	}
}

// OptName sets the name reported in errors for readers built with
// NewReader.
func OptName(name string) Option {
	return func(dbf *DBFReader) {
		dbf.name = name
	}
}

// OptDecoder registers (or replaces) the decoder for a type code.
func OptDecoder(t FieldType, d FieldDecoder) Option {
	return func(dbf *DBFReader) {
		dbf.decoders[t] = d
	}
}

// OptAnomalyHandler registers a callback invoked for every recovered
// anomaly.
func OptAnomalyHandler(fn func(Anomaly)) Option {
	return func(dbf *DBFReader) {
		dbf.onAnom = fn
	}
}

// Open opens the named DBF file and reads its header and field descriptors.
// The returned reader owns the file and must be closed.
func Open(fileName string, opts ...Option) (*DBFReader, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, &FatalIOError{Path: fileName, Err: err}
	}
	dbf, err := newReader(fileName, f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	dbf.closer = f
	return dbf, nil
}

// NewReader reads the header and field descriptors from r. Closing the
// returned reader does not close r.
func NewReader(r io.ReadSeeker, opts ...Option) (*DBFReader, error) {
	return newReader("", r, opts)
}

func newReader(name string, r io.ReadSeeker, opts []Option) (*DBFReader, error) {
	dbf := &DBFReader{
		name:     name,
		r:        r,
		logger:   zap.NewNop(),
		decoders: DefaultDecoders(),
	}
	for _, opt := range opts {
		opt(dbf)
	}
	var err error
	dbf.decoder, err = newTextDecoder(dbf.encoding)
	if err != nil {
		return nil, err
	}
	if err = dbf.initMetaData(); err != nil {
		return nil, err
	}
	return dbf, nil
}

// Close releases the underlying file, if the reader owns one.
func (dbf *DBFReader) Close() error {
	if dbf.closer == nil {
		return nil
	}
	err := dbf.closer.Close()
	dbf.closer = nil
	return err
}

func (dbf *DBFReader) Header() DBFHeader { return dbf.header }

func (dbf *DBFReader) NumRecords() uint32 { return dbf.header.NumRecords }

// Fields returns the field descriptors in file order.
func (dbf *DBFReader) Fields() []FieldDescriptor {
	return append([]FieldDescriptor(nil), dbf.fields...)
}

// Columns returns the names of the fields present in decoded rows, in
// order: the selection if one was configured, otherwise every field.
func (dbf *DBFReader) Columns() []string {
	if dbf.selected != nil {
		return append([]string(nil), dbf.selected...)
	}
	return append([]string(nil), dbf.columns...)
}

package snapshot

import (
	"bufio"
	"encoding/gob"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	godbf "github.com/recruitdata/go-dbf"
)

// fileHeader leads the gob stream; rows follow one by one.
type fileHeader struct {
	Columns []string
}

type fileWriter struct {
	f   *os.File
	buf *bufio.Writer
	zw  *gzip.Writer
	enc *gob.Encoder
}

func newFileWriter(path string, columns []string) (Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating '%s'", path)
	}
	w := &fileWriter{f: f, buf: bufio.NewWriter(f)}
	w.zw = gzip.NewWriter(w.buf)
	w.enc = gob.NewEncoder(w.zw)
	if err := w.enc.Encode(fileHeader{Columns: columns}); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "encoding header")
	}
	return w, nil
}

func (w *fileWriter) Write(row godbf.Row) error {
	return errors.Wrap(w.enc.Encode(row), "encoding row")
}

func (w *fileWriter) Close() error {
	if err := w.zw.Close(); err != nil {
		w.f.Close()
		return errors.Wrap(err, "closing gzip stream")
	}
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return errors.Wrap(err, "flushing")
	}
	return w.f.Close()
}

func loadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening '%s'", path)
	}
	defer f.Close()
	zr, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrap(err, "reading gzip header")
	}
	defer zr.Close()

	dec := gob.NewDecoder(zr)
	var h fileHeader
	if err := dec.Decode(&h); err != nil {
		return nil, errors.Wrap(err, "decoding header")
	}
	s := &Snapshot{Columns: h.Columns}
	for {
		var row godbf.Row
		err := dec.Decode(&row)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "decoding row %d", len(s.Rows))
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

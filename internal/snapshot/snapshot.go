// Package snapshot stores a converted row set in a form that can be loaded
// back with every value kind and null preserved.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"os"
	"sort"

	"github.com/pkg/errors"
	godbf "github.com/recruitdata/go-dbf"
)

// Snapshot is a loaded row set.
type Snapshot struct {
	Columns []string
	Rows    []godbf.Row
}

// Writer appends rows to a snapshot store.
type Writer interface {
	Write(row godbf.Row) error
	Close() error
}

type backend struct {
	create func(path string, columns []string) (Writer, error)
	load   func(path string) (*Snapshot, error)
}

var backends = map[string]backend{
	"gob":     {create: newFileWriter, load: loadFile},
	"bolt":    {create: newBoltWriter, load: loadBolt},
	"leveldb": {create: newLevelWriter, load: loadLevel},
}

// Formats lists the supported snapshot formats.
func Formats() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(format string) (backend, error) {
	if format == "" {
		format = "gob"
	}
	b, ok := backends[format]
	if !ok {
		return backend{}, errors.Errorf("unknown snapshot format '%s'", format)
	}
	return b, nil
}

// Create opens a new snapshot at path.
func Create(path, format string, columns []string) (Writer, error) {
	b, err := lookup(format)
	if err != nil {
		return nil, err
	}
	return b.create(path, columns)
}

// Load reads a snapshot written in the given format.
func Load(path, format string) (*Snapshot, error) {
	b, err := lookup(format)
	if err != nil {
		return nil, err
	}
	return b.load(path)
}

// WriteAll writes rows to a temporary location next to path and moves it
// into place only once every row has been written. A previous snapshot at
// path is replaced.
func WriteAll(path, format string, columns []string, rows []godbf.Row) error {
	tmp, err := Stage(path, format, columns, rows)
	if err != nil {
		return err
	}
	if err := Commit(tmp, path); err != nil {
		os.RemoveAll(tmp)
		return err
	}
	return nil
}

// Stage writes rows next to path and returns the temporary location. Nothing
// at path changes until Commit; on error the temporary location is removed.
func Stage(path, format string, columns []string, rows []godbf.Row) (tmp string, err error) {
	tmp = path + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return "", errors.Wrap(err, "clearing temporary snapshot")
	}
	w, err := Create(tmp, format, columns)
	if err != nil {
		return "", errors.Wrap(err, "creating snapshot")
	}
	defer func() {
		if err != nil {
			os.RemoveAll(tmp)
			tmp = ""
		}
	}()
	for i, r := range rows {
		if err = w.Write(r); err != nil {
			w.Close()
			return tmp, errors.Wrapf(err, "writing row %d", i)
		}
	}
	if err = w.Close(); err != nil {
		return tmp, errors.Wrap(err, "closing snapshot")
	}
	return tmp, nil
}

// Commit moves a staged snapshot over path, replacing any previous one.
func Commit(tmp, path string) error {
	if err := os.RemoveAll(path); err != nil {
		return errors.Wrap(err, "removing previous snapshot")
	}
	return errors.Wrap(os.Rename(tmp, path), "moving snapshot into place")
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// seqKey gives keys that sort in row order.
func seqKey(prefix []byte, seq uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], seq)
	return key
}

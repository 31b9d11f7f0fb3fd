package snapshot

import (
	"github.com/pkg/errors"
	godbf "github.com/recruitdata/go-dbf"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	levelColumnsKey = []byte("m:columns")
	levelRowPrefix  = []byte("r:")
)

type levelWriter struct {
	db    *leveldb.DB
	seq   uint64
	batch *leveldb.Batch
}

func newLevelWriter(path string, columns []string) (Writer, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{ErrorIfExist: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb '%s'", path)
	}
	cols, err := encodeGob(fileHeader{Columns: columns})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "encoding columns")
	}
	if err := db.Put(levelColumnsKey, cols, nil); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "writing columns")
	}
	return &levelWriter{db: db, batch: new(leveldb.Batch)}, nil
}

func (w *levelWriter) Write(row godbf.Row) error {
	val, err := encodeGob(row)
	if err != nil {
		return errors.Wrap(err, "encoding row")
	}
	w.batch.Put(seqKey(levelRowPrefix, w.seq), val)
	w.seq++
	if w.batch.Len() >= commitEvery {
		return w.flush()
	}
	return nil
}

func (w *levelWriter) flush() error {
	if w.batch.Len() == 0 {
		return nil
	}
	err := w.db.Write(w.batch, &opt.WriteOptions{Sync: true})
	w.batch.Reset()
	return errors.Wrap(err, "writing batch")
}

func (w *levelWriter) Close() error {
	if err := w.flush(); err != nil {
		w.db.Close()
		return err
	}
	return w.db.Close()
}

func loadLevel(path string) (*Snapshot, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{ErrorIfMissing: true, ReadOnly: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb '%s'", path)
	}
	defer db.Close()

	s := &Snapshot{}
	cols, err := db.Get(levelColumnsKey, nil)
	if err != nil {
		return nil, errors.Wrap(err, "reading columns")
	}
	var h fileHeader
	if err := decodeGob(cols, &h); err != nil {
		return nil, errors.Wrap(err, "decoding columns")
	}
	s.Columns = h.Columns
	it := db.NewIterator(util.BytesPrefix(levelRowPrefix), nil)
	defer it.Release()
	for it.Next() {
		var row godbf.Row
		if err := decodeGob(it.Value(), &row); err != nil {
			return nil, errors.Wrapf(err, "decoding row %x", it.Key())
		}
		s.Rows = append(s.Rows, row)
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrap(err, "iterating rows")
	}
	return s, nil
}

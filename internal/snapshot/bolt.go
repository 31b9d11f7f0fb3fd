package snapshot

import (
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	godbf "github.com/recruitdata/go-dbf"
)

var (
	metaBucket = []byte("meta")
	rowBucket  = []byte("rows")
	columnsKey = []byte("columns")
)

// commitEvery bounds the rows buffered before a transaction is committed.
const commitEvery = 1000

type boltWriter struct {
	db      *bolt.DB
	seq     uint64
	pending [][]byte
}

func newBoltWriter(path string, columns []string) (Writer, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second, NoGrowSync: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", path)
	}
	cols, err := encodeGob(fileHeader{Columns: columns})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "encoding columns")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		mb, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return errors.Wrap(err, "creating meta bucket")
		}
		if _, err := tx.CreateBucketIfNotExists(rowBucket); err != nil {
			return errors.Wrap(err, "creating rows bucket")
		}
		return mb.Put(columnsKey, cols)
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return &boltWriter{db: db}, nil
}

func (w *boltWriter) Write(row godbf.Row) error {
	val, err := encodeGob(row)
	if err != nil {
		return errors.Wrap(err, "encoding row")
	}
	w.pending = append(w.pending, val)
	if len(w.pending) >= commitEvery {
		return w.flush()
	}
	return nil
}

func (w *boltWriter) flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	err := w.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(rowBucket)
		for _, val := range w.pending {
			if err := b.Put(seqKey(nil, w.seq), val); err != nil {
				return err
			}
			w.seq++
		}
		return nil
	})
	w.pending = w.pending[:0]
	return errors.Wrap(err, "committing rows")
}

func (w *boltWriter) Close() error {
	if err := w.flush(); err != nil {
		w.db.Close()
		return err
	}
	if err := w.db.Sync(); err != nil {
		w.db.Close()
		return errors.Wrap(err, "syncing db")
	}
	return w.db.Close()
}

func loadBolt(path string) (*Snapshot, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", path)
	}
	defer db.Close()

	s := &Snapshot{}
	err = db.View(func(tx *bolt.Tx) error {
		mb := tx.Bucket(metaBucket)
		rb := tx.Bucket(rowBucket)
		if mb == nil || rb == nil {
			return errors.New("not a snapshot: missing buckets")
		}
		var h fileHeader
		if err := decodeGob(mb.Get(columnsKey), &h); err != nil {
			return errors.Wrap(err, "decoding columns")
		}
		s.Columns = h.Columns
		// keys are big-endian sequence numbers, so cursor order is row order
		return rb.ForEach(func(k, v []byte) error {
			var row godbf.Row
			if err := decodeGob(v, &row); err != nil {
				return errors.Wrapf(err, "decoding row %x", k)
			}
			s.Rows = append(s.Rows, row)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

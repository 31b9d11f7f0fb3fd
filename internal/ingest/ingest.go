// Package ingest runs a dataset end to end: decode the DBF source, apply the
// rule chains and the field map, then write the SQL and snapshot outputs.
package ingest

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	godbf "github.com/recruitdata/go-dbf"
	"github.com/recruitdata/go-dbf/internal/config"
	"github.com/recruitdata/go-dbf/internal/mapper"
	"github.com/recruitdata/go-dbf/internal/snapshot"
	"github.com/recruitdata/go-dbf/internal/source"
	"github.com/recruitdata/go-dbf/internal/sqlgen"
	"github.com/recruitdata/go-dbf/internal/transform"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is the transformed content of one run.
type Result struct {
	RunID     string
	Columns   []string
	Rows      []godbf.Row
	Stats     godbf.ScanStats
	Anomalies map[godbf.AnomalyKind]int
}

// Ingester runs one dataset.
type Ingester struct {
	dataset config.Dataset
	opener  *source.Opener
	log     *zap.Logger

	pre    transform.Chain
	post   transform.Chain
	mapper *mapper.Mapper
}

// Option configures an Ingester.
type Option func(in *Ingester)

// OptLogger sets the logger. The default discards everything.
func OptLogger(logger *zap.Logger) Option {
	return func(in *Ingester) {
		if logger != nil {
			in.log = logger
		}
	}
}

// OptOpener sets how the dataset source is opened.
func OptOpener(o *source.Opener) Option {
	return func(in *Ingester) {
		if o != nil {
			in.opener = o
		}
	}
}

// NewIngester validates ds and builds its rule chains and mapper.
func NewIngester(ds config.Dataset, opts ...Option) (*Ingester, error) {
	if err := ds.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating dataset")
	}
	in := &Ingester{
		dataset: ds,
		opener:  &source.Opener{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.opener.Logger == nil {
		in.opener.Logger = in.log
	}
	var err error
	if in.pre, err = transform.Build(ds.Rules); err != nil {
		return nil, errors.Wrap(err, "building rules")
	}
	if in.post, err = transform.Build(ds.PostRules); err != nil {
		return nil, errors.Wrap(err, "building post rules")
	}
	if in.mapper, err = mapper.New(ds.Map); err != nil {
		return nil, errors.Wrap(err, "building field map")
	}
	return in, nil
}

// Run reads and transforms every live record and then writes the configured
// outputs. Nothing is written unless the whole source was read.
func (in *Ingester) Run(ctx context.Context) (*Result, error) {
	res, err := in.Transform(ctx)
	if err != nil {
		return nil, err
	}
	if err := in.Emit(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Transform reads the source and returns the transformed rows without
// writing anything.
func (in *Ingester) Transform(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:     uuid.New().String(),
		Anomalies: make(map[godbf.AnomalyKind]int),
	}
	log := in.log.With(zap.String("run", res.RunID), zap.String("dataset", in.dataset.Name))
	log.Info("reading source", zap.String("source", in.dataset.Source), zap.String("encoding", in.dataset.Encoding))
	log.Debug("rule chains", zap.Strings("rules", in.pre.Names()), zap.Strings("post_rules", in.post.Names()))

	opts := []godbf.Option{
		godbf.OptEncoding(in.dataset.Encoding),
		godbf.OptLogger(log),
		godbf.OptAnomalyHandler(func(a godbf.Anomaly) { res.Anomalies[a.Kind]++ }),
	}
	if len(in.dataset.Fields) > 0 {
		opts = append(opts, godbf.OptSelect(in.dataset.Fields...))
	}
	dbf, err := in.opener.Open(ctx, in.dataset.Source, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "opening source")
	}
	defer dbf.Close()

	res.Stats, err = dbf.Scan(func(row godbf.Row) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		in.pre.Apply(row)
		out := in.mapper.Map(row)
		in.post.Apply(out)
		res.Rows = append(res.Rows, out)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scanning source")
	}

	if in.mapper.Identity() {
		res.Columns = withExtras(dbf.Columns(), res.Rows)
	} else {
		res.Columns = withExtras(in.mapper.Columns(), res.Rows)
	}

	log.Info("source read",
		zap.Uint32("visited", res.Stats.Visited),
		zap.Uint32("deleted", res.Stats.Deleted),
		zap.Uint32("emitted", res.Stats.Emitted),
		zap.Uint32("anomalies", res.Stats.Anomalies),
		zap.Bool("truncated", res.Stats.Truncated))
	for kind, n := range res.Anomalies {
		log.Warn("decode anomalies", zap.Stringer("kind", kind), zap.Int("count", n))
	}
	return res, nil
}

// withExtras appends, in sorted order, columns that rules added to rows but
// that the base column list does not name.
func withExtras(base []string, rows []godbf.Row) []string {
	known := make(map[string]bool, len(base))
	for _, c := range base {
		known[c] = true
	}
	var extra []string
	for _, r := range rows {
		for c := range r {
			if !known[c] {
				known[c] = true
				extra = append(extra, c)
			}
		}
	}
	sort.Strings(extra)
	return append(base, extra...)
}

// Emit writes the SQL and snapshot outputs of res concurrently. Outputs the
// dataset leaves unset are skipped. Both are staged next to their paths and
// moved into place only after both were written, so a failure on either side
// leaves the previous outputs untouched.
func (in *Ingester) Emit(ctx context.Context, res *Result) error {
	log := in.log.With(zap.String("run", res.RunID), zap.String("dataset", in.dataset.Name))
	g, gctx := errgroup.WithContext(ctx)

	sqlOut, snapOut := in.dataset.SQL.Output, in.dataset.Snapshot.Output
	var sqlTmp, snapTmp string
	if sqlOut != "" {
		g.Go(func() error {
			gen := &sqlgen.Generator{
				Table:     in.dataset.Table,
				Columns:   res.Columns,
				BatchSize: in.dataset.SQL.BatchSize,
			}
			tmp, err := stageSQL(gctx, sqlOut, gen, res.Rows)
			if err != nil {
				return errors.Wrapf(err, "writing sql to '%s'", sqlOut)
			}
			sqlTmp = tmp
			return nil
		})
	}
	if snapOut != "" {
		g.Go(func() error {
			if err := ensureDir(snapOut); err != nil {
				return errors.Wrapf(err, "writing snapshot to '%s'", snapOut)
			}
			tmp, err := snapshot.Stage(snapOut, in.dataset.Snapshot.Format, res.Columns, res.Rows)
			if err != nil {
				return errors.Wrapf(err, "writing snapshot to '%s'", snapOut)
			}
			snapTmp = tmp
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if sqlTmp != "" {
			os.Remove(sqlTmp)
		}
		if snapTmp != "" {
			os.RemoveAll(snapTmp)
		}
		return err
	}

	if snapTmp != "" {
		if err := snapshot.Commit(snapTmp, snapOut); err != nil {
			os.RemoveAll(snapTmp)
			if sqlTmp != "" {
				os.Remove(sqlTmp)
			}
			return errors.Wrapf(err, "writing snapshot to '%s'", snapOut)
		}
		log.Info("wrote snapshot", zap.String("path", snapOut), zap.String("format", in.dataset.Snapshot.Format))
	}
	if sqlTmp != "" {
		if err := os.Rename(sqlTmp, sqlOut); err != nil {
			os.Remove(sqlTmp)
			return errors.Wrapf(err, "writing sql to '%s'", sqlOut)
		}
		log.Info("wrote sql", zap.String("path", sqlOut), zap.Int("rows", len(res.Rows)))
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return errors.Wrapf(os.MkdirAll(dir, 0755), "creating '%s'", dir)
}

// stageSQL writes the script to a temporary file next to path and returns its
// name. The temporary file is removed on error.
func stageSQL(ctx context.Context, path string, gen *sqlgen.Generator, rows []godbf.Row) (string, error) {
	if err := ensureDir(path); err != nil {
		return "", err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", errors.Wrap(err, "creating temp file")
	}
	w := bufio.NewWriter(f)
	err = gen.Write(w, rows)
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = ctx.Err()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

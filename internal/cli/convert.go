package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/jaffee/commandeer"
	"github.com/pkg/errors"
	"github.com/recruitdata/go-dbf/internal/config"
	"github.com/recruitdata/go-dbf/internal/ingest"
	"github.com/recruitdata/go-dbf/internal/source"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ConvertMain holds the flags of the convert command.
type ConvertMain struct {
	Config    string `help:"TOML file with flag values."`
	Dataset   string `help:"Dataset to run: a built-in preset, or one defined in --datasets."`
	Datasets  string `help:"YAML file with dataset definitions."`
	Source    string `help:"Override the DBF source: a local path or s3://bucket/key."`
	Region    string `help:"AWS region for s3:// sources."`
	Encoding  string `help:"Override the text encoding of character fields."`
	Out       string `help:"Override the SQL output path."`
	BatchSize int    `help:"Override rows per INSERT statement; 1 writes one statement per row."`
	Snapshot  string `help:"Override the snapshot output path."`
	Format    string `help:"Override the snapshot format (gob, bolt, leveldb)."`
	Preview   int    `help:"Dump the first N transformed rows and write nothing."`
	Verbose   bool   `help:"Enable debug logging."`
}

// NewConvertMain returns a ConvertMain with default values.
func NewConvertMain() *ConvertMain {
	return &ConvertMain{Region: "us-east-1"}
}

// dataset resolves the dataset definition and applies flag overrides.
func (m *ConvertMain) dataset() (config.Dataset, error) {
	if m.Dataset == "" {
		return config.Dataset{}, errors.New("no dataset given")
	}
	var ds config.Dataset
	var err error
	if m.Datasets != "" {
		all, lerr := config.Load(m.Datasets)
		if lerr != nil {
			return ds, lerr
		}
		ds, err = config.Find(all, m.Dataset)
	} else {
		ds, err = config.Preset(m.Dataset)
	}
	if err != nil {
		return ds, err
	}
	if m.Source != "" {
		ds.Source = m.Source
	}
	if m.Encoding != "" {
		ds.Encoding = m.Encoding
	}
	if m.Out != "" {
		ds.SQL.Output = m.Out
	}
	if m.BatchSize > 0 {
		ds.SQL.BatchSize = m.BatchSize
	}
	if m.Snapshot != "" {
		ds.Snapshot.Output = m.Snapshot
	}
	if m.Format != "" {
		ds.Snapshot.Format = m.Format
	}
	return ds, nil
}

// Run converts the selected dataset. The summary goes to stdout, logs to
// stderr.
func (m *ConvertMain) Run(ctx context.Context, stdout, stderr io.Writer) error {
	ds, err := m.dataset()
	if err != nil {
		return errors.Wrap(err, "resolving dataset")
	}
	log := newLogger(stderr, m.Verbose)
	defer log.Sync()

	in, err := ingest.NewIngester(ds,
		ingest.OptLogger(log),
		ingest.OptOpener(&source.Opener{Region: m.Region, Logger: log}))
	if err != nil {
		return err
	}

	if m.Preview > 0 {
		res, err := in.Transform(ctx)
		if err != nil {
			return err
		}
		rows := res.Rows
		if len(rows) > m.Preview {
			rows = rows[:m.Preview]
		}
		fmt.Fprintf(stdout, "columns: %v\n", res.Columns)
		spew.Fdump(stdout, rows)
		return nil
	}

	start := time.Now()
	res, err := in.Run(ctx)
	if err != nil {
		return err
	}
	log.Info("done", zap.Duration("elapsed", time.Since(start)))
	fmt.Fprintf(stdout, "%s: %d rows (%d visited, %d deleted)\n",
		ds.Name, len(res.Rows), res.Stats.Visited, res.Stats.Deleted)
	return nil
}

// ConvertMainCmd is wrapped by NewConvertCommand and only exported for
// testing purposes.
var ConvertMainCmd *ConvertMain

// NewConvertCommand returns a new cobra command wrapping ConvertMainCmd.
func NewConvertCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	ConvertMainCmd = NewConvertMain()
	convertCommand := &cobra.Command{
		Use:   "convert",
		Short: "convert a DBF dataset into SQL inserts and a snapshot",
		Long: `Reads the dataset's DBF source, applies its rules and field map, and
writes the SQL script and snapshot it names. Outputs are written only
after the whole source was read.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ConvertMainCmd.Run(context.Background(), stdout, stderr)
		},
	}
	flags := convertCommand.Flags()
	err := commandeer.Flags(flags, ConvertMainCmd)
	if err != nil {
		panic(err)
	}
	return convertCommand
}

func init() {
	subcommandFns["convert"] = NewConvertCommand
}

package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jaffee/commandeer"
	"github.com/pkg/errors"
	godbf "github.com/recruitdata/go-dbf"
	"github.com/recruitdata/go-dbf/internal/source"
	"github.com/spf13/cobra"
)

// FieldsMain holds the flags of the fields command.
type FieldsMain struct {
	Config   string `help:"TOML file with flag values."`
	Source   string `help:"DBF file to inspect: a local path or s3://bucket/key."`
	Region   string `help:"AWS region for s3:// sources."`
	Encoding string `help:"Text encoding of character fields."`
}

// NewFieldsMain returns a FieldsMain with default values.
func NewFieldsMain() *FieldsMain {
	return &FieldsMain{Region: "us-east-1"}
}

// Run prints the header summary and field descriptors of the source.
func (m *FieldsMain) Run(ctx context.Context, stdout io.Writer) error {
	if m.Source == "" {
		return errors.New("no source given")
	}
	o := &source.Opener{Region: m.Region}
	dbf, err := o.Open(ctx, m.Source, godbf.OptEncoding(m.Encoding))
	if err != nil {
		return err
	}
	defer dbf.Close()

	h := dbf.Header()
	fmt.Fprintf(stdout, "records: %d  header: %d bytes  record: %d bytes\n",
		h.NumRecords, h.HeaderLength, h.RecordLength)
	tw := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tLENGTH\tDECIMALS")
	for _, f := range dbf.Fields() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", f.Name, f.Type, f.Length, f.Decimal)
	}
	return tw.Flush()
}

// FieldsMainCmd is wrapped by NewFieldsCommand and only exported for testing
// purposes.
var FieldsMainCmd *FieldsMain

// NewFieldsCommand returns a new cobra command wrapping FieldsMainCmd.
func NewFieldsCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	FieldsMainCmd = NewFieldsMain()
	fieldsCommand := &cobra.Command{
		Use:   "fields [source]",
		Short: "list the field descriptors of a DBF file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				FieldsMainCmd.Source = args[0]
			}
			return FieldsMainCmd.Run(context.Background(), stdout)
		},
	}
	flags := fieldsCommand.Flags()
	err := commandeer.Flags(flags, FieldsMainCmd)
	if err != nil {
		panic(err)
	}
	return fieldsCommand
}

func init() {
	subcommandFns["fields"] = NewFieldsCommand
}

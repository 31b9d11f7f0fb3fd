package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jaffee/commandeer"
	"github.com/recruitdata/go-dbf/internal/config"
	"github.com/spf13/cobra"
)

// DatasetsMain holds the flags of the datasets command.
type DatasetsMain struct {
	Config   string `help:"TOML file with flag values."`
	Datasets string `help:"YAML file with dataset definitions; the built-in presets are listed when empty."`
}

// Run lists the known datasets.
func (m *DatasetsMain) Run(stdout io.Writer) error {
	var ds []config.Dataset
	var err error
	if m.Datasets != "" {
		ds, err = config.Load(m.Datasets)
	} else {
		ds, err = config.Presets()
	}
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTABLE\tSOURCE\tRULES")
	for _, d := range ds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", d.Name, d.Table, d.Source, len(d.Rules)+len(d.PostRules))
	}
	return tw.Flush()
}

// DatasetsMainCmd is wrapped by NewDatasetsCommand and only exported for
// testing purposes.
var DatasetsMainCmd *DatasetsMain

// NewDatasetsCommand returns a new cobra command wrapping DatasetsMainCmd.
func NewDatasetsCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	DatasetsMainCmd = &DatasetsMain{}
	datasetsCommand := &cobra.Command{
		Use:   "datasets",
		Short: "list the dataset definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return DatasetsMainCmd.Run(stdout)
		},
	}
	flags := datasetsCommand.Flags()
	err := commandeer.Flags(flags, DatasetsMainCmd)
	if err != nil {
		panic(err)
	}
	return datasetsCommand
}

func init() {
	subcommandFns["datasets"] = NewDatasetsCommand
}

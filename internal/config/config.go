// Package config describes conversion datasets: which DBF file to read, how
// to decode it, which rules to apply and where the output goes.
package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/recruitdata/go-dbf/internal/mapper"
	"github.com/recruitdata/go-dbf/internal/snapshot"
	"github.com/recruitdata/go-dbf/internal/transform"
	"gopkg.in/yaml.v3"
)

// DefaultBatchSize is the number of rows per INSERT statement when a dataset
// does not set one.
const DefaultBatchSize = 1000

// SQL configures the INSERT output.
type SQL struct {
	Output    string `yaml:"output"`
	BatchSize int    `yaml:"batch_size"`
}

// Snapshot configures the snapshot output.
type Snapshot struct {
	Output string `yaml:"output"`
	Format string `yaml:"format"`
}

// Dataset is one conversion job.
type Dataset struct {
	Name     string `yaml:"name"`
	Source   string `yaml:"source"`
	Encoding string `yaml:"encoding"`
	Table    string `yaml:"table"`

	// Fields is the allow-list applied to decoded rows. Empty keeps every
	// field.
	Fields []string       `yaml:"fields"`
	Map    []mapper.Entry `yaml:"map"`

	// Rules run on decoded rows before mapping, PostRules on mapped rows.
	Rules     []transform.Spec `yaml:"rules"`
	PostRules []transform.Spec `yaml:"post_rules"`

	SQL      SQL      `yaml:"sql"`
	Snapshot Snapshot `yaml:"snapshot"`
}

// File is the top level of a dataset definition file.
type File struct {
	Datasets []Dataset `yaml:"datasets"`
}

// Parse decodes a dataset definition document.
func Parse(data []byte) ([]Dataset, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decoding dataset definitions")
	}
	for i := range f.Datasets {
		f.Datasets[i].applyDefaults()
	}
	return f.Datasets, nil
}

// Load reads dataset definitions from a YAML file.
func Load(path string) ([]Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading '%s'", path)
	}
	ds, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing '%s'", path)
	}
	return ds, nil
}

// Find returns the dataset with the given name.
func Find(datasets []Dataset, name string) (Dataset, error) {
	for _, d := range datasets {
		if d.Name == name {
			return d, nil
		}
	}
	return Dataset{}, errors.Errorf("no dataset named '%s'", name)
}

func (d *Dataset) applyDefaults() {
	if d.SQL.BatchSize == 0 {
		d.SQL.BatchSize = DefaultBatchSize
	}
	if d.Snapshot.Format == "" {
		d.Snapshot.Format = "gob"
	}
	if d.Table == "" {
		d.Table = d.Name
	}
}

// Validate checks that the dataset can be run.
func (d *Dataset) Validate() error {
	if d.Name == "" {
		return errors.New("dataset has no name")
	}
	if d.Source == "" {
		return errors.Errorf("dataset '%s' has no source", d.Name)
	}
	if d.SQL.Output != "" && d.Table == "" {
		return errors.Errorf("dataset '%s' writes SQL but has no table", d.Name)
	}
	if d.Snapshot.Output != "" {
		known := false
		for _, f := range snapshot.Formats() {
			known = known || f == d.Snapshot.Format
		}
		if !known {
			return errors.Errorf("dataset '%s': unknown snapshot format '%s'", d.Name, d.Snapshot.Format)
		}
	}
	all := append(append([]transform.Spec(nil), d.Rules...), d.PostRules...)
	if err := transform.CheckExclusive(all); err != nil {
		return errors.Wrapf(err, "dataset '%s'", d.Name)
	}
	if _, err := transform.Build(d.Rules); err != nil {
		return errors.Wrapf(err, "dataset '%s' rules", d.Name)
	}
	if _, err := transform.Build(d.PostRules); err != nil {
		return errors.Wrapf(err, "dataset '%s' post_rules", d.Name)
	}
	if _, err := mapper.New(d.Map); err != nil {
		return errors.Wrapf(err, "dataset '%s' map", d.Name)
	}
	return nil
}

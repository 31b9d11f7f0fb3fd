package config

import (
	_ "embed"

	"github.com/pkg/errors"
)

//go:embed presets.yaml
var presetData []byte

// Presets returns the built-in dataset definitions.
func Presets() ([]Dataset, error) {
	ds, err := Parse(presetData)
	if err != nil {
		return nil, errors.Wrap(err, "built-in presets")
	}
	return ds, nil
}

// Preset returns the built-in dataset with the given name.
func Preset(name string) (Dataset, error) {
	ds, err := Presets()
	if err != nil {
		return Dataset{}, err
	}
	return Find(ds, name)
}

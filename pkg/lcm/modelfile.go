package lcm

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// modelFile is the YAML shape of a model file. Filters and auxiliary
// functions are code and cannot be declared in a file.
type modelFile struct {
	Name     string              `yaml:"name"`
	NPeriods int                 `yaml:"n_periods"`
	States   map[string]GridSpec `yaml:"states"`
	Choices  map[string]GridSpec `yaml:"choices"`
}

// LoadModel reads and validates a YAML model file.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read model file %s", path)
	}

	model, err := parseModel(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse model file %s", path)
	}

	return model, nil
}

func parseModel(raw []byte) (*Model, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var mf modelFile
	if err := dec.Decode(&mf); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	model := &Model{
		Name:     mf.Name,
		NPeriods: mf.NPeriods,
		States:   mf.States,
		Choices:  mf.Choices,
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	return model, nil
}

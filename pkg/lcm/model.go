package lcm

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/iza-institute-of-labor-economics/lcm/pkg/lcm/dag"
	"github.com/iza-institute-of-labor-economics/lcm/pkg/lcm/grids"
)

// GridSpec describes the feasible values of a single variable, either as an
// explicit list of options or as a constructed grid.
type GridSpec struct {
	Options []float64  `yaml:"options,omitempty"`
	Kind    grids.Kind `yaml:"kind,omitempty"`
	Start   float64    `yaml:"start,omitempty"`
	Stop    float64    `yaml:"stop,omitempty"`
	Points  int        `yaml:"points,omitempty"`
}

// IsDiscrete reports whether the spec lists explicit options.
func (s GridSpec) IsDiscrete() bool {
	return len(s.Options) > 0
}

// Values materialises the grid.
func (s GridSpec) Values() ([]float64, error) {
	if s.IsDiscrete() {
		if s.Kind != "" {
			return nil, ErrAmbiguousGridSpec
		}

		return append([]float64(nil), s.Options...), nil
	}

	return grids.New(s.Kind, s.Start, s.Stop, s.Points)
}

// Model is the full specification of a dynamic choice model.
type Model struct {
	Name     string
	NPeriods int

	// States and Choices map variable names to their grids. Choices
	// without options are continuous and take no part in the
	// state-choice space.
	States  map[string]GridSpec
	Choices map[string]GridSpec

	// Functions derive variables that filters may read.
	Functions []dag.Func

	// Filters flag feasible combinations of states and discrete choices.
	Filters []dag.Predicate
}

// Validate checks the model for structural errors.
func (m *Model) Validate() error {
	if m == nil {
		return ErrModelMustBeSet
	}
	if len(m.States)+len(m.Choices) == 0 {
		return ErrNoVariables
	}
	if m.NPeriods < 0 {
		return ErrInvalidPeriods
	}

	for name := range m.Choices {
		if _, ok := m.States[name]; ok {
			return errors.Wrap(ErrDuplicateVariable, name)
		}
	}

	for name, spec := range m.States {
		if _, err := spec.Values(); err != nil {
			return errors.Wrapf(err, "state %s", name)
		}
	}
	for name, spec := range m.Choices {
		if _, err := spec.Values(); err != nil {
			return errors.Wrapf(err, "choice %s", name)
		}
	}

	// A function output overwriting a grid variable in scope would silently
	// corrupt every filter evaluation.
	for _, fn := range m.Functions {
		if err := m.checkShadow("function", fn.Name); err != nil {
			return err
		}
	}
	for _, filter := range m.Filters {
		if err := m.checkShadow("filter", filter.Name); err != nil {
			return err
		}
	}

	return nil
}

func (m *Model) checkShadow(kind, name string) error {
	if _, ok := m.States[name]; ok {
		return errors.Wrapf(ErrShadowedVariable, "%s %s", kind, name)
	}
	if _, ok := m.Choices[name]; ok {
		return errors.Wrapf(ErrShadowedVariable, "%s %s", kind, name)
	}

	return nil
}

// VariableNames returns the sorted names of all states and choices.
func (m *Model) VariableNames() []string {
	names := make([]string, 0, len(m.States)+len(m.Choices))
	for name := range m.States {
		names = append(names, name)
	}
	for name := range m.Choices {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

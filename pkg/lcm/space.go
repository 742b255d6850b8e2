package lcm

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/iza-institute-of-labor-economics/lcm/pkg/lcm/dag"
	"github.com/iza-institute-of-labor-economics/lcm/pkg/lcm/dispatch"
	"github.com/iza-institute-of-labor-economics/lcm/pkg/lcm/ndarray"
)

// Space is a compressed representation of all feasible states and feasible
// choices within them.
//
// Dense variables are those whose set of feasible values does not depend on
// any other variable; for them it is enough to store the plain grid in
// ValueGrid. For sparse variables all feasible combinations have to be
// stored: CombinationGrid holds one column per sparse variable, aligned so
// that row i is the i-th feasible combination.
type Space struct {
	ValueGrid       map[string][]float64
	CombinationGrid map[string][]float64
}

// CreateStateChoiceSpace builds the state-choice space of a model.
func CreateStateChoiceSpace(ctx context.Context, model *Model, opts ...Option) (*Space, error) {
	if model == nil {
		return nil, ErrModelMustBeSet
	}
	if err := model.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid model")
	}
	cfg := newConfig(opts)

	done := cfg.stage("grids")
	gridsByName, err := createGrids(model)
	done()
	if err != nil {
		return nil, err
	}

	dense, sparse, err := findDenseAndSparseVariables(model)
	if err != nil {
		return nil, err
	}

	combination, err := createCombinationGrid(ctx, cfg, gridsByName, sparse, model)
	if err != nil {
		return nil, err
	}

	return &Space{
		ValueGrid:       createValueGrid(gridsByName, dense),
		CombinationGrid: combination,
	}, nil
}

// CreateFilterMask evaluates all filters over the Cartesian product of the
// grids and returns a boolean array that is true where every filter passes.
// The mask axes follow the sorted names of the chosen subset.
func CreateFilterMask(ctx context.Context, gridsByName map[string][]float64, filters []dag.Predicate, opts ...Option) (*ndarray.Array[bool], error) {
	cfg := newConfig(opts)

	subset, err := resolveSubset(cfg, gridsByName)
	if err != nil {
		return nil, err
	}

	return filterMask(ctx, cfg, gridsByName, filters, subset)
}

func filterMask(ctx context.Context, cfg *config, gridsByName map[string][]float64, filters []dag.Predicate, subset []string) (*ndarray.Array[bool], error) {
	for _, fn := range cfg.aux {
		if _, ok := gridsByName[fn.Name]; ok {
			return nil, errors.Wrapf(ErrShadowedVariable, "function %s", fn.Name)
		}
	}
	for _, filter := range filters {
		if _, ok := gridsByName[filter.Name]; ok {
			return nil, errors.Wrapf(ErrShadowedVariable, "filter %s", filter.Name)
		}
	}

	comp, err := dag.Concatenate(cfg.aux, filters)
	if err != nil {
		return nil, errors.Wrap(err, "unable to compose filters")
	}

	axes := make([]dispatch.Axis, len(subset))
	for i, name := range subset {
		axes[i] = dispatch.Axis{Name: name, Values: gridsByName[name]}
	}

	done := cfg.stage("mask")
	defer done()

	mask, err := dispatch.ProductMap(ctx, comp.Eval, axes, cfg.fixed, cfg.workers)
	if err != nil {
		return nil, errors.Wrap(err, "unable to evaluate filter mask")
	}

	return mask, nil
}

// resolveSubset defaults to all grid variables and always returns sorted
// names. An explicitly empty subset stays empty and yields a scalar mask.
func resolveSubset(cfg *config, gridsByName map[string][]float64) ([]string, error) {
	if !cfg.subsetSet {
		return sortedKeys(gridsByName), nil
	}

	subset := append([]string(nil), cfg.subset...)
	for _, name := range subset {
		if _, ok := gridsByName[name]; !ok {
			return nil, errors.Wrap(ErrUnknownVariable, name)
		}
	}
	sort.Strings(subset)

	return subset, nil
}

// findDenseAndSparseVariables splits states and discrete choices by whether
// any filter depends on them.
func findDenseAndSparseVariables(model *Model) (dense, sparse map[string]struct{}, err error) {
	all := make(map[string]struct{}, len(model.States)+len(model.Choices))
	for name := range model.States {
		all[name] = struct{}{}
	}
	for name, spec := range model.Choices {
		if spec.IsDiscrete() {
			all[name] = struct{}{}
		}
	}

	filtered := make(map[string]struct{})
	for _, filter := range model.Filters {
		ancestors, err := dag.Ancestors(model.Functions, model.Filters, filter.Name)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "filter %s", filter.Name)
		}
		for _, name := range ancestors {
			filtered[name] = struct{}{}
		}
	}

	dense = make(map[string]struct{})
	sparse = make(map[string]struct{})
	for name := range all {
		if _, ok := filtered[name]; ok {
			sparse[name] = struct{}{}
		} else {
			dense[name] = struct{}{}
		}
	}

	return dense, sparse, nil
}

func createGrids(model *Model) (map[string][]float64, error) {
	out := make(map[string][]float64, len(model.States)+len(model.Choices))
	for name, spec := range model.States {
		values, err := spec.Values()
		if err != nil {
			return nil, errors.Wrapf(err, "state %s", name)
		}
		out[name] = values
	}
	for name, spec := range model.Choices {
		values, err := spec.Values()
		if err != nil {
			return nil, errors.Wrapf(err, "choice %s", name)
		}
		out[name] = values
	}

	return out, nil
}

// createCombinationGrid stores all feasible combinations of the sparse
// variables as aligned columns.
func createCombinationGrid(ctx context.Context, cfg *config, gridsByName map[string][]float64, sparse map[string]struct{}, model *Model) (map[string][]float64, error) {
	out := make(map[string][]float64, len(sparse))
	if len(sparse) == 0 {
		return out, nil
	}

	names := sortedKeys(sparse)

	maskCfg := *cfg
	maskCfg.aux = model.Functions

	mask, err := filterMask(ctx, &maskCfg, gridsByName, model.Filters, names)
	if err != nil {
		return nil, err
	}

	done := cfg.stage("combinations")
	defer done()

	for _, name := range names {
		out[name] = []float64{}
	}
	for flat, feasible := range mask.Data() {
		if !feasible {
			continue
		}
		coords := mask.Coords(flat)
		for i, name := range names {
			out[name] = append(out[name], gridsByName[name][coords[i]])
		}
	}

	return out, nil
}

func createValueGrid(gridsByName map[string][]float64, dense map[string]struct{}) map[string][]float64 {
	out := make(map[string][]float64, len(dense))
	for name := range dense {
		out[name] = gridsByName[name]
	}

	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

package lcm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iza-institute-of-labor-economics/lcm/pkg/lcm/dag"
	"github.com/iza-institute-of-labor-economics/lcm/pkg/lcm/dispatch"
	"github.com/iza-institute-of-labor-economics/lcm/pkg/lcm/grids"
)

// retirementModel has one dense state (wealth), two sparse variables
// (health, working) tied together by a filter, and one continuous choice
// (consumption) that takes no part in the state-choice space.
func retirementModel(t *testing.T) *Model {
	t.Helper()

	return &Model{
		Name:     "retirement",
		NPeriods: 3,
		States: map[string]GridSpec{
			"health": {Options: []float64{0, 1}},
			"wealth": {Kind: grids.Linspace, Start: 1, Stop: 3, Points: 3},
		},
		Choices: map[string]GridSpec{
			"working":     {Options: []float64{0, 1}},
			"consumption": {Kind: grids.Linspace, Start: 0, Stop: 10, Points: 5},
		},
		Filters: []dag.Predicate{
			{
				Name: "no_work_when_sick",
				Args: []string{"health", "working"},
				Fn: func(in map[string]float64) (bool, error) {
					return !(in["health"] == 0 && in["working"] == 1), nil
				},
			},
		},
	}
}

func TestCreateStateChoiceSpace(t *testing.T) {
	space, err := CreateStateChoiceSpace(context.Background(), retirementModel(t))
	require.NoError(t, err)

	// Wealth is the only dense variable: consumption is continuous and
	// health and working are constrained by the filter.
	require.Len(t, space.ValueGrid, 1)
	assert.Equal(t, []float64{1, 2, 3}, space.ValueGrid["wealth"])

	// Feasible combinations in sorted axis order (health, working):
	// (0,0), (1,0), (1,1). Only (0,1) is filtered out.
	require.Len(t, space.CombinationGrid, 2)
	assert.Equal(t, []float64{0, 1, 1}, space.CombinationGrid["health"])
	assert.Equal(t, []float64{0, 0, 1}, space.CombinationGrid["working"])
}

func TestCreateStateChoiceSpaceNoFilters(t *testing.T) {
	model := retirementModel(t)
	model.Filters = nil

	space, err := CreateStateChoiceSpace(context.Background(), model)
	require.NoError(t, err)

	// Without filters every variable is dense.
	assert.Len(t, space.ValueGrid, 3)
	assert.Empty(t, space.CombinationGrid)
}

func TestCreateStateChoiceSpaceAuxiliary(t *testing.T) {
	model := retirementModel(t)
	model.Functions = []dag.Func{
		{
			Name: "cash_on_hand",
			Args: []string{"wealth", "working"},
			Fn: func(in map[string]float64) (float64, error) {
				return in["wealth"] + 2*in["working"], nil
			},
		},
	}
	model.Filters = []dag.Predicate{
		{
			Name: "liquid",
			Args: []string{"cash_on_hand"},
			Fn: func(in map[string]float64) (bool, error) {
				return in["cash_on_hand"] >= 3, nil
			},
		},
	}

	space, err := CreateStateChoiceSpace(context.Background(), model)
	require.NoError(t, err)

	// The filter reaches wealth and working through cash_on_hand, so both
	// are sparse; health stays dense.
	assert.Equal(t, []float64{0, 1}, space.ValueGrid["health"])
	require.Len(t, space.ValueGrid, 1)

	// Axis order (wealth, working): feasible are wealth+2*working >= 3.
	assert.Equal(t, []float64{1, 2, 3, 3}, space.CombinationGrid["wealth"])
	assert.Equal(t, []float64{1, 1, 0, 1}, space.CombinationGrid["working"])
}

func TestCreateStateChoiceSpaceInvalidModel(t *testing.T) {
	_, err := CreateStateChoiceSpace(context.Background(), nil)
	assert.ErrorIs(t, err, ErrModelMustBeSet)

	_, err = CreateStateChoiceSpace(context.Background(), &Model{})
	assert.ErrorIs(t, err, ErrNoVariables)
}

func TestCreateStateChoiceSpaceDeterministic(t *testing.T) {
	first, err := CreateStateChoiceSpace(context.Background(), retirementModel(t), WithWorkers(4))
	require.NoError(t, err)

	second, err := CreateStateChoiceSpace(context.Background(), retirementModel(t), WithWorkers(1))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCreateStateChoiceSpaceTimings(t *testing.T) {
	var mu sync.Mutex
	stages := map[string]time.Duration{}

	_, err := CreateStateChoiceSpace(context.Background(), retirementModel(t), WithTimings(func(stage string, elapsed time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		stages[stage] = elapsed
	}))
	require.NoError(t, err)

	assert.Contains(t, stages, "grids")
	assert.Contains(t, stages, "mask")
	assert.Contains(t, stages, "combinations")
}

func TestCreateFilterMask(t *testing.T) {
	tcs := map[string]struct {
		workers int
	}{
		"sequential":    {workers: 1},
		"sequential v2": {workers: 0},
		"concurrent 8":  {workers: 8},
	}

	gridsByName := map[string][]float64{
		"health":  {0, 1},
		"working": {0, 1},
	}
	filters := []dag.Predicate{
		{
			Name: "no_work_when_sick",
			Args: []string{"health", "working"},
			Fn: func(in map[string]float64) (bool, error) {
				return !(in["health"] == 0 && in["working"] == 1), nil
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			mask, err := CreateFilterMask(context.Background(), gridsByName, filters, WithWorkers(tc.workers))
			require.NoError(t, err)

			assert.Equal(t, []int{2, 2}, mask.Shape())
			assert.Equal(t, []bool{true, false, true, true}, mask.Data())
		})
	}
}

func TestCreateFilterMaskSubsetAndFixedInputs(t *testing.T) {
	gridsByName := map[string][]float64{
		"age":    {60, 65, 70},
		"wealth": {0, 1},
	}
	filters := []dag.Predicate{
		{
			Name: "below_retirement_age",
			Args: []string{"age", "retirement_age"},
			Fn: func(in map[string]float64) (bool, error) {
				return in["age"] < in["retirement_age"], nil
			},
		},
	}

	mask, err := CreateFilterMask(context.Background(), gridsByName, filters,
		WithSubset("age"),
		WithFixedInputs(map[string]float64{"retirement_age": 67}),
	)
	require.NoError(t, err)

	assert.Equal(t, []int{3}, mask.Shape())
	assert.Equal(t, []bool{true, true, false}, mask.Data())
}

func TestCreateFilterMaskEmptySubset(t *testing.T) {
	gridsByName := map[string][]float64{"age": {60, 65, 70}}
	filters := []dag.Predicate{
		{
			Name: "young_cohort",
			Args: []string{"period"},
			Fn: func(in map[string]float64) (bool, error) {
				return in["period"] < 2, nil
			},
		},
	}

	// An explicitly empty subset evaluates the filters over the fixed
	// inputs alone and yields a scalar mask.
	mask, err := CreateFilterMask(context.Background(), gridsByName, filters,
		WithSubset(),
		WithFixedInputs(map[string]float64{"period": 1}),
	)
	require.NoError(t, err)

	assert.Empty(t, mask.Shape())
	assert.Equal(t, 1, mask.Len())
	assert.True(t, mask.At())

	mask, err = CreateFilterMask(context.Background(), gridsByName, filters,
		WithSubset(),
		WithFixedInputs(map[string]float64{"period": 3}),
	)
	require.NoError(t, err)
	assert.False(t, mask.At())
}

func TestCreateFilterMaskShadowedName(t *testing.T) {
	gridsByName := map[string][]float64{"wealth": {0, 1}}

	filters := []dag.Predicate{
		{
			Name: "wealth",
			Args: []string{"wealth"},
			Fn:   func(map[string]float64) (bool, error) { return true, nil },
		},
	}
	_, err := CreateFilterMask(context.Background(), gridsByName, filters)
	assert.ErrorIs(t, err, ErrShadowedVariable)

	aux := []dag.Func{
		{
			Name: "wealth",
			Args: []string{"income"},
			Fn:   func(map[string]float64) (float64, error) { return 0, nil },
		},
	}
	_, err = CreateFilterMask(context.Background(), gridsByName, nil, WithAuxiliary(aux...))
	assert.ErrorIs(t, err, ErrShadowedVariable)
}

func TestCreateFilterMaskUnknownSubset(t *testing.T) {
	_, err := CreateFilterMask(context.Background(), map[string][]float64{"age": {1}}, nil, WithSubset("height"))
	assert.ErrorIs(t, err, ErrUnknownVariable)
}

func TestCreateFilterMaskShadowedVariable(t *testing.T) {
	gridsByName := map[string][]float64{"age": {60, 65}}

	_, err := CreateFilterMask(context.Background(), gridsByName, nil,
		WithFixedInputs(map[string]float64{"age": 62}),
	)
	assert.ErrorIs(t, err, dispatch.ErrShadowedAxis)
}

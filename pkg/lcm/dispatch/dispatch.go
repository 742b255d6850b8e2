// Package dispatch evaluates scalar functions over Cartesian products of
// grids.
package dispatch

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/iza-institute-of-labor-economics/lcm/pkg/lcm/ndarray"
)

var (
	ErrFnMustBeSet   = errors.New("fn must be set")
	ErrEmptyAxis     = errors.New("axis must hold at least one value")
	ErrDuplicateAxis = errors.New("axis names must be unique")
	ErrShadowedAxis  = errors.New("fixed input shadows an axis")
)

// Axis is a named one-dimensional grid.
type Axis struct {
	Name   string
	Values []float64
}

// ProductMap evaluates fn at every point of the Cartesian product of the
// axes and returns the results as a boolean array whose shape follows the
// axis order. Fixed inputs are passed to every evaluation unchanged.
//
// The work fans out across the leading axis. Workers below 1 run the whole
// product sequentially.
func ProductMap(ctx context.Context, fn func(in map[string]float64) (bool, error), axes []Axis, fixed map[string]float64, workers int) (*ndarray.Array[bool], error) {
	if fn == nil {
		return nil, ErrFnMustBeSet
	}

	seen := make(map[string]struct{}, len(axes))
	shape := make([]int, len(axes))
	for i, axis := range axes {
		if len(axis.Values) == 0 {
			return nil, errors.Wrap(ErrEmptyAxis, axis.Name)
		}
		if _, ok := seen[axis.Name]; ok {
			return nil, errors.Wrap(ErrDuplicateAxis, axis.Name)
		}
		if _, ok := fixed[axis.Name]; ok {
			return nil, errors.Wrap(ErrShadowedAxis, axis.Name)
		}
		seen[axis.Name] = struct{}{}
		shape[i] = len(axis.Values)
	}

	out, err := ndarray.New[bool](shape...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to allocate result array")
	}

	if len(axes) == 0 {
		got, err := fn(clone(fixed))
		if err != nil {
			return nil, err
		}
		out.Set(got)

		return out, nil
	}

	if workers < 1 {
		workers = 1
	}

	// Each slab of the backing slice belongs to exactly one value of the
	// leading axis, so the workers write to disjoint ranges.
	slab := out.Len() / len(axes[0].Values)
	data := out.Data()

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(workers)
	for leadIdx := range axes[0].Values {
		localIdx := leadIdx
		errGrp.Go(func() error {
			return evalSlab(dCtx, fn, axes, fixed, localIdx, data[localIdx*slab:(localIdx+1)*slab])
		})
	}
	if err := errGrp.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// evalSlab walks the product of the trailing axes for one value of the
// leading axis.
func evalSlab(ctx context.Context, fn func(in map[string]float64) (bool, error), axes []Axis, fixed map[string]float64, leadIdx int, slab []bool) error {
	in := clone(fixed)
	in[axes[0].Name] = axes[0].Values[leadIdx]

	trailing := axes[1:]
	coords := make([]int, len(trailing))

	for flat := range slab {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "axis value %d:", leadIdx)
		default:
		}

		for axisIdx, axis := range trailing {
			in[axis.Name] = axis.Values[coords[axisIdx]]
		}

		got, err := fn(in)
		if err != nil {
			return errors.Wrapf(err, "axis value %d:", leadIdx)
		}
		slab[flat] = got

		// Advance the odometer, last axis fastest.
		for axisIdx := len(trailing) - 1; axisIdx >= 0; axisIdx-- {
			coords[axisIdx]++
			if coords[axisIdx] < len(trailing[axisIdx].Values) {
				break
			}
			coords[axisIdx] = 0
		}
	}

	return nil
}

func clone(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in)+4)
	for name, value := range in {
		out[name] = value
	}

	return out
}

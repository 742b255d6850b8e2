// Package grids provides one-dimensional grid constructors for model
// variables.
package grids

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrTooFewPoints   = errors.New("points must be at least 2")
	ErrLogspaceDomain = errors.New("start and stop must be greater than 0")
	ErrUnknownKind    = errors.New("unknown grid kind")
)

// Kind names a grid constructor.
type Kind string

const (
	Linspace Kind = "linspace"
	Logspace Kind = "logspace"
)

// NewLinspace returns points evenly spaced between start and stop, both
// included.
func NewLinspace(start, stop float64, points int) ([]float64, error) {
	if points < 2 {
		return nil, errors.Wrapf(ErrTooFewPoints, "got %d", points)
	}

	return floats.Span(make([]float64, points), start, stop), nil
}

// NewLogspace returns points spaced evenly on a logarithmic scale between
// start and stop, both included. Both endpoints must be positive.
func NewLogspace(start, stop float64, points int) ([]float64, error) {
	if points < 2 {
		return nil, errors.Wrapf(ErrTooFewPoints, "got %d", points)
	}
	if start <= 0 || stop <= 0 {
		return nil, errors.Wrapf(ErrLogspaceDomain, "got start=%g stop=%g", start, stop)
	}

	return floats.LogSpan(make([]float64, points), start, stop), nil
}

// New dispatches on the grid kind.
func New(kind Kind, start, stop float64, points int) ([]float64, error) {
	switch kind {
	case Linspace:
		return NewLinspace(start, stop, points)
	case Logspace:
		return NewLogspace(start, stop, points)
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
}

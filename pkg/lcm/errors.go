package lcm

import "github.com/pkg/errors"

var (
	ErrModelMustBeSet    = errors.New("model must be set")
	ErrNoVariables       = errors.New("model must declare at least one state or choice")
	ErrDuplicateVariable = errors.New("variable names must be unique")
	ErrInvalidPeriods    = errors.New("n_periods must not be negative")
	ErrAmbiguousGridSpec = errors.New("a grid spec cannot have both options and a kind")
	ErrUnknownVariable   = errors.New("unknown variable")
	ErrShadowedVariable  = errors.New("name shadows a grid variable")
)

package dag

import "github.com/pkg/errors"

var (
	ErrNameMustBeSet    = errors.New("name must be set")
	ErrFnMustBeSet      = errors.New("fn must be set")
	ErrDuplicateName    = errors.New("names must be unique")
	ErrPredicateAsInput = errors.New("a predicate cannot be an input")
	ErrMissingInput     = errors.New("missing input")
	ErrUnknownTarget    = errors.New("unknown target")
)

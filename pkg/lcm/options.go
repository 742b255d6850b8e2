package lcm

import (
	"time"

	"github.com/iza-institute-of-labor-economics/lcm/pkg/lcm/dag"
)

// Option configures mask and space construction.
type Option func(c *config)

// TimingFunc receives the duration of a finished construction stage.
type TimingFunc func(stage string, elapsed time.Duration)

type config struct {
	fixed     map[string]float64
	subset    []string
	subsetSet bool
	aux       []dag.Func
	workers   int
	timings   TimingFunc
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// WithFixedInputs passes extra scalar inputs, a model period for example, to
// every filter evaluation.
func WithFixedInputs(fixed map[string]float64) Option {
	return func(c *config) {
		c.fixed = fixed
	}
}

// WithSubset restricts the mask to the given grid variables. Calling it
// with no names yields a scalar mask over the fixed inputs alone.
func WithSubset(names ...string) Option {
	return func(c *config) {
		c.subset = names
		c.subsetSet = true
	}
}

// WithAuxiliary registers functions that derive variables needed by filters.
func WithAuxiliary(funcs ...dag.Func) Option {
	return func(c *config) {
		c.aux = funcs
	}
}

// WithWorkers bounds the fan-out of mask evaluation. Values below 1 run
// sequentially.
func WithWorkers(workers int) Option {
	return func(c *config) {
		c.workers = workers
	}
}

// WithTimings reports per-stage durations.
func WithTimings(fn TimingFunc) Option {
	return func(c *config) {
		c.timings = fn
	}
}

// stage starts a timer and returns the function that reports it.
func (c *config) stage(name string) func() {
	if c.timings == nil {
		return func() {}
	}
	start := time.Now()

	return func() {
		c.timings(name, time.Since(start))
	}
}

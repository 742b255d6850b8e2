// Package lcm generalises the specification of dynamic choice models and
// the construction of their state-choice spaces.
//
// A model declares state and choice variables over one-dimensional grids,
// auxiliary functions deriving further variables, and filters that flag
// infeasible combinations. The package compresses the resulting space into
// two parts: a value grid holding the plain grids of dense variables, whose
// feasible values do not depend on anything else, and a combination grid
// holding every feasible combination of the sparse variables, those that
// some filter depends on.
//
// Filters and auxiliary functions are composed through a function graph and
// evaluated over Cartesian products of grids, fanning out across workers.
// Construction stops on the first error.
package lcm

// Package dag composes named scalar functions into a single callable.
//
// Model code declares derived variables as functions of named inputs and
// feasibility filters as predicates over those inputs. The package wires
// them into a directed acyclic graph, rejects cycles, and compiles an
// evaluation plan that computes every derived variable exactly once before
// combining all predicates with a logical AND. It also answers ancestor
// queries: which root variables a given function or filter ultimately
// depends on.
package dag

package dag

import (
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/iza-institute-of-labor-economics/lcm/internal/gstore"
)

// Func computes a derived scalar from named inputs. An argument may name a
// root variable or the output of another Func.
type Func struct {
	Name string
	Args []string
	Fn   func(in map[string]float64) (float64, error)
}

// Predicate flags whether a combination of inputs is feasible. Its arguments
// follow the same rules as Func arguments.
type Predicate struct {
	Name string
	Args []string
	Fn   func(in map[string]float64) (bool, error)
}

// Composite is a compiled evaluation plan over functions and predicates.
type Composite struct {
	order []Func
	preds []Predicate
	vars  []string
}

// Concatenate wires functions and predicates into a directed acyclic graph
// and compiles an evaluation plan. Functions are ordered so that every
// argument is available before it is read.
func Concatenate(funcs []Func, preds []Predicate) (*Composite, error) {
	funcsByName := make(map[string]Func, len(funcs))
	predNames := make(map[string]struct{}, len(preds))

	for _, fn := range funcs {
		if fn.Name == "" {
			return nil, errors.Wrap(ErrNameMustBeSet, "function")
		}
		if fn.Fn == nil {
			return nil, errors.Wrapf(ErrFnMustBeSet, "function %s", fn.Name)
		}
		if _, ok := funcsByName[fn.Name]; ok {
			return nil, errors.Wrapf(ErrDuplicateName, "function %s", fn.Name)
		}
		funcsByName[fn.Name] = fn
	}

	for _, pred := range preds {
		if pred.Name == "" {
			return nil, errors.Wrap(ErrNameMustBeSet, "predicate")
		}
		if pred.Fn == nil {
			return nil, errors.Wrapf(ErrFnMustBeSet, "predicate %s", pred.Name)
		}
		if _, ok := funcsByName[pred.Name]; ok {
			return nil, errors.Wrapf(ErrDuplicateName, "predicate %s", pred.Name)
		}
		if _, ok := predNames[pred.Name]; ok {
			return nil, errors.Wrapf(ErrDuplicateName, "predicate %s", pred.Name)
		}
		predNames[pred.Name] = struct{}{}
	}

	g := graph.NewWithStore(graph.StringHash, gstore.New[string, string](), graph.Directed(), graph.PreventCycles())

	addVertex := func(name string) error {
		err := g.AddVertex(name)
		if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return errors.Wrapf(err, "unable to add vertex %s", name)
		}

		return nil
	}

	addConsumer := func(name string, args []string) error {
		if err := addVertex(name); err != nil {
			return err
		}
		for _, arg := range args {
			if _, ok := predNames[arg]; ok {
				return errors.Wrapf(ErrPredicateAsInput, "%s reads %s", name, arg)
			}
			if err := addVertex(arg); err != nil {
				return err
			}
			err := g.AddEdge(arg, name)
			if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return errors.Wrapf(err, "unable to add edge from %s to %s", arg, name)
			}
		}

		return nil
	}

	variables := make(map[string]struct{})
	markVariables := func(args []string) {
		for _, arg := range args {
			if _, ok := funcsByName[arg]; !ok {
				variables[arg] = struct{}{}
			}
		}
	}

	for _, fn := range funcs {
		if err := addConsumer(fn.Name, fn.Args); err != nil {
			return nil, err
		}
		markVariables(fn.Args)
	}
	for _, pred := range preds {
		if err := addConsumer(pred.Name, pred.Args); err != nil {
			return nil, err
		}
		markVariables(pred.Args)
	}

	sorted, err := graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, errors.Wrap(err, "unable to sort function graph")
	}

	order := make([]Func, 0, len(funcs))
	for _, name := range sorted {
		if fn, ok := funcsByName[name]; ok {
			order = append(order, fn)
		}
	}

	vars := make([]string, 0, len(variables))
	for name := range variables {
		vars = append(vars, name)
	}
	sort.Strings(vars)

	return &Composite{
		order: order,
		preds: append([]Predicate(nil), preds...),
		vars:  vars,
	}, nil
}

// Eval computes all functions in dependency order, then combines the
// predicates with a logical AND. A failing predicate short-circuits without
// error.
func (c *Composite) Eval(inputs map[string]float64) (bool, error) {
	scope := make(map[string]float64, len(inputs)+len(c.order))
	for name, value := range inputs {
		scope[name] = value
	}

	for _, fn := range c.order {
		args, err := gather(scope, fn.Args)
		if err != nil {
			return false, errors.Wrapf(err, "function %s", fn.Name)
		}
		out, err := fn.Fn(args)
		if err != nil {
			return false, errors.Wrapf(err, "function %s", fn.Name)
		}
		scope[fn.Name] = out
	}

	for _, pred := range c.preds {
		args, err := gather(scope, pred.Args)
		if err != nil {
			return false, errors.Wrapf(err, "predicate %s", pred.Name)
		}
		feasible, err := pred.Fn(args)
		if err != nil {
			return false, errors.Wrapf(err, "predicate %s", pred.Name)
		}
		if !feasible {
			return false, nil
		}
	}

	return true, nil
}

// Variables returns the sorted root inputs, that is all arguments that are
// not produced by a function.
func (c *Composite) Variables() []string {
	return append([]string(nil), c.vars...)
}

func gather(scope map[string]float64, args []string) (map[string]float64, error) {
	in := make(map[string]float64, len(args))
	for _, arg := range args {
		value, ok := scope[arg]
		if !ok {
			return nil, errors.Wrap(ErrMissingInput, arg)
		}
		in[arg] = value
	}

	return in, nil
}

// Ancestors returns the sorted root variables a target function or predicate
// ultimately depends on.
func Ancestors(funcs []Func, preds []Predicate, target string) ([]string, error) {
	argsByName := make(map[string][]string, len(funcs)+len(preds))
	for _, fn := range funcs {
		argsByName[fn.Name] = fn.Args
	}
	for _, pred := range preds {
		argsByName[pred.Name] = pred.Args
	}

	if _, ok := argsByName[target]; !ok {
		return nil, errors.Wrap(ErrUnknownTarget, target)
	}

	roots := make(map[string]struct{})
	visited := make(map[string]struct{})
	stack := []string{target}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := visited[current]; ok {
			continue
		}
		visited[current] = struct{}{}

		args, ok := argsByName[current]
		if !ok {
			roots[current] = struct{}{}

			continue
		}
		stack = append(stack, args...)
	}

	out := make([]string, 0, len(roots))
	for name := range roots {
		out = append(out, name)
	}
	sort.Strings(out)

	return out, nil
}

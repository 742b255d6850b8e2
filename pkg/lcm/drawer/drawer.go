// Package drawer renders the variable and function graph of a model as
// graphviz DOT.
package drawer

import (
	"fmt"
	"io"
	"text/template"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/iza-institute-of-labor-economics/lcm/pkg/lcm"
)

// Drawer collects the vertices and edges of a model graph and renders them
// as DOT. Variable vertices are filled on a blue to red gradient by grid
// cardinality, functions are boxes, filters are diamonds.
type Drawer struct {
	graph graph.Graph[string, string]
}

// New creates an empty drawer.
func New() *Drawer {
	return &Drawer{
		graph: graph.New(graph.StringHash, graph.Directed()),
	}
}

const maxRGB = 240

// AddModel adds all variables, functions and filters of the model.
func (d *Drawer) AddModel(model *lcm.Model) error {
	if err := model.Validate(); err != nil {
		return errors.Wrap(err, "invalid model")
	}

	points, minPoints, maxPoints := gridCardinalities(model)

	for _, name := range model.VariableNames() {
		hex, err := gradient(points[name], minPoints, maxPoints)
		if err != nil {
			return err
		}

		err = d.graph.AddVertex(name,
			graph.VertexAttribute("style", "filled"),
			graph.VertexAttribute("fillcolor", hex),
			graph.VertexAttribute("fontcolor", "white"),
			graph.VertexAttribute("xlabel", fmt.Sprintf("%d points", points[name])),
		)
		if err != nil {
			return errors.Wrapf(err, "unable to add variable %s", name)
		}
	}

	// Register all consumers before walking any argument lists, so that a
	// function consumed by an earlier-declared one still gets its shape.
	for _, fn := range model.Functions {
		if err := d.addConsumer(fn.Name, "box"); err != nil {
			return err
		}
	}
	for _, filter := range model.Filters {
		if err := d.addConsumer(filter.Name, "diamond"); err != nil {
			return err
		}
	}

	for _, fn := range model.Functions {
		if err := d.addArgs(fn.Name, fn.Args); err != nil {
			return err
		}
	}
	for _, filter := range model.Filters {
		if err := d.addArgs(filter.Name, filter.Args); err != nil {
			return err
		}
	}

	return nil
}

func (d *Drawer) addConsumer(name, shape string) error {
	err := d.graph.AddVertex(name, graph.VertexAttribute("shape", shape))
	if err != nil {
		return errors.Wrapf(err, "unable to add vertex %s", name)
	}

	return nil
}

func (d *Drawer) addArgs(name string, args []string) error {
	for _, arg := range args {
		err := d.graph.AddVertex(arg)
		if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return errors.Wrapf(err, "unable to add vertex %s", arg)
		}

		err = d.graph.AddEdge(arg, name)
		if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return errors.Wrapf(err, "unable to add edge from %s to %s", arg, name)
		}
	}

	return nil
}

// Draw renders the collected graph as DOT.
func (d *Drawer) Draw(wrt io.Writer) error {
	desc, err := generateDOT(d.graph)
	if err != nil {
		return errors.Wrap(err, "unable to generate DOT description")
	}

	return renderDOT(wrt, desc)
}

func gridCardinalities(model *lcm.Model) (points map[string]int, minPoints, maxPoints int) {
	points = make(map[string]int, len(model.States)+len(model.Choices))

	count := func(spec lcm.GridSpec) int {
		if spec.IsDiscrete() {
			return len(spec.Options)
		}

		return spec.Points
	}

	for name, spec := range model.States {
		points[name] = count(spec)
	}
	for name, spec := range model.Choices {
		points[name] = count(spec)
	}

	for _, n := range points {
		if minPoints == 0 || n < minPoints {
			minPoints = n
		}
		if n > maxPoints {
			maxPoints = n
		}
	}

	return points, minPoints, maxPoints
}

// gradient maps a grid cardinality to a hex color between blue (smallest
// grid) and red (largest grid).
func gradient(n, minPoints, maxPoints int) (string, error) {
	fraction := 0.0
	if maxPoints > minPoints {
		fraction = float64(n-minPoints) / float64(maxPoints-minPoints)
	}

	red := maxRGB * fraction
	blue := -maxRGB*fraction + maxRGB

	rgb, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}

	return rgb.ToHEX().String(), nil
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
	{{range $s := .Statements}}
	"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}"{{else}}[ {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}} ]{{end}};
	{{end}}
}
`

type description struct {
	GraphType    string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           string
	Target           string
	SourceAttributes map[string]string
}

func generateDOT(gra graph.Graph[string, string]) (description, error) {
	desc := description{
		GraphType:    "digraph",
		EdgeOperator: "->",
		Statements:   make([]statement, 0),
	}

	adjacencyMap, err := gra.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	for vertex, adjacencies := range adjacencyMap {
		_, properties, err := gra.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceAttributes: properties.Attributes,
		})

		for adjacency := range adjacencies {
			desc.Statements = append(desc.Statements, statement{
				Source: vertex,
				Target: adjacency,
			})
		}
	}

	return desc, nil
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "unable to parse template")
	}

	return tpl.Execute(wrt, desc)
}

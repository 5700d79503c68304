package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ChartKind names a chart renderer.
type ChartKind string

// Chart kinds.
const (
	ChartTable   ChartKind = "table"
	ChartLine    ChartKind = "line"
	ChartBar     ChartKind = "bar"
	ChartPie     ChartKind = "pie"
	ChartHeatmap ChartKind = "heatmap"
	ChartTreemap ChartKind = "treemap"
)

// ChartKinds lists every supported kind.
var ChartKinds = []ChartKind{ChartTable, ChartLine, ChartBar, ChartPie, ChartHeatmap, ChartTreemap}

// ChartSpec describes how a result is drawn. Only the fields of Kind are set:
//
//	table:           none
//	line, bar:       X, Y (one or more series)
//	pie:             Names, Values
//	heatmap:         Rows, Cols, Values
//	treemap:         Path (outermost first), Values
//
// Field values are column names, resolved against the result at render time.
type ChartSpec struct {
	Kind   ChartKind
	X      string
	Y      []string
	Names  string
	Values string
	Rows   string
	Cols   string
	Path   []string
}

// FieldRef is one column reference made by a chart.
type FieldRef struct {
	Field  string
	Column string
}

// Refs returns the column references of the chart in a stable order.
func (s ChartSpec) Refs() []FieldRef {
	var refs []FieldRef
	switch s.Kind {
	case ChartLine, ChartBar:
		refs = append(refs, FieldRef{"x", s.X})
		for _, y := range s.Y {
			refs = append(refs, FieldRef{"y", y})
		}
	case ChartPie:
		refs = append(refs, FieldRef{"names", s.Names}, FieldRef{"values", s.Values})
	case ChartHeatmap:
		refs = append(refs, FieldRef{"rows", s.Rows}, FieldRef{"cols", s.Cols}, FieldRef{"values", s.Values})
	case ChartTreemap:
		for _, p := range s.Path {
			refs = append(refs, FieldRef{"path", p})
		}
		refs = append(refs, FieldRef{"values", s.Values})
	}
	return refs
}

// check verifies that every field the kind needs is present.
func (s ChartSpec) check() error {
	for _, ref := range s.Refs() {
		if ref.Column == "" {
			return fmt.Errorf("%s chart requires %q", s.Kind, ref.Field)
		}
	}
	switch s.Kind {
	case ChartLine, ChartBar:
		if len(s.Y) == 0 {
			return fmt.Errorf("%s chart requires \"y\"", s.Kind)
		}
	case ChartTreemap:
		if len(s.Path) == 0 {
			return fmt.Errorf("treemap chart requires \"path\"")
		}
	}
	return nil
}

// chartYAML is the on-disk form of a chart. y and path accept a single
// column or a list.
type chartYAML struct {
	Type   string     `yaml:"type"`
	X      string     `yaml:"x"`
	Y      stringList `yaml:"y"`
	Names  string     `yaml:"names"`
	Values string     `yaml:"values"`
	Rows   string     `yaml:"rows"`
	Cols   string     `yaml:"cols"`
	Path   stringList `yaml:"path"`
}

// UnmarshalYAML decodes a chart and rejects unknown kinds.
func (s *ChartSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw chartYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}

	kind := ChartKind(raw.Type)
	if raw.Type == "" {
		kind = ChartTable
	}
	if !validKind(kind) {
		return &UnknownChartError{Kind: raw.Type, Line: node.Line}
	}

	spec := ChartSpec{Kind: kind}
	switch kind {
	case ChartLine, ChartBar:
		spec.X, spec.Y = raw.X, raw.Y
	case ChartPie:
		spec.Names, spec.Values = raw.Names, raw.Values
	case ChartHeatmap:
		spec.Rows, spec.Cols, spec.Values = raw.Rows, raw.Cols, raw.Values
	case ChartTreemap:
		spec.Path, spec.Values = raw.Path, raw.Values
	}
	if err := spec.check(); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	*s = spec
	return nil
}

func validKind(k ChartKind) bool {
	for _, known := range ChartKinds {
		if k == known {
			return true
		}
	}
	return false
}

type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*l = []string{node.Value}
		return nil
	}
	var items []string
	if err := node.Decode(&items); err != nil {
		return err
	}
	*l = items
	return nil
}

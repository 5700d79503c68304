package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"gopkg.in/yaml.v3"
)

//go:embed smart_kitchen.yaml
var defaultCatalog []byte

// Default returns the built-in smart kitchen catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog, "")
}

// Load reads a catalog file. An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data, path)
}

// DefaultYAML returns the source of the built-in catalog.
func DefaultYAML() []byte {
	return bytes.Clone(defaultCatalog)
}

// catalogYAML is the on-disk layout. Unknown keys are rejected.
type catalogYAML struct {
	Params     []paramYAML      `yaml:"params"`
	Relational []relationalYAML `yaml:"relational"`
	Document   []documentYAML   `yaml:"document"`
}

type paramYAML struct {
	Name    string    `yaml:"name"`
	Kind    string    `yaml:"kind"`
	Default yaml.Node `yaml:"default"`
	Min     *int64    `yaml:"min"`
	Max     *int64    `yaml:"max"`
	Label   string    `yaml:"label"`
	Slider  bool      `yaml:"slider"`
}

type relationalYAML struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	SQL         string    `yaml:"sql"`
	Chart       ChartSpec `yaml:"chart"`
	Tags        []string  `yaml:"tags"`
	Params      []string  `yaml:"params"`
}

type documentYAML struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Collection  string    `yaml:"collection"`
	Pipeline    yaml.Node `yaml:"pipeline"`
	Chart       ChartSpec `yaml:"chart"`
}

// Parse decodes a catalog document. source names it in errors. The result is
// structurally sound; call Validate for cross-reference checks.
func Parse(data []byte, source string) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var raw catalogYAML
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Source: source, Message: "empty document"}
		}
		return nil, &ParseError{Source: source, Message: err.Error()}
	}

	cat := &Catalog{Source: source}

	for _, p := range raw.Params {
		def, err := convertParam(p)
		if err != nil {
			return nil, &ParseError{Source: source, Message: err.Error()}
		}
		cat.Params = append(cat.Params, def)
	}

	for _, r := range raw.Relational {
		cat.Relational = append(cat.Relational, Entry{
			Name:        strings.TrimSpace(r.Name),
			Backend:     Relational,
			SQL:         strings.TrimSpace(r.SQL),
			Chart:       withDefaultChart(r.Chart),
			Tags:        r.Tags,
			Params:      r.Params,
			Description: r.Description,
		})
	}

	for _, d := range raw.Document {
		stages, err := convertPipeline(&d.Pipeline)
		if err != nil {
			return nil, &ParseError{Source: source, Message: fmt.Sprintf("%s: %v", d.Name, err)}
		}
		cat.Document = append(cat.Document, Entry{
			Name:        strings.TrimSpace(d.Name),
			Backend:     Document,
			Collection:  d.Collection,
			Pipeline:    stages,
			Chart:       withDefaultChart(d.Chart),
			Description: d.Description,
		})
	}

	return cat, nil
}

// withDefaultChart turns an omitted chart block into a table.
func withDefaultChart(s ChartSpec) ChartSpec {
	if s.Kind == "" {
		s.Kind = ChartTable
	}
	return s
}

func convertParam(p paramYAML) (ParamDef, error) {
	def := ParamDef{
		Name:   p.Name,
		Kind:   ParamKind(p.Kind),
		Min:    p.Min,
		Max:    p.Max,
		Label:  p.Label,
		Slider: p.Slider,
	}
	if def.Kind == "" {
		def.Kind = ParamInt
	}
	if def.Kind != ParamInt && def.Kind != ParamString {
		return ParamDef{}, fmt.Errorf("parameter %q: unknown kind %q", p.Name, p.Kind)
	}

	if p.Default.Kind == 0 || p.Default.Tag == "!!null" {
		return def, nil
	}
	if def.Kind == ParamString {
		def.Default = p.Default.Value
		return def, nil
	}
	n, err := strconv.ParseInt(p.Default.Value, 10, 64)
	if err != nil {
		return ParamDef{}, fmt.Errorf("parameter %q: default %q is not an integer", p.Name, p.Default.Value)
	}
	def.Default = n
	return def, nil
}

// convertPipeline turns a YAML sequence of mappings into stages, keeping the
// key order of every mapping.
func convertPipeline(node *yaml.Node) ([]bson.D, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: pipeline must be a list of stages", node.Line)
	}

	stages := make([]bson.D, 0, len(node.Content))
	for _, item := range node.Content {
		v, err := convertNode(item)
		if err != nil {
			return nil, err
		}
		stage, ok := v.(bson.D)
		if !ok {
			return nil, fmt.Errorf("line %d: pipeline stage must be a mapping", item.Line)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func convertNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return convertNode(node.Content[0])
	case yaml.AliasNode:
		return convertNode(node.Alias)
	case yaml.MappingNode:
		d := make(bson.D, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := convertNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			d = append(d, bson.E{Key: node.Content[i].Value, Value: v})
		}
		return d, nil
	case yaml.SequenceNode:
		a := make(bson.A, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := convertNode(item)
			if err != nil {
				return nil, err
			}
			a = append(a, v)
		}
		return a, nil
	case yaml.ScalarNode:
		return convertScalar(node)
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", node.Line)
}

func convertScalar(node *yaml.Node) (any, error) {
	switch node.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		return strconv.ParseBool(node.Value)
	case "!!int":
		n, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		if n >= -1<<31 && n < 1<<31 {
			return int32(n), nil
		}
		return n, nil
	case "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return f, nil
	}
	return node.Value, nil
}

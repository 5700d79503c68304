package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/querydash/internal/query"
)

// ParamKind is the value type of a parameter.
type ParamKind string

// Parameter kinds.
const (
	ParamInt    ParamKind = "int"
	ParamString ParamKind = "string"
)

// ParamDef declares one runtime parameter and how the UI collects it.
type ParamDef struct {
	Name    string
	Kind    ParamKind
	Default any
	Min     *int64
	Max     *int64
	Label   string
	// Slider asks the UI for a range control instead of a number box.
	Slider bool
}

// DisplayLabel returns the label, falling back to the name.
func (p ParamDef) DisplayLabel() string {
	if p.Label != "" {
		return p.Label
	}
	return p.Name
}

// Parse converts raw input into the parameter's value type and checks bounds.
func (p ParamDef) Parse(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if p.Kind == ParamString {
		return raw, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &query.BindingError{Param: p.Name, Reason: fmt.Sprintf("%q is not an integer", raw)}
	}
	if err := p.Check(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Check verifies v has the right type and lies within bounds.
func (p ParamDef) Check(v any) error {
	if p.Kind == ParamString {
		if _, ok := v.(string); !ok {
			return &query.BindingError{Param: p.Name, Reason: fmt.Sprintf("want a string, got %T", v)}
		}
		return nil
	}

	var n int64
	switch t := v.(type) {
	case int64:
		n = t
	case int:
		n = int64(t)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return &query.BindingError{Param: p.Name, Reason: fmt.Sprintf("%q is not an integer", t)}
		}
		n = parsed
	default:
		return &query.BindingError{Param: p.Name, Reason: fmt.Sprintf("want an integer, got %T", v)}
	}
	if p.Min != nil && n < *p.Min {
		return &query.BindingError{Param: p.Name, Reason: fmt.Sprintf("must be at least %d", *p.Min)}
	}
	if p.Max != nil && n > *p.Max {
		return &query.BindingError{Param: p.Name, Reason: fmt.Sprintf("must be at most %d", *p.Max)}
	}
	return nil
}

// Defaults returns a parameter context holding every declared default.
func (c *Catalog) Defaults() query.Params {
	out := make(query.Params, len(c.Params))
	for _, p := range c.Params {
		if p.Default != nil {
			out[p.Name] = p.Default
		}
	}
	return out
}

// Resolve builds a parameter context from the declared defaults overridden by
// raw values. Unknown names and out-of-range values are BindingErrors.
func (c *Catalog) Resolve(raw map[string]string) (query.Params, error) {
	out := c.Defaults()
	for name, value := range raw {
		def, ok := c.Param(name)
		if !ok {
			return nil, &query.BindingError{Param: name, Reason: "not a known parameter"}
		}
		v, err := def.Parse(value)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

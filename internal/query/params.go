package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Params is the parameter context: parameter name to int64 or string.
type Params map[string]any

// Select returns only the named parameters. A name missing from p is a
// BindingError; a nil value is never substituted for it.
func (p Params) Select(names []string) (Params, error) {
	out := make(Params, len(names))
	for _, name := range names {
		v, ok := p[name]
		if !ok {
			return nil, &BindingError{Param: name}
		}
		out[name] = v
	}
	return out, nil
}

// Keys returns the parameter names sorted.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the parameters as a stable k=v list.
func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return strings.Join(parts, ", ")
}

// FormatParam renders a parameter value the way a form field holds it.
func FormatParam(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return fmt.Sprint(v)
}

// ParseAssignments parses "name=value" pairs. Values that parse as integers
// become int64, everything else stays a string.
func ParseAssignments(pairs []string) (Params, error) {
	out := make(Params, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q (want name=value)", pair)
		}
		value = strings.TrimSpace(value)
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			out[name] = n
			continue
		}
		out[name] = value
	}
	return out, nil
}

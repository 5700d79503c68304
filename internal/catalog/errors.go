package catalog

import (
	"fmt"
	"strings"
)

// ParseError reports a catalog file that is not valid YAML or does not match
// the catalog layout.
type ParseError struct {
	Source  string
	Message string
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return "catalog: " + e.Message
	}
	return fmt.Sprintf("catalog %s: %s", e.Source, e.Message)
}

// UnknownChartError reports a chart type no renderer exists for.
type UnknownChartError struct {
	Kind string
	Line int
}

func (e *UnknownChartError) Error() string {
	return fmt.Sprintf("line %d: unknown chart type %q (want one of %s)", e.Line, e.Kind, kindList())
}

func kindList() string {
	names := make([]string, len(ChartKinds))
	for i, k := range ChartKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// ValidationError collects every problem found in a loaded catalog.
type ValidationError struct {
	Issues []Issue
}

// Issue is one validation finding.
type Issue struct {
	Entry   string
	Message string
}

func (i Issue) String() string {
	if i.Entry == "" {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.Entry, i.Message)
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "invalid catalog: " + e.Issues[0].String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "invalid catalog (%d issues):", len(e.Issues))
	for _, issue := range e.Issues {
		b.WriteString("\n  - ")
		b.WriteString(issue.String())
	}
	return b.String()
}

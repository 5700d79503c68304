package catalog

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/querydash/internal/query"
)

// Validate cross-checks the catalog and returns a *ValidationError listing
// every problem, or nil.
//
// Checked: names are present and unique, relational entries have SQL and
// document entries have a collection and stages, required parameters are
// declared, the SQL references exactly the required parameters, and tags
// name known roles.
func (c *Catalog) Validate() error {
	var issues []Issue
	add := func(entry, format string, args ...any) {
		issues = append(issues, Issue{Entry: entry, Message: fmt.Sprintf(format, args...)})
	}

	declared := map[string]bool{}
	for _, p := range c.Params {
		if p.Name == "" {
			add("", "parameter without a name")
			continue
		}
		if declared[p.Name] {
			add("", "parameter %q declared twice", p.Name)
		}
		declared[p.Name] = true
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			add("", "parameter %q: min %d exceeds max %d", p.Name, *p.Min, *p.Max)
		}
		if p.Default != nil {
			if err := p.Check(p.Default); err != nil {
				add("", "parameter %q: default: %v", p.Name, err)
			}
		}
	}

	names := map[string]bool{}
	check := func(e Entry) {
		if e.Name == "" {
			add("", "%s entry without a name", e.Backend)
			return
		}
		if names[e.Name] {
			add(e.Name, "duplicate entry name")
		}
		names[e.Name] = true

		for _, p := range e.Params {
			if !declared[p] {
				add(e.Name, "parameter %q is not declared", p)
			}
		}
	}

	for _, e := range c.Relational {
		check(e)
		if e.SQL == "" {
			add(e.Name, "missing sql")
			continue
		}
		referenced := query.ReferencedParams(e.SQL)
		for _, name := range referenced {
			if !slices.Contains(e.Params, name) {
				add(e.Name, "sql references :%s but the entry does not require it", name)
			}
		}
		for _, name := range e.Params {
			if !slices.Contains(referenced, name) {
				add(e.Name, "parameter %q is required but never referenced", name)
			}
		}
		for _, tag := range e.Tags {
			if !KnownRole(tag) {
				add(e.Name, "unknown role tag %q", tag)
			}
		}
	}

	for _, e := range c.Document {
		check(e)
		if e.Collection == "" {
			add(e.Name, "missing collection")
		}
		if len(e.Pipeline) == 0 {
			add(e.Name, "empty pipeline")
		}
	}

	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

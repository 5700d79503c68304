// Package catalog holds the named query definitions shown on the dashboard.
//
// A catalog is loaded from YAML (an embedded default or a user file) and is
// immutable afterwards. Relational entries carry SQL text with "{S}." schema
// placeholders and role tags; document entries carry an aggregation pipeline
// and the collection it runs against.
package catalog

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Backend identifies which executor runs an entry.
type Backend string

// Supported backends.
const (
	Relational Backend = "relational"
	Document   Backend = "document"
)

// Entry is one named query definition.
type Entry struct {
	Name    string
	Backend Backend

	// SQL is the relational query text, before schema qualification.
	SQL string

	// Collection and Pipeline describe a document query. Stages keep the key
	// order of the source file.
	Collection string
	Pipeline   []bson.D

	Chart ChartSpec

	// Tags are the roles an entry is meant for. Empty means every role.
	Tags []string

	// Params lists the runtime parameters the entry requires, in order.
	Params []string

	Description string
}

// Catalog is the full set of entries plus the parameters they may use.
type Catalog struct {
	Params     []ParamDef
	Relational []Entry
	Document   []Entry

	// Source is the file the catalog was read from, or "" for the default.
	Source string
}

// Entries returns the entries of one backend in file order.
func (c *Catalog) Entries(backend Backend) []Entry {
	switch backend {
	case Relational:
		return c.Relational
	case Document:
		return c.Document
	}
	return nil
}

// Lookup finds an entry by exact name in either backend.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	for _, e := range c.Relational {
		if e.Name == name {
			return e, true
		}
	}
	for _, e := range c.Document {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// LookupIn finds an entry by name within one backend.
func (c *Catalog) LookupIn(backend Backend, name string) (Entry, bool) {
	for _, e := range c.Entries(backend) {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Param returns the definition of a known parameter.
func (c *Catalog) Param(name string) (ParamDef, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamDef{}, false
}

// Len returns the total number of entries.
func (c *Catalog) Len() int {
	return len(c.Relational) + len(c.Document)
}

// Package query executes catalog queries against the relational and document
// backends and materializes their results.
package query

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed execution.
type ErrorKind string

// Error kinds surfaced to the interaction layer. None of them are retried.
const (
	KindConnection ErrorKind = "connection"
	KindBinding    ErrorKind = "binding"
	KindQuery      ErrorKind = "query"
	KindRender     ErrorKind = "render"
)

// ConnectionError reports an unreachable backend or an authentication failure.
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection failed: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// BindingError reports a parameter that is declared or referenced but has no value.
type BindingError struct {
	Param  string
	Reason string
}

func (e *BindingError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing value for parameter %q", e.Param)
	}
	return fmt.Sprintf("parameter %q: %s", e.Param, e.Reason)
}

// QueryError reports a statement or pipeline stage rejected by the backend.
type QueryError struct {
	Backend string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s query failed: %v", e.Backend, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// RenderError reports a chart field that names a column absent from the result.
type RenderError struct {
	Chart  string
	Field  string
	Column string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s chart: %s references unknown column %q", e.Chart, e.Field, e.Column)
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var (
		connErr   *ConnectionError
		bindErr   *BindingError
		queryErr  *QueryError
		renderErr *RenderError
	)
	switch {
	case errors.As(err, &connErr):
		return KindConnection
	case errors.As(err, &bindErr):
		return KindBinding
	case errors.As(err, &queryErr):
		return KindQuery
	case errors.As(err, &renderErr):
		return KindRender
	}
	return ""
}

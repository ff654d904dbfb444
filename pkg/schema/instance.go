package schema

import (
	"fmt"
	"strings"
)

// Factory constructs a validated model instance from input data. It runs the
// model's own validation and returns a *ValidationError on failure.
type Factory interface {
	New(data map[string]any) (Instance, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(data map[string]any) (Instance, error)

// New implements Factory.
func (fn FactoryFunc) New(data map[string]any) (Instance, error) {
	return fn(data)
}

// Instance is a validated model instance.
type Instance interface {
	// Values returns the final field values keyed by field name. Nested
	// models are returned as maps.
	Values() map[string]any
	// Value returns the native object.
	Value() any
}

// MapInstance is an Instance backed by a plain map.
type MapInstance map[string]any

// Values implements Instance.
func (m MapInstance) Values() map[string]any { return m }

// Value implements Instance.
func (m MapInstance) Value() any { return map[string]any(m) }

// Issue is one failed check reported by a validation model.
type Issue struct {
	Path    []string
	Message string
	Kind    string
}

// Location renders the path dotted.
func (i Issue) Location() string {
	return strings.Join(i.Path, ".")
}

// ValidationError is the validation model's native error type.
type ValidationError struct {
	Model  string
	Issues []Issue
}

// Add records an issue.
func (e *ValidationError) Add(kind, message string, path ...string) {
	e.Issues = append(e.Issues, Issue{Path: append([]string(nil), path...), Message: message, Kind: kind})
}

// HasIssues reports whether anything was recorded.
func (e *ValidationError) HasIssues() bool {
	return e != nil && len(e.Issues) > 0
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	noun := "errors"
	if len(e.Issues) == 1 {
		noun = "error"
	}
	fmt.Fprintf(&b, "%d validation %s for %s", len(e.Issues), noun, e.Model)
	for _, issue := range e.Issues {
		location := issue.Location()
		if location == "" {
			location = "__root__"
		}
		fmt.Fprintf(&b, "\n%s\n  %s", location, issue.Message)
		if issue.Kind != "" {
			fmt.Fprintf(&b, " [type=%s]", issue.Kind)
		}
	}
	return b.String()
}

package synth

import (
	"fmt"
	"strings"
)

// Warning codes emitted while mapping fields.
const (
	CodeUnmappedType       = "unmapped_type"
	CodeAmbiguousUnion     = "ambiguous_union"
	CodeUnsupportedTuple   = "unsupported_tuple"
	CodeUnsupportedMapKey  = "unsupported_map_key"
	CodeExclusiveBound     = "exclusive_bound"
	CodeConflictingBounds  = "conflicting_bounds"
	CodeInvalidPattern     = "invalid_pattern"
	CodeCustomContract     = "custom_serializer_contract"
	CodeDroppedConstraints = "dropped_constraints"
)

// Diagnostic is one non-fatal finding reported while synthesizing.
type Diagnostic struct {
	// Code identifies the kind of finding.
	Code string
	// Message is the human-readable description.
	Message string
	// Model is the model being synthesized.
	Model string
	// FieldPath is the dotted field path, empty for model-level findings.
	FieldPath string
}

// String renders the diagnostic as "Model.field: [code] message".
func (d Diagnostic) String() string {
	var prefix []string
	if d.Model != "" {
		prefix = append(prefix, d.Model)
	}
	if d.FieldPath != "" {
		prefix = append(prefix, d.FieldPath)
	}
	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}
	if len(prefix) > 0 {
		return strings.Join(prefix, ".") + ": " + msg
	}
	return msg
}

// Diagnostics collects warnings from one synthesis pass.
type Diagnostics struct {
	Warnings []Diagnostic
}

// AddWarning records a warning.
func (d *Diagnostics) AddWarning(code, message, model, fieldPath string) {
	d.Warnings = append(d.Warnings, Diagnostic{
		Code:      code,
		Message:   message,
		Model:     model,
		FieldPath: fieldPath,
	})
}

// Merge appends other's findings.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Warnings = append(d.Warnings, other.Warnings...)
}

// HasWarnings reports whether any warning was recorded.
func (d Diagnostics) HasWarnings() bool {
	return len(d.Warnings) > 0
}

// Codes lists warning codes in emission order.
func (d Diagnostics) Codes() []string {
	out := make([]string, len(d.Warnings))
	for i, w := range d.Warnings {
		out[i] = w.Code
	}
	return out
}

// ForField returns the warnings recorded for one field path.
func (d Diagnostics) ForField(model, fieldPath string) []Diagnostic {
	var out []Diagnostic
	for _, w := range d.Warnings {
		if w.Model == model && w.FieldPath == fieldPath {
			out = append(out, w)
		}
	}
	return out
}

func (d Diagnostics) String() string {
	lines := make([]string, len(d.Warnings))
	for i, w := range d.Warnings {
		lines[i] = "warning: " + w.String()
	}
	return strings.Join(lines, "\n")
}

package synth

import (
	"errors"
	"strings"
)

// ErrNilModel is returned when Build is called without a model.
var ErrNilModel = errors.New("synth: model is nil")

// FieldError describes why one field could not be converted.
type FieldError struct {
	Field   string
	Message string
}

// ModelError aggregates the field conversion failures of one model. It is a
// configuration error and is reported before the serializer is used.
type ModelError struct {
	Model  string
	Fields []FieldError
}

func (e *ModelError) Error() string {
	var b strings.Builder
	b.WriteString("synth: error when converting model: ")
	b.WriteString(e.Model)
	for _, f := range e.Fields {
		b.WriteString("\n  ")
		b.WriteString(f.Field)
		b.WriteString("\n    ")
		b.WriteString(f.Message)
	}
	return b.String()
}

func (e *ModelError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Package export renders described serializers as JSON Schema (draft
// 2020-12) documents describing the input each serializer accepts.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/invopop/jsonschema"

	"github.com/goliatone/go-serializergen/pkg/describe"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

const (
	defsPrefix     = "#/$defs/"
	decimalPattern = `^-?[0-9]+(\.[0-9]+)?$`
)

// Schema returns the input schema of the named model. The root references its
// serializer under $defs, where every nested serializer is emitted too, keyed
// by serializer class name.
func Schema(doc describe.Document, model string) (*jsonschema.Schema, error) {
	e := newExporter(doc)
	root, ok := e.byModel[model]
	if !ok {
		return nil, fmt.Errorf("export: model %q is not described", model)
	}
	e.visit(root.Serializer)
	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       root.Name,
		Ref:         defsPrefix + root.Serializer,
		Definitions: e.defs,
	}, nil
}

// Definitions returns a schema holding every described serializer under
// $defs.
func Definitions(doc describe.Document) *jsonschema.Schema {
	e := newExporter(doc)
	for _, m := range doc.Models {
		e.visit(m.Serializer)
	}
	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       doc.Title,
		Definitions: e.defs,
	}
}

// Renderer exposes the exporter as a describe renderer. With Model set, it
// renders that model's schema; otherwise the $defs of every model.
type Renderer struct {
	Model string
}

var _ describe.Renderer = Renderer{}

func (Renderer) Name() string        { return "jsonschema" }
func (Renderer) ContentType() string { return "application/schema+json" }

func (r Renderer) Render(ctx context.Context, doc describe.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var s *jsonschema.Schema
	if r.Model == "" {
		s = Definitions(doc)
	} else {
		var err error
		if s, err = Schema(doc, r.Model); err != nil {
			return nil, err
		}
	}
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: encode schema: %w", err)
	}
	return append(out, '\n'), nil
}

type exporter struct {
	byModel map[string]describe.Model
	byClass map[string]describe.Model
	defs    jsonschema.Definitions
}

func newExporter(doc describe.Document) *exporter {
	e := &exporter{
		byModel: make(map[string]describe.Model, len(doc.Models)),
		byClass: make(map[string]describe.Model, len(doc.Models)),
		defs:    make(jsonschema.Definitions),
	}
	for _, m := range doc.Models {
		e.byModel[m.Name] = m
		e.byClass[m.Serializer] = m
	}
	return e
}

// visit adds the class and every class it nests to $defs. A placeholder is
// stored first so recursive classes terminate.
func (e *exporter) visit(class string) {
	if _, done := e.defs[class]; done {
		return
	}
	m, ok := e.byClass[class]
	if !ok {
		e.defs[class] = &jsonschema.Schema{Type: "object", Title: class}
		return
	}
	e.defs[class] = &jsonschema.Schema{}
	def := e.object(m)
	def.Title = m.Name
	e.defs[class] = def
	for _, f := range m.Fields {
		for cur := &f; cur != nil; cur = cur.Child {
			if cur.Nested != "" {
				e.visit(cur.Nested)
			}
		}
	}
}

func (e *exporter) object(m describe.Model) *jsonschema.Schema {
	out := &jsonschema.Schema{
		Type:        "object",
		Description: m.Description,
		Properties:  jsonschema.NewProperties(),
	}
	for _, f := range m.Fields {
		out.Properties.Set(f.Name, e.field(f))
		if required(f) {
			out.Required = append(out.Required, f.Name)
		}
	}
	return out
}

func (e *exporter) field(f describe.Field) *jsonschema.Schema {
	s := e.base(f)
	if help, ok := f.Options[serializer.OptHelpText].(string); ok {
		s.Description = help
	}
	if label, ok := f.Options[serializer.OptLabel].(string); ok {
		s.Title = label
	}
	if v, ok := f.Options[serializer.OptDefault]; ok && v != describe.FactoryMarker {
		s.Default = v
	}
	if allowNull, _ := f.Options[serializer.OptAllowNull].(bool); allowNull {
		return &jsonschema.Schema{
			Title:       s.Title,
			Description: s.Description,
			Default:     s.Default,
			AnyOf:       []*jsonschema.Schema{s, {Type: "null"}},
		}
	}
	return s
}

func (e *exporter) base(f describe.Field) *jsonschema.Schema {
	switch serializer.FieldClass(f.Class) {
	case serializer.ClassChar:
		s := &jsonschema.Schema{Type: "string"}
		textBounds(s, f)
		return s
	case serializer.ClassEmail:
		s := &jsonschema.Schema{Type: "string", Format: "email"}
		textBounds(s, f)
		return s
	case serializer.ClassURL:
		s := &jsonschema.Schema{Type: "string", Format: "uri"}
		textBounds(s, f)
		return s
	case serializer.ClassRegex:
		s := &jsonschema.Schema{Type: "string"}
		s.Pattern, _ = f.Options[serializer.OptRegex].(string)
		textBounds(s, f)
		return s
	case serializer.ClassUUID:
		return &jsonschema.Schema{Type: "string", Format: "uuid"}
	case serializer.ClassInteger:
		s := &jsonschema.Schema{Type: "integer"}
		valueBounds(s, f)
		return s
	case serializer.ClassFloat:
		s := &jsonschema.Schema{Type: "number"}
		valueBounds(s, f)
		return s
	case serializer.ClassDecimal:
		number := &jsonschema.Schema{Type: "number"}
		valueBounds(number, f)
		return &jsonschema.Schema{AnyOf: []*jsonschema.Schema{
			number,
			{Type: "string", Pattern: decimalPattern},
		}}
	case serializer.ClassBoolean:
		return &jsonschema.Schema{Type: "boolean"}
	case serializer.ClassDateTime:
		return &jsonschema.Schema{Type: "string", Format: "date-time"}
	case serializer.ClassDate:
		return &jsonschema.Schema{Type: "string", Format: "date"}
	case serializer.ClassTime:
		return &jsonschema.Schema{Type: "string", Format: "time"}
	case serializer.ClassDuration:
		return &jsonschema.Schema{Type: "string", Format: "duration"}
	case serializer.ClassChoice:
		choices, _ := f.Options[serializer.OptChoices].([]any)
		enum := append([]any(nil), choices...)
		if allowBlank, _ := f.Options[serializer.OptAllowBlank].(bool); allowBlank {
			enum = append(enum, "")
		}
		return &jsonschema.Schema{Enum: enum}
	case serializer.ClassBytes:
		return &jsonschema.Schema{Type: "string", ContentEncoding: "base64"}
	case serializer.ClassList:
		s := &jsonschema.Schema{Type: "array"}
		if f.Child != nil {
			s.Items = e.field(*f.Child)
		}
		if n, ok := intOption(f, serializer.OptMinLength); ok {
			s.MinItems = &n
		} else if !allowEmpty(f) {
			one := uint64(1)
			s.MinItems = &one
		}
		if n, ok := intOption(f, serializer.OptMaxLength); ok {
			s.MaxItems = &n
		}
		return s
	case serializer.ClassDict:
		s := &jsonschema.Schema{Type: "object"}
		if f.Child != nil {
			s.AdditionalProperties = e.field(*f.Child)
		}
		if !allowEmpty(f) {
			one := uint64(1)
			s.MinProperties = &one
		}
		return s
	case serializer.ClassSerializer:
		if f.Nested == "" {
			return &jsonschema.Schema{Type: "object"}
		}
		return &jsonschema.Schema{Ref: defsPrefix + f.Nested}
	}
	return &jsonschema.Schema{}
}

func textBounds(s *jsonschema.Schema, f describe.Field) {
	if n, ok := intOption(f, serializer.OptMinLength); ok {
		s.MinLength = &n
	} else if allowBlank, _ := f.Options[serializer.OptAllowBlank].(bool); !allowBlank {
		one := uint64(1)
		s.MinLength = &one
	}
	if n, ok := intOption(f, serializer.OptMaxLength); ok {
		s.MaxLength = &n
	}
}

func valueBounds(s *jsonschema.Schema, f describe.Field) {
	if v, ok := f.Options[serializer.OptMinValue].(float64); ok {
		s.Minimum = number(v)
	}
	if v, ok := f.Options[serializer.OptMaxValue].(float64); ok {
		s.Maximum = number(v)
	}
}

func number(v float64) json.Number {
	return json.Number(strconv.FormatFloat(v, 'f', -1, 64))
}

func intOption(f describe.Field, name string) (uint64, bool) {
	switch v := f.Options[name].(type) {
	case int:
		if v >= 0 {
			return uint64(v), true
		}
	case float64:
		if v >= 0 {
			return uint64(v), true
		}
	}
	return 0, false
}

func allowEmpty(f describe.Field) bool {
	if v, ok := f.Options[serializer.OptAllowEmpty].(bool); ok {
		return v
	}
	return true
}

// required mirrors serializer.Field.Required: an explicit option wins,
// otherwise fields without a default are required.
func required(f describe.Field) bool {
	if v, ok := f.Options[serializer.OptRequired].(bool); ok {
		return v
	}
	_, hasDefault := f.Options[serializer.OptDefault]
	return !hasDefault
}

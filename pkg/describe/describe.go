package describe

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-serializergen/pkg/config"
	"github.com/goliatone/go-serializergen/pkg/registry"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

// Origins of a described serializer class.
const (
	OriginSynthesized = "synthesized"
	OriginCustom      = "custom"
	OriginDerived     = "derived"
)

// FactoryMarker stands in for default factories, which have no plain value.
const FactoryMarker = "<factory>"

// Document is the described set of models.
type Document struct {
	Title  string  `json:"title,omitempty" yaml:"title,omitempty"`
	Models []Model `json:"models" yaml:"models"`
}

// Model describes one defined model and its serializer class.
type Model struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Parent      string        `json:"parent,omitempty" yaml:"parent,omitempty"`
	Serializer  string        `json:"serializer" yaml:"serializer"`
	Base        string        `json:"base,omitempty" yaml:"base,omitempty"`
	Origin      string        `json:"origin" yaml:"origin"`
	Config      config.Config `json:"config" yaml:"config"`
	Fields      []Field       `json:"fields" yaml:"fields"`
	Warnings    []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Field returns the described field called name.
func (m Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Field describes one serializer field. Child is set for list and dict
// fields, Nested names the class of nested serializer fields.
type Field struct {
	Name     string         `json:"name,omitempty" yaml:"name,omitempty"`
	Class    string         `json:"class" yaml:"class"`
	Options  map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
	Child    *Field         `json:"child,omitempty" yaml:"child,omitempty"`
	Nested   string         `json:"nested,omitempty" yaml:"nested,omitempty"`
	Override bool           `json:"override,omitempty" yaml:"override,omitempty"`
}

// Describe describes every definition held by reg.
func Describe(reg *registry.Registry, title string) Document {
	doc := FromDefinitions(reg.Definitions()...)
	doc.Title = title
	return doc
}

// FromDefinitions describes defs, ordered by model name.
func FromDefinitions(defs ...*registry.Definition) Document {
	doc := Document{Models: make([]Model, 0, len(defs))}
	for _, def := range defs {
		if def == nil || def.Model == nil || def.Serializer == nil {
			continue
		}
		doc.Models = append(doc.Models, describeModel(def))
	}
	sort.SliceStable(doc.Models, func(i, j int) bool {
		return doc.Models[i].Name < doc.Models[j].Name
	})
	return doc
}

func describeModel(def *registry.Definition) Model {
	class := def.Serializer
	out := Model{
		Name:        def.Model.Name,
		Description: def.Model.Description,
		Serializer:  class.Name(),
		Origin:      OriginSynthesized,
		Config:      def.Config,
	}
	if def.Model.Parent != nil {
		out.Parent = def.Model.Parent.Name
	}
	if base := class.Base(); base != nil {
		out.Base = base.Name()
	}
	switch {
	case def.Spec.Custom:
		out.Origin = OriginCustom
	case def.Spec.Derived:
		out.Origin = OriginDerived
	}

	overrides := make(map[string]bool, len(def.Spec.Overrides))
	for _, name := range def.Spec.Overrides {
		overrides[name] = true
	}
	for _, name := range class.Fields() {
		f, _ := class.Field(name)
		described := describeField(f)
		described.Name = name
		described.Override = overrides[name]
		out.Fields = append(out.Fields, described)
	}
	for _, w := range def.Diagnostics.Warnings {
		out.Warnings = append(out.Warnings, w.String())
	}
	return out
}

func describeField(f *serializer.Field) Field {
	out := Field{Class: string(f.Class())}
	if opts := f.Options(); len(opts) > 0 {
		out.Options = make(map[string]any, len(opts))
		for key, value := range opts {
			out.Options[key] = plainOption(value)
		}
	}
	if child := f.Child(); child != nil {
		described := describeField(child)
		out.Child = &described
	}
	if nested := f.Nested(); nested != nil {
		out.Nested = nested.Name()
	}
	return out
}

func plainOption(v any) any {
	switch x := v.(type) {
	case func() any:
		return FactoryMarker
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plainOption(e)
		}
		return out
	case fmt.Stringer:
		return x.String()
	}
	return v
}

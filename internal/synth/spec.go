package synth

import (
	"github.com/goliatone/go-serializergen/pkg/config"
	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

// FieldSpec is the mapping of one model field (or container element) to a
// serializer field class and its constructor options. Every option key is
// accepted by Class.
type FieldSpec struct {
	Name    string                `json:"name,omitempty"`
	Class   serializer.FieldClass `json:"class"`
	Options serializer.Options    `json:"options,omitempty"`
	Child   *FieldSpec            `json:"child,omitempty"`
	Nested  string                `json:"nested,omitempty"`

	nested *serializer.Class
}

// NestedClass returns the serializer class referenced by a nested spec.
func (s FieldSpec) NestedClass() *serializer.Class {
	return s.nested
}

// ClassSpec is the synthesized description of one model's serializer.
// Fields holds exactly the model fields that were neither overridden nor
// covered by a custom serializer.
type ClassSpec struct {
	Model     string      `json:"model"`
	Name      string      `json:"name"`
	Base      string      `json:"base,omitempty"`
	Fields    []FieldSpec `json:"fields,omitempty"`
	Overrides []string    `json:"overrides,omitempty"`
	Custom    bool        `json:"custom,omitempty"`
	Derived   bool        `json:"derived,omitempty"`
}

// Field returns the synthesized spec for name.
func (c ClassSpec) Field(name string) (FieldSpec, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Built is one model's synthesis outcome.
type Built struct {
	Model  *schema.Model
	Class  *serializer.Class
	Spec   ClassSpec
	Config config.Config
}

// Result is the outcome of synthesizing a model and everything it reaches.
type Result struct {
	Class       *serializer.Class
	Spec        ClassSpec
	Config      config.Config
	Models      []Built
	Diagnostics Diagnostics
}

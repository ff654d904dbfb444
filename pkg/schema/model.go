package schema

import (
	"github.com/goliatone/go-serializergen/pkg/config"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

// Constraints are the annotations a validation model attaches to a field.
// Nil pointers are unset.
type Constraints struct {
	MinLength     *int
	MaxLength     *int
	Pattern       string
	Ge            *float64
	Gt            *float64
	Le            *float64
	Lt            *float64
	MaxDigits     *int
	DecimalPlaces *int
}

// Int returns a pointer to v for constraint literals.
func Int(v int) *int { return &v }

// Number returns a pointer to v for constraint literals.
func Number(v float64) *float64 { return &v }

// IsZero reports whether no constraint is set.
func (c Constraints) IsZero() bool {
	return c.MinLength == nil && c.MaxLength == nil && c.Pattern == "" &&
		c.Ge == nil && c.Gt == nil && c.Le == nil && c.Lt == nil &&
		c.MaxDigits == nil && c.DecimalPlaces == nil
}

// Field is one field of a validation model. It is read-only input to the
// synthesizer.
type Field struct {
	Name           string
	Type           Type
	Nullable       bool
	Optional       bool
	Default        any
	HasDefault     bool
	DefaultFactory func() any
	Description    string
	Title          string
	Constraints    Constraints

	// Overrides holds manually declared serializer fields. At most one entry is
	// allowed and it must be a *serializer.Field; anything else is rejected
	// when the model is defined.
	Overrides []any
}

// IsNullable reports whether null is an accepted value.
func (f Field) IsNullable() bool {
	return f.Nullable || f.Type.AdmitsNull()
}

// IsRequired reports whether input must provide the field: it has no
// default, is not nullable and may not be omitted.
func (f Field) IsRequired() bool {
	return !f.HasDefault && f.DefaultFactory == nil && !f.IsNullable() && !f.Optional
}

// Model describes one validation model. Parent links form the statically
// known ancestor chain used for field inheritance and config merging.
type Model struct {
	Name        string
	Description string
	Parent      *Model
	Fields      []Field

	// Config is the overlay declared at this level of the hierarchy.
	Config config.Overlay

	// Serializer, when set, is used as-is instead of synthesizing one. It is
	// never inherited by child models.
	Serializer *serializer.Class

	// Factory constructs and validates instances for secondary validation.
	Factory Factory
}

// Definition is implemented by anything that can describe itself as a
// validation model.
type Definition interface {
	ModelDefinition() *Model
}

// ModelDefinition implements Definition.
func (m *Model) ModelDefinition() *Model {
	return m
}

// Lineage returns the ancestor chain, root first and m last. A parent cycle
// is cut at the first repeated model.
func (m *Model) Lineage() []*Model {
	var chain []*Model
	seen := make(map[*Model]struct{})
	for cur := m; cur != nil; cur = cur.Parent {
		if _, ok := seen[cur]; ok {
			break
		}
		seen[cur] = struct{}{}
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Overlays returns the config overlays declared along the lineage, root
// first.
func (m *Model) Overlays() []config.Overlay {
	lineage := m.Lineage()
	out := make([]config.Overlay, 0, len(lineage))
	for _, level := range lineage {
		out = append(out, level.Config)
	}
	return out
}

// AllFields returns inherited fields followed by fields introduced at this
// level. A redeclared name replaces the inherited field in place.
func (m *Model) AllFields() []Field {
	var out []Field
	index := make(map[string]int)
	for _, level := range m.Lineage() {
		for _, field := range level.Fields {
			if i, ok := index[field.Name]; ok {
				out[i] = field
				continue
			}
			index[field.Name] = len(out)
			out = append(out, field)
		}
	}
	return out
}

// Field returns the named field, searching inherited fields too.
func (m *Model) Field(name string) (Field, bool) {
	for _, field := range m.AllFields() {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// DeclaresFields reports whether this level introduces or redeclares fields.
func (m *Model) DeclaresFields() bool {
	return len(m.Fields) > 0
}

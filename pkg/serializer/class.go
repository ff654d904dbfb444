package serializer

import (
	"errors"
	"fmt"
)

// RunFunc validates data for one serializer instance and returns the
// validated mapping.
type RunFunc func(s *Serializer, data map[string]any) (map[string]any, error)

// Middleware wraps the validation entry point of a class.
type Middleware func(next RunFunc) RunFunc

// ObjectValidator runs after every field validated. Returning a
// *ValidationError reports its detail, any other error becomes a non-field
// message.
type ObjectValidator func(attrs map[string]any) error

type namedField struct {
	name  string
	field *Field
}

// Class is a serializer definition: an ordered set of named fields plus
// object validators and entry point middleware. Classes are mutated while
// being defined and are read-only afterwards.
type Class struct {
	name       string
	base       *Class
	fields     []namedField
	index      map[string]int
	validators []ObjectValidator
	middleware []Middleware
	metadata   map[string]any
}

// NewClass creates a class inheriting the declared fields and object
// validators of base. Middleware and metadata are not inherited.
func NewClass(name string, base *Class) *Class {
	c := &Class{
		name:  name,
		base:  base,
		index: make(map[string]int),
	}
	if base != nil {
		for _, nf := range base.fields {
			c.index[nf.name] = len(c.fields)
			c.fields = append(c.fields, nf)
		}
		c.validators = append(c.validators, base.validators...)
	}
	return c
}

// Name returns the class name.
func (c *Class) Name() string {
	return c.name
}

// Base returns the class this one was derived from.
func (c *Class) Base() *Class {
	return c.base
}

// DerivesFrom reports whether other is c or one of its ancestors.
func (c *Class) DerivesFrom(other *Class) bool {
	if other == nil {
		return false
	}
	for cur := c; cur != nil; cur = cur.base {
		if cur == other {
			return true
		}
	}
	return false
}

// Declare adds a field, replacing an inherited field of the same name in
// place.
func (c *Class) Declare(name string, field *Field) error {
	if name == "" {
		return errors.New("serializer: field name is required")
	}
	if field == nil {
		return fmt.Errorf("serializer: field %q is nil", name)
	}
	if i, ok := c.index[name]; ok {
		c.fields[i].field = field
		return nil
	}
	c.index[name] = len(c.fields)
	c.fields = append(c.fields, namedField{name: name, field: field})
	return nil
}

// MustDeclare is Declare that panics on error.
func (c *Class) MustDeclare(name string, field *Field) *Class {
	if err := c.Declare(name, field); err != nil {
		panic(err)
	}
	return c
}

// Fields returns the declared field names in declaration order.
func (c *Class) Fields() []string {
	out := make([]string, len(c.fields))
	for i, nf := range c.fields {
		out[i] = nf.name
	}
	return out
}

// Field returns the named field.
func (c *Class) Field(name string) (*Field, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.fields[i].field, true
}

// Len returns the number of declared fields.
func (c *Class) Len() int {
	return len(c.fields)
}

// AddValidator registers an object-level validator.
func (c *Class) AddValidator(v ObjectValidator) {
	if v != nil {
		c.validators = append(c.validators, v)
	}
}

// Use wraps the validation entry point. The first registered middleware is
// the outermost.
func (c *Class) Use(mw Middleware) {
	if mw != nil {
		c.middleware = append(c.middleware, mw)
	}
}

// SetMetadata attaches class-level data, such as the model a class was
// synthesized from.
func (c *Class) SetMetadata(key string, value any) {
	if c.metadata == nil {
		c.metadata = make(map[string]any)
	}
	c.metadata[key] = value
}

// Metadata returns class-level data set with SetMetadata.
func (c *Class) Metadata(key string) (any, bool) {
	v, ok := c.metadata[key]
	return v, ok
}

// New binds input data to a fresh serializer instance.
func (c *Class) New(data map[string]any) *Serializer {
	return &Serializer{class: c, data: data}
}

func (c *Class) execute(s *Serializer, data map[string]any) (map[string]any, error) {
	run := RunFunc(c.core)
	for i := len(c.middleware) - 1; i >= 0; i-- {
		run = c.middleware[i](run)
	}
	return run(s, data)
}

func (c *Class) core(_ *Serializer, data map[string]any) (map[string]any, error) {
	if data == nil {
		return nil, NonFieldError(msgNoData)
	}

	col := newCollector()
	out := c.runFields("", data, col)
	if col.fatal != nil {
		return nil, col.fatal
	}
	if !col.detail.Empty() {
		return nil, NewValidationError(col.detail)
	}

	for _, validate := range c.validators {
		if err := validate(out); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				return nil, verr
			}
			return nil, NonFieldError(err.Error())
		}
	}
	return out, nil
}

func (c *Class) runFields(prefix string, data map[string]any, col *collector) map[string]any {
	out := make(map[string]any, len(c.fields))
	for _, nf := range c.fields {
		path := joinPath(prefix, nf.name)
		raw, present := data[nf.name]
		if !present {
			if def, ok := nf.field.Default(); ok {
				out[nf.name] = def
				continue
			}
			if nf.field.Required() {
				col.detail.Add(path, msgRequired)
			}
			continue
		}
		value, ok := nf.field.run(path, raw, col)
		if col.fatal != nil {
			return nil
		}
		if ok {
			out[nf.name] = value
		}
	}
	return out
}

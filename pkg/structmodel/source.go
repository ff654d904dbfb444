// Package structmodel describes Go structs as validation models. Struct tags
// carry names, constraints and documentation; instances are decoded with
// mapstructure and validated with go-playground/validator.
//
// Supported tags:
//
//	json         field name, "-" skips, omitempty makes the field optional
//	validate     min, max, len, gte, lte, gt, lt, email, url, uri, uuid,
//	             oneof, omitempty; parsing stops at dive
//	description  help text
//	title        label
//	default      default value, parsed for the field type
//	pattern      regular expression for string fields
//	format       date, time, date-time, email, url, uri, uuid, decimal
//	decimal      "digits,places" for decimal fields
//
// The first embedded struct is the parent model; other embedded structs are
// flattened into the model.
package structmodel

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-serializergen/pkg/config"
	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

// ErrNotStruct is returned when a sample is not a struct or pointer to one.
var ErrNotStruct = errors.New("structmodel: sample must be a struct")

// Enum is implemented by types with a closed set of values.
type Enum interface {
	EnumValues() []any
}

// Normalizer is implemented by structs that transform or reject their own
// values after tag validation. Nested structs are normalized first.
type Normalizer interface {
	Normalize() error
}

// Option configures the model registered for a struct.
type Option func(*schema.Model)

// WithName overrides the model name, which defaults to the Go type name.
func WithName(name string) Option {
	return func(m *schema.Model) {
		if name != "" {
			m.Name = name
		}
	}
}

// WithDescription sets the model description.
func WithDescription(description string) Option {
	return func(m *schema.Model) {
		m.Description = description
	}
}

// WithConfig sets the config overlay declared at this level.
func WithConfig(overlay config.Overlay) Option {
	return func(m *schema.Model) {
		m.Config = overlay
	}
}

// WithSerializer supplies a complete serializer, suppressing synthesis.
func WithSerializer(class *serializer.Class) Option {
	return func(m *schema.Model) {
		m.Serializer = class
	}
}

// WithOverride declares a manual serializer field for the named field. The
// name is the json name.
func WithOverride(name string, field any) Option {
	return func(m *schema.Model) {
		for i := range m.Fields {
			if m.Fields[i].Name == name {
				m.Fields[i].Overrides = append(m.Fields[i].Overrides, field)
				return
			}
		}
	}
}

// Source maps struct types to models, one model per type.
type Source struct {
	mu       sync.Mutex
	models   map[reflect.Type]*schema.Model
	types    map[*schema.Model]reflect.Type
	validate *validator.Validate
}

// NewSource constructs an empty source with its own validator.
func NewSource() *Source {
	return &Source{
		models:   make(map[reflect.Type]*schema.Model),
		types:    make(map[*schema.Model]reflect.Type),
		validate: newValidator(),
	}
}

var defaultSource = NewSource()

// Default returns the process-wide source.
func Default() *Source {
	return defaultSource
}

// Register returns the model for T, registering it in the default source.
func Register[T any](opts ...Option) (*schema.Model, error) {
	return defaultSource.Register(reflect.TypeOf((*T)(nil)).Elem(), opts...)
}

// MustRegister is Register that panics on error.
func MustRegister[T any](opts ...Option) *schema.Model {
	m, err := Register[T](opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Register returns the model for the type of sample, which may be a value, a
// pointer or a reflect.Type. Options apply to the returned model; for a type
// registered earlier they update its model, so apply them before the model is
// defined.
func (s *Source) Register(sample any, opts ...Option) (*schema.Model, error) {
	rt, ok := sample.(reflect.Type)
	if !ok {
		rt = reflect.TypeOf(sample)
	}
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w, got %v", ErrNotStruct, rt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.model(rt)
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Model returns the model registered for rt.
func (s *Source) Model(rt reflect.Type) (*schema.Model, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[rt]
	return m, ok
}

// Type returns the struct type behind a model of this source.
func (s *Source) Type(m *schema.Model) (reflect.Type, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.types[m]
	return rt, ok
}

// model registers rt. The model is cached before its fields are analyzed so
// recursive types resolve to the same model.
func (s *Source) model(rt reflect.Type) *schema.Model {
	if m, ok := s.models[rt]; ok {
		return m
	}
	m := &schema.Model{Name: rt.Name()}
	if m.Name == "" {
		m.Name = "Anonymous"
	}
	s.models[rt] = m
	s.types[m] = rt

	parentIndex := -1
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if isEmbeddedModel(sf) {
			parentIndex = i
			m.Parent = s.model(sf.Type)
			break
		}
	}
	m.Fields = s.fields(rt, parentIndex)
	m.Factory = &factory{source: s, typ: rt, name: m.Name}
	return m
}

// fields analyzes the fields declared by rt, skipping the parent embed and
// flattening other embedded structs.
func (s *Source) fields(rt reflect.Type, skip int) []schema.Field {
	var out []schema.Field
	for i := 0; i < rt.NumField(); i++ {
		if i == skip {
			continue
		}
		sf := rt.Field(i)
		if isEmbeddedModel(sf) {
			out = append(out, s.fields(sf.Type, -1)...)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		field, ok := s.field(sf)
		if ok {
			out = append(out, field)
		}
	}
	return out
}

func deref(rt reflect.Type) reflect.Type {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return rt
}

func isEmbeddedModel(sf reflect.StructField) bool {
	return sf.Anonymous && sf.IsExported() && sf.Type.Kind() == reflect.Struct && !isLeaf(sf.Type) && jsonName(sf) == ""
}

package synth

import (
	"fmt"

	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

const elementPath = "child"

// resolveField classifies a model field and maps it to a complete spec.
func (s *session) resolveField(model *schema.Model, f schema.Field) (FieldSpec, error) {
	spec, err := s.resolveType(model, f.Name, f.Type)
	if err != nil {
		return FieldSpec{}, err
	}
	opts := s.b.fieldOptions(f)
	for name, value := range spec.Options {
		opts[name] = value
	}
	spec.Name = f.Name
	spec.Class = translateConstraints(spec.Class, opts, f.Constraints, s.b.opts.DecimalPrecision, s.warnFor(model, f.Name))
	spec.Options = prune(spec.Class, opts)
	return spec, nil
}

// resolveElement maps the element of a container. A missing element type
// accepts anything.
func (s *session) resolveElement(model *schema.Model, path string, elem *schema.Type) (*FieldSpec, error) {
	t := schema.Any()
	if elem != nil {
		t = *elem
	}
	path = path + "." + elementPath
	spec, err := s.resolveType(model, path, t)
	if err != nil {
		return nil, err
	}
	opts := elementOptions(t)
	for name, value := range spec.Options {
		opts[name] = value
	}
	spec.Class = translateConstraints(spec.Class, opts, schema.Constraints{}, s.b.opts.DecimalPrecision, s.warnFor(model, path))
	spec.Options = prune(spec.Class, opts)
	return &spec, nil
}

// resolveType decides between atomic and recursive handling. The returned
// spec holds only type-derived options.
func (s *session) resolveType(model *schema.Model, path string, t schema.Type) (FieldSpec, error) {
	warn := s.warnFor(model, path)
	switch t.Kind {
	case schema.KindUnion:
		members := t.NonNull()
		switch len(members) {
		case 0:
			return generic(), nil
		case 1:
			return s.resolveType(model, path, members[0])
		default:
			warn(CodeAmbiguousUnion, fmt.Sprintf("union %s cannot be mapped to a single serializer field, using %s", t, serializer.ClassField))
			return generic(), nil
		}

	case schema.KindList, schema.KindSet:
		return s.sequence(model, path, t.Elem)

	case schema.KindTuple:
		if t.Variadic {
			return s.sequence(model, path, t.Elem)
		}
		if homogeneous(t.Members) {
			return s.sequence(model, path, &t.Members[0])
		}
		warn(CodeUnsupportedTuple, fmt.Sprintf("%s has mixed positional types, using %s", t, serializer.ClassField))
		return generic(), nil

	case schema.KindMap:
		if t.Key != nil && t.Key.Kind != schema.KindString {
			warn(CodeUnsupportedMapKey, fmt.Sprintf("%s has non-string keys, using %s", t, serializer.ClassField))
			return generic(), nil
		}
		child, err := s.resolveElement(model, path, t.Elem)
		if err != nil {
			return FieldSpec{}, err
		}
		return FieldSpec{
			Class:   serializer.ClassDict,
			Options: serializer.Options{serializer.OptAllowEmpty: true},
			Child:   child,
		}, nil

	case schema.KindModel:
		if t.Model == nil {
			warn(CodeUnmappedType, "model reference without a model, using "+string(serializer.ClassField))
			return generic(), nil
		}
		class, err := s.build(t.Model)
		if err != nil {
			return FieldSpec{}, err
		}
		return FieldSpec{
			Class:   serializer.ClassSerializer,
			Options: serializer.Options{},
			Nested:  class.Name(),
			nested:  class,
		}, nil

	case schema.KindNull:
		return generic(), nil
	}

	class, opts, ok := MapType(t)
	if !ok {
		warn(CodeUnmappedType, fmt.Sprintf("type %s could not be mapped, using %s", t, serializer.ClassField))
	}
	return FieldSpec{Class: class, Options: opts}, nil
}

func (s *session) sequence(model *schema.Model, path string, elem *schema.Type) (FieldSpec, error) {
	child, err := s.resolveElement(model, path, elem)
	if err != nil {
		return FieldSpec{}, err
	}
	return FieldSpec{
		Class:   serializer.ClassList,
		Options: serializer.Options{serializer.OptAllowEmpty: true},
		Child:   child,
	}, nil
}

func homogeneous(members []schema.Type) bool {
	if len(members) == 0 {
		return false
	}
	for _, member := range members[1:] {
		if !member.Equal(members[0]) {
			return false
		}
	}
	return true
}

func generic() FieldSpec {
	return FieldSpec{Class: serializer.ClassField, Options: serializer.Options{}}
}

// construct builds the serializer field described by spec.
func construct(spec FieldSpec) (*serializer.Field, error) {
	var child *serializer.Field
	if spec.Child != nil {
		var err error
		if child, err = construct(*spec.Child); err != nil {
			return nil, err
		}
	}
	switch spec.Class {
	case serializer.ClassList:
		return serializer.NewListField(child, spec.Options)
	case serializer.ClassDict:
		return serializer.NewDictField(child, spec.Options)
	case serializer.ClassSerializer:
		return serializer.NewNestedField(spec.nested, spec.Options)
	default:
		return serializer.NewField(spec.Class, spec.Options)
	}
}

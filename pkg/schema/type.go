// Package schema describes validation models at the boundary the serializer
// synthesizer consumes: field metadata, model lineage, the secondary
// validation entry point and its error type. Model sources such as
// structmodel and openapi produce these descriptions.
package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind classifies a declared field type.
type Kind string

const (
	KindString   Kind = "string"
	KindInteger  Kind = "integer"
	KindFloat    Kind = "float"
	KindBoolean  Kind = "boolean"
	KindDateTime Kind = "datetime"
	KindDate     Kind = "date"
	KindTime     Kind = "time"
	KindDuration Kind = "duration"
	KindDecimal  Kind = "decimal"
	KindEmail    Kind = "email"
	KindURL      Kind = "url"
	KindUUID     Kind = "uuid"
	KindBytes    Kind = "bytes"
	KindEnum     Kind = "enum"
	KindJSON     Kind = "json"
	KindAny      Kind = "any"
	KindOpaque   Kind = "opaque"
	KindList     Kind = "list"
	KindSet      Kind = "set"
	KindTuple    Kind = "tuple"
	KindMap      Kind = "map"
	KindUnion    Kind = "union"
	KindNull     Kind = "null"
	KindModel    Kind = "model"
)

// Type is a declared field type. Container kinds carry their element types,
// model references carry the referenced model.
type Type struct {
	Kind     Kind
	Name     string
	Elem     *Type
	Key      *Type
	Members  []Type
	Variadic bool
	Model    *Model
	Choices  []any
}

func scalar(kind Kind) Type { return Type{Kind: kind} }

func String() Type   { return scalar(KindString) }
func Integer() Type  { return scalar(KindInteger) }
func Float() Type    { return scalar(KindFloat) }
func Boolean() Type  { return scalar(KindBoolean) }
func DateTime() Type { return scalar(KindDateTime) }
func Date() Type     { return scalar(KindDate) }
func Time() Type     { return scalar(KindTime) }
func Duration() Type { return scalar(KindDuration) }
func Decimal() Type  { return scalar(KindDecimal) }
func Email() Type    { return scalar(KindEmail) }
func URL() Type      { return scalar(KindURL) }
func UUID() Type     { return scalar(KindUUID) }
func Bytes() Type    { return scalar(KindBytes) }
func JSON() Type     { return scalar(KindJSON) }
func Any() Type      { return scalar(KindAny) }
func Null() Type     { return scalar(KindNull) }

// Opaque is a type the synthesizer has no mapping for. name is used in
// diagnostics.
func Opaque(name string) Type {
	return Type{Kind: KindOpaque, Name: name}
}

// Enum is a closed set of literal values.
func Enum(values ...any) Type {
	return Type{Kind: KindEnum, Choices: append([]any(nil), values...)}
}

// ListOf is an ordered sequence of elem.
func ListOf(elem Type) Type {
	return Type{Kind: KindList, Elem: &elem}
}

// SetOf is an unordered collection of unique elem values.
func SetOf(elem Type) Type {
	return Type{Kind: KindSet, Elem: &elem}
}

// TupleOf is a fixed-length sequence with one type per position.
func TupleOf(members ...Type) Type {
	return Type{Kind: KindTuple, Members: append([]Type(nil), members...)}
}

// VariadicTuple is a tuple of any length holding elem values.
func VariadicTuple(elem Type) Type {
	return Type{Kind: KindTuple, Elem: &elem, Variadic: true}
}

// MapOf is a mapping from key to value.
func MapOf(key, value Type) Type {
	return Type{Kind: KindMap, Key: &key, Elem: &value}
}

// Union accepts a value matching any member.
func Union(members ...Type) Type {
	return Type{Kind: KindUnion, Members: append([]Type(nil), members...)}
}

// Optional is shorthand for Union(t, Null()).
func Optional(t Type) Type {
	return Union(t, Null())
}

// Ref references another validation model.
func Ref(m *Model) Type {
	return Type{Kind: KindModel, Model: m}
}

// IsNull reports whether t only admits null.
func (t Type) IsNull() bool {
	return t.Kind == KindNull
}

// AdmitsNull reports whether t is null or a union containing null.
func (t Type) AdmitsNull() bool {
	if t.Kind == KindNull {
		return true
	}
	if t.Kind != KindUnion {
		return false
	}
	for _, member := range t.Members {
		if member.AdmitsNull() {
			return true
		}
	}
	return false
}

// NonNull returns the union members other than null, flattening nested
// unions. For non-union types it returns t itself.
func (t Type) NonNull() []Type {
	if t.Kind != KindUnion {
		if t.Kind == KindNull {
			return nil
		}
		return []Type{t}
	}
	var out []Type
	for _, member := range t.Members {
		out = append(out, member.NonNull()...)
	}
	return out
}

// Equal reports structural equality. Model references compare by identity.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind || t.Name != other.Name || t.Variadic != other.Variadic || t.Model != other.Model {
		return false
	}
	if !equalPtr(t.Elem, other.Elem) || !equalPtr(t.Key, other.Key) {
		return false
	}
	if len(t.Members) != len(other.Members) || !reflect.DeepEqual(t.Choices, other.Choices) {
		return false
	}
	for i := range t.Members {
		if !t.Members[i].Equal(other.Members[i]) {
			return false
		}
	}
	return true
}

func equalPtr(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// String renders the type for diagnostics, e.g. list[string] or
// union[integer, string].
func (t Type) String() string {
	switch t.Kind {
	case KindList, KindSet:
		return string(t.Kind) + "[" + elemString(t.Elem) + "]"
	case KindTuple:
		if t.Variadic {
			return "tuple[" + elemString(t.Elem) + ", ...]"
		}
		return "tuple[" + joinTypes(t.Members) + "]"
	case KindMap:
		return "map[" + elemString(t.Key) + ", " + elemString(t.Elem) + "]"
	case KindUnion:
		return "union[" + joinTypes(t.Members) + "]"
	case KindModel:
		if t.Model != nil && t.Model.Name != "" {
			return t.Model.Name
		}
		return "model"
	case KindOpaque:
		if t.Name != "" {
			return t.Name
		}
		return "opaque"
	case KindEnum:
		parts := make([]string, len(t.Choices))
		for i, choice := range t.Choices {
			parts[i] = fmt.Sprint(choice)
		}
		return "enum[" + strings.Join(parts, ", ") + "]"
	default:
		return string(t.Kind)
	}
}

func elemString(t *Type) string {
	if t == nil {
		return string(KindAny)
	}
	return t.String()
}

func joinTypes(types []Type) string {
	parts := make([]string, len(types))
	for i, member := range types {
		parts[i] = member.String()
	}
	return strings.Join(parts, ", ")
}

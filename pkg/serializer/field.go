package serializer

import (
	"fmt"
	"regexp"
)

// Field is one constructed serializer field. Fields are immutable once built
// and may be shared by several classes.
type Field struct {
	class  FieldClass
	opts   Options
	child  *Field
	nested *Class
	regex  *regexp.Regexp
}

// NewField constructs a scalar field. Container and nested classes have their
// own constructors.
func NewField(class FieldClass, opts Options) (*Field, error) {
	switch class {
	case ClassList, ClassDict:
		return nil, &OptionError{Class: class, Reason: "requires a child field, use NewListField or NewDictField"}
	case ClassSerializer:
		return nil, &OptionError{Class: class, Reason: "requires a class, use NewNestedField"}
	}
	return newField(class, opts)
}

// NewListField constructs a list field validating each element with child.
// A nil child accepts elements unchanged.
func NewListField(child *Field, opts Options) (*Field, error) {
	f, err := newField(ClassList, opts)
	if err != nil {
		return nil, err
	}
	f.child = child
	return f, nil
}

// NewDictField constructs a dictionary field with string keys, validating each
// value with child. A nil child accepts values unchanged.
func NewDictField(child *Field, opts Options) (*Field, error) {
	f, err := newField(ClassDict, opts)
	if err != nil {
		return nil, err
	}
	f.child = child
	return f, nil
}

// NewNestedField constructs a structured field backed by another serializer
// class. The class may still be under construction.
func NewNestedField(class *Class, opts Options) (*Field, error) {
	if class == nil {
		return nil, &OptionError{Class: ClassSerializer, Reason: "nested class is nil"}
	}
	f, err := newField(ClassSerializer, opts)
	if err != nil {
		return nil, err
	}
	f.nested = class
	return f, nil
}

// MustField panics when field construction fails. Useful for declarations at
// package scope.
func MustField(f *Field, err error) *Field {
	if err != nil {
		panic(err)
	}
	return f
}

func newField(class FieldClass, opts Options) (*Field, error) {
	if !Known(class) {
		return nil, &OptionError{Class: class, Reason: "unknown field class"}
	}
	f := &Field{class: class, opts: opts.Clone()}
	for _, name := range f.opts.Keys() {
		if !Accepts(class, name) {
			return nil, &OptionError{Class: class, Option: name, Reason: "is not accepted"}
		}
		if err := checkOption(class, name, f.opts[name]); err != nil {
			return nil, err
		}
	}
	if pattern, ok := f.opts[OptRegex].(string); ok {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &OptionError{Class: class, Option: OptRegex, Reason: fmt.Sprintf("does not compile: %v", err)}
		}
		f.regex = re
	} else if class == ClassRegex {
		return nil, &OptionError{Class: class, Option: OptRegex, Reason: "is required"}
	}
	if class == ClassChoice {
		if _, ok := f.opts[OptChoices]; !ok {
			return nil, &OptionError{Class: class, Option: OptChoices, Reason: "is required"}
		}
	}
	return f, nil
}

func checkOption(class FieldClass, name string, value any) error {
	bad := func(want string) error {
		return &OptionError{Class: class, Option: name, Reason: fmt.Sprintf("expects %s, got %T", want, value)}
	}
	switch name {
	case OptRequired, OptAllowNull, OptAllowBlank, OptAllowEmpty:
		if _, ok := value.(bool); !ok {
			return bad("bool")
		}
	case OptHelpText, OptLabel, OptRegex:
		if _, ok := value.(string); !ok {
			return bad("string")
		}
	case OptMinLength, OptMaxLength, OptMaxDigits, OptDecimalPlaces:
		n, ok := value.(int)
		if !ok {
			return bad("int")
		}
		if n < 0 {
			return &OptionError{Class: class, Option: name, Reason: "must not be negative"}
		}
	case OptMinValue, OptMaxValue:
		if _, ok := value.(float64); !ok {
			return bad("float64")
		}
	case OptChoices:
		if _, ok := value.([]any); !ok {
			return bad("[]any")
		}
	}
	return nil
}

// Class returns the catalog identifier of the field.
func (f *Field) Class() FieldClass {
	return f.class
}

// Options returns a copy of the constructor options.
func (f *Field) Options() Options {
	return f.opts.Clone()
}

// Option returns a single constructor option.
func (f *Field) Option(name string) (any, bool) {
	v, ok := f.opts[name]
	return v, ok
}

// Child returns the element field of list and dict fields.
func (f *Field) Child() *Field {
	return f.child
}

// Nested returns the class backing a nested serializer field.
func (f *Field) Nested() *Class {
	return f.nested
}

// Required reports whether the field must be present in input. Fields with a
// default are never required unless explicitly configured.
func (f *Field) Required() bool {
	if v, ok := f.opts[OptRequired].(bool); ok {
		return v
	}
	_, hasDefault := f.opts[OptDefault]
	return !hasDefault
}

// AllowNull reports whether null input is accepted.
func (f *Field) AllowNull() bool {
	v, _ := f.opts[OptAllowNull].(bool)
	return v
}

// AllowBlank reports whether empty strings are accepted.
func (f *Field) AllowBlank() bool {
	v, _ := f.opts[OptAllowBlank].(bool)
	return v
}

// AllowEmpty reports whether empty lists or dictionaries are accepted.
func (f *Field) AllowEmpty() bool {
	if v, ok := f.opts[OptAllowEmpty].(bool); ok {
		return v
	}
	return true
}

// Default resolves the default value, calling factories.
func (f *Field) Default() (any, bool) {
	v, ok := f.opts[OptDefault]
	if !ok {
		return nil, false
	}
	if factory, isFactory := v.(func() any); isFactory {
		return factory(), true
	}
	return v, true
}

func (f *Field) intOption(name string) (int, bool) {
	v, ok := f.opts[name].(int)
	return v, ok
}

func (f *Field) floatOption(name string) (float64, bool) {
	v, ok := f.opts[name].(float64)
	return v, ok
}

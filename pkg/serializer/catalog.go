// Package serializer provides the request serializer framework that
// synthesized definitions target: a fixed catalog of field classes with their
// accepted constructor options, ordered serializer classes, and the
// field-keyed error convention used by API handlers.
package serializer

import "sort"

// FieldClass identifies one entry of the field catalog.
type FieldClass string

const (
	ClassField      FieldClass = "Field"
	ClassChar       FieldClass = "CharField"
	ClassEmail      FieldClass = "EmailField"
	ClassURL        FieldClass = "URLField"
	ClassRegex      FieldClass = "RegexField"
	ClassUUID       FieldClass = "UUIDField"
	ClassInteger    FieldClass = "IntegerField"
	ClassFloat      FieldClass = "FloatField"
	ClassDecimal    FieldClass = "DecimalField"
	ClassBoolean    FieldClass = "BooleanField"
	ClassDateTime   FieldClass = "DateTimeField"
	ClassDate       FieldClass = "DateField"
	ClassTime       FieldClass = "TimeField"
	ClassDuration   FieldClass = "DurationField"
	ClassChoice     FieldClass = "ChoiceField"
	ClassBytes      FieldClass = "BytesField"
	ClassJSON       FieldClass = "JSONField"
	ClassList       FieldClass = "ListField"
	ClassDict       FieldClass = "DictField"
	ClassSerializer FieldClass = "Serializer"
)

// Constructor option names.
const (
	OptRequired      = "required"
	OptDefault       = "default"
	OptAllowNull     = "allow_null"
	OptHelpText      = "help_text"
	OptLabel         = "label"
	OptAllowBlank    = "allow_blank"
	OptMinLength     = "min_length"
	OptMaxLength     = "max_length"
	OptRegex         = "regex"
	OptMinValue      = "min_value"
	OptMaxValue      = "max_value"
	OptMaxDigits     = "max_digits"
	OptDecimalPlaces = "decimal_places"
	OptChoices       = "choices"
	OptAllowEmpty    = "allow_empty"
)

// Options maps constructor option names to values.
type Options map[string]any

// Clone returns a shallow copy.
func (o Options) Clone() Options {
	if o == nil {
		return Options{}
	}
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Keys returns the option names, sorted.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	commonOptions  = []string{OptRequired, OptDefault, OptAllowNull, OptHelpText, OptLabel}
	textOptions    = []string{OptAllowBlank, OptMinLength, OptMaxLength}
	numericOptions = []string{OptMinValue, OptMaxValue}
)

var catalog = map[FieldClass][]string{
	ClassField:      nil,
	ClassChar:       textOptions,
	ClassEmail:      textOptions,
	ClassURL:        textOptions,
	ClassRegex:      append(append([]string(nil), textOptions...), OptRegex),
	ClassUUID:       nil,
	ClassInteger:    numericOptions,
	ClassFloat:      numericOptions,
	ClassDecimal:    append(append([]string(nil), numericOptions...), OptMaxDigits, OptDecimalPlaces),
	ClassBoolean:    nil,
	ClassDateTime:   nil,
	ClassDate:       nil,
	ClassTime:       nil,
	ClassDuration:   nil,
	ClassChoice:     {OptChoices, OptAllowBlank},
	ClassBytes:      nil,
	ClassJSON:       nil,
	ClassList:       {OptAllowEmpty, OptMinLength, OptMaxLength},
	ClassDict:       {OptAllowEmpty},
	ClassSerializer: nil,
}

var accepted = buildAccepted()

func buildAccepted() map[FieldClass]map[string]struct{} {
	out := make(map[FieldClass]map[string]struct{}, len(catalog))
	for class, extra := range catalog {
		set := make(map[string]struct{}, len(commonOptions)+len(extra))
		for _, name := range commonOptions {
			set[name] = struct{}{}
		}
		for _, name := range extra {
			set[name] = struct{}{}
		}
		out[class] = set
	}
	return out
}

// Known reports whether class is part of the catalog.
func Known(class FieldClass) bool {
	_, ok := catalog[class]
	return ok
}

// Accepts reports whether class accepts the named constructor option.
func Accepts(class FieldClass, option string) bool {
	set, ok := accepted[class]
	if !ok {
		return false
	}
	_, ok = set[option]
	return ok
}

// AcceptedOptions lists the options a class accepts, sorted.
func AcceptedOptions(class FieldClass) []string {
	set := accepted[class]
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Classes lists every catalog entry, sorted.
func Classes() []FieldClass {
	out := make([]FieldClass, 0, len(catalog))
	for class := range catalog {
		out = append(out, class)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsTextual reports whether the class validates strings with length bounds.
func IsTextual(class FieldClass) bool {
	switch class {
	case ClassChar, ClassEmail, ClassURL, ClassRegex:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether the class supports min_value and max_value.
func IsNumeric(class FieldClass) bool {
	switch class {
	case ClassInteger, ClassFloat, ClassDecimal:
		return true
	default:
		return false
	}
}

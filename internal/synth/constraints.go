package synth

import (
	"fmt"
	"regexp"

	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

// warnFunc receives translation findings for the field being mapped.
type warnFunc func(code, message string)

// fieldOptions derives the options every field class accepts from a model
// field: requiredness, nullability, default, help text and label.
func (b *Builder) fieldOptions(f schema.Field) serializer.Options {
	opts := serializer.Options{
		serializer.OptRequired:  f.IsRequired(),
		serializer.OptAllowNull: f.IsNullable(),
	}
	switch {
	case f.DefaultFactory != nil:
		opts[serializer.OptDefault] = f.DefaultFactory
	case f.HasDefault:
		opts[serializer.OptDefault] = f.Default
	}
	if help := b.text(f.Description); help != "" {
		opts[serializer.OptHelpText] = help
	}
	label := b.text(f.Title)
	if label == "" && b.opts.Labeler != nil {
		label = b.opts.Labeler(f.Name)
	}
	if label != "" {
		opts[serializer.OptLabel] = label
	}
	return opts
}

// elementOptions are the options of a container element: it must be
// present and admits null only when its own type does.
func elementOptions(t schema.Type) serializer.Options {
	return serializer.Options{
		serializer.OptRequired:  true,
		serializer.OptAllowNull: t.AdmitsNull(),
	}
}

func (b *Builder) text(raw string) string {
	if raw == "" {
		return ""
	}
	if b.opts.Sanitizer != nil {
		return b.opts.Sanitizer(raw)
	}
	return raw
}

// translateConstraints layers constraint annotations onto opts and returns
// the final field class. A pattern on a textual class switches it to the
// regex field. Constraints the class cannot express are dropped.
func translateConstraints(class serializer.FieldClass, opts serializer.Options, c schema.Constraints, precision int, warn warnFunc) serializer.FieldClass {
	switch {
	case serializer.IsTextual(class):
		class = translateText(class, opts, c, warn)
	case serializer.IsNumeric(class):
		translateBounds(opts, c, warn)
		if class == serializer.ClassDecimal {
			translateDigits(opts, c, precision)
		}
	case class == serializer.ClassList:
		setLength(opts, c)
	}
	if dropped := droppedConstraints(class, c); len(dropped) > 0 {
		warn(CodeDroppedConstraints, fmt.Sprintf("%s cannot express %v, constraints dropped", class, dropped))
	}
	return class
}

func translateText(class serializer.FieldClass, opts serializer.Options, c schema.Constraints, warn warnFunc) serializer.FieldClass {
	setLength(opts, c)
	opts[serializer.OptAllowBlank] = c.MinLength == nil || *c.MinLength <= 0
	if c.Pattern == "" {
		return class
	}
	if _, err := regexp.Compile(c.Pattern); err != nil {
		warn(CodeInvalidPattern, fmt.Sprintf("pattern %q is not supported (%v), dropped", c.Pattern, err))
		return class
	}
	opts[serializer.OptRegex] = c.Pattern
	return serializer.ClassRegex
}

func setLength(opts serializer.Options, c schema.Constraints) {
	if c.MinLength != nil && *c.MinLength >= 0 {
		opts[serializer.OptMinLength] = *c.MinLength
	}
	if c.MaxLength != nil && *c.MaxLength >= 0 {
		opts[serializer.OptMaxLength] = *c.MaxLength
	}
}

// translateBounds maps ge/gt to min_value and le/lt to max_value with the
// bound value carried over exactly. Exclusive bounds are approximated as
// inclusive; when both forms are present the tighter one is kept.
func translateBounds(opts serializer.Options, c schema.Constraints, warn warnFunc) {
	if lo, ok := pickBound(c.Ge, c.Gt, true, "gt (>)", "ge (>=)", warn); ok {
		opts[serializer.OptMinValue] = lo
	}
	if hi, ok := pickBound(c.Le, c.Lt, false, "lt (<)", "le (<=)", warn); ok {
		opts[serializer.OptMaxValue] = hi
	}
}

func pickBound(inclusive, exclusive *float64, lower bool, exclusiveName, inclusiveName string, warn warnFunc) (float64, bool) {
	switch {
	case inclusive == nil && exclusive == nil:
		return 0, false
	case exclusive == nil:
		return *inclusive, true
	case inclusive == nil:
		warn(CodeExclusiveBound, fmt.Sprintf("%s is not supported by the serializer, using %s instead", exclusiveName, inclusiveName))
		return *exclusive, true
	}

	tighterExclusive := *exclusive >= *inclusive
	if !lower {
		tighterExclusive = *exclusive <= *inclusive
	}
	if !tighterExclusive {
		warn(CodeConflictingBounds, fmt.Sprintf("both %s %s and %s %s declared, keeping %s", inclusiveName, formatNumber(*inclusive), exclusiveName, formatNumber(*exclusive), inclusiveName))
		return *inclusive, true
	}
	warn(CodeConflictingBounds, fmt.Sprintf("both %s %s and %s %s declared, keeping %s", inclusiveName, formatNumber(*inclusive), exclusiveName, formatNumber(*exclusive), exclusiveName))
	warn(CodeExclusiveBound, fmt.Sprintf("%s is not supported by the serializer, using %s instead", exclusiveName, inclusiveName))
	return *exclusive, true
}

func translateDigits(opts serializer.Options, c schema.Constraints, precision int) {
	digits, places := precision, precision
	if c.MaxDigits != nil && *c.MaxDigits > 0 {
		digits = *c.MaxDigits
	}
	if c.DecimalPlaces != nil && *c.DecimalPlaces >= 0 {
		places = *c.DecimalPlaces
	}
	opts[serializer.OptMaxDigits] = digits
	opts[serializer.OptDecimalPlaces] = places
}

// droppedConstraints names the set constraints that the class has no
// option for. Numeric bounds on non-numeric classes are ignored silently.
func droppedConstraints(class serializer.FieldClass, c schema.Constraints) []string {
	var out []string
	if (c.MinLength != nil || c.MaxLength != nil) && !serializer.Accepts(class, serializer.OptMinLength) {
		out = append(out, "length")
	}
	if c.Pattern != "" && !serializer.IsTextual(class) {
		out = append(out, "pattern")
	}
	if (c.MaxDigits != nil || c.DecimalPlaces != nil) && class != serializer.ClassDecimal {
		out = append(out, "digits")
	}
	return out
}

// prune removes options the class does not accept.
func prune(class serializer.FieldClass, opts serializer.Options) serializer.Options {
	for _, name := range opts.Keys() {
		if !serializer.Accepts(class, name) {
			delete(opts, name)
		}
	}
	return opts
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%g", v)
}

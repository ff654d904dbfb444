// Package synth exposes the serializer synthesizer. Builders live in
// internal/synth; this package re-exports the result types and assembles
// builder options.
package synth

import (
	"log/slog"

	"github.com/goliatone/go-serializergen/internal/synth"
	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

type (
	FieldSpec      = synth.FieldSpec
	ClassSpec      = synth.ClassSpec
	Built          = synth.Built
	Result         = synth.Result
	Diagnostic     = synth.Diagnostic
	Diagnostics    = synth.Diagnostics
	ModelError     = synth.ModelError
	FieldError     = synth.FieldError
	Cache          = synth.Cache
	ClassHook      = synth.ClassHook
	ConfigResolver = synth.ConfigResolver
)

// Warning codes.
const (
	CodeUnmappedType       = synth.CodeUnmappedType
	CodeAmbiguousUnion     = synth.CodeAmbiguousUnion
	CodeUnsupportedTuple   = synth.CodeUnsupportedTuple
	CodeUnsupportedMapKey  = synth.CodeUnsupportedMapKey
	CodeExclusiveBound     = synth.CodeExclusiveBound
	CodeConflictingBounds  = synth.CodeConflictingBounds
	CodeInvalidPattern     = synth.CodeInvalidPattern
	CodeCustomContract     = synth.CodeCustomContract
	CodeDroppedConstraints = synth.CodeDroppedConstraints
)

// DefaultDecimalPrecision is the digit budget of decimal fields that declare
// no precision.
const DefaultDecimalPrecision = synth.DefaultDecimalPrecision

// ErrNilModel is returned when Build receives no model.
var ErrNilModel = synth.ErrNilModel

// Builder synthesizes serializer classes from validation models.
type Builder interface {
	Build(m *schema.Model) (Result, error)
}

// BuilderOption configures the builder behaviour.
type BuilderOption func(*synth.Options)

// WithLogger routes mapping warnings to logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(opts *synth.Options) {
		opts.Logger = logger
	}
}

// WithLabeler fills labels from field names when a field declares no title.
// Pass nil to use FieldLabel.
func WithLabeler(labeler func(string) string) BuilderOption {
	return func(opts *synth.Options) {
		if labeler == nil {
			labeler = synth.FieldLabel
		}
		opts.Labeler = labeler
	}
}

// WithDecimalPrecision overrides the default max_digits/decimal_places.
func WithDecimalPrecision(precision int) BuilderOption {
	return func(opts *synth.Options) {
		opts.DecimalPrecision = precision
	}
}

// WithHelpTextSanitizer cleans descriptions and titles before they become
// help_text and label. Pass nil to strip HTML.
func WithHelpTextSanitizer(sanitize func(string) string) BuilderOption {
	return func(opts *synth.Options) {
		if sanitize == nil {
			sanitize = synth.StripMarkup
		}
		opts.Sanitizer = sanitize
	}
}

// WithConfigResolver replaces the lineage overlay merge.
func WithConfigResolver(resolve ConfigResolver) BuilderOption {
	return func(opts *synth.Options) {
		opts.ConfigResolver = resolve
	}
}

// WithClassHook runs hook once for every class produced.
func WithClassHook(hook ClassHook) BuilderOption {
	return func(opts *synth.Options) {
		opts.ClassHook = hook
	}
}

// WithBase sets the class synthesized serializers derive from.
func WithBase(base *serializer.Class) BuilderOption {
	return func(opts *synth.Options) {
		opts.Base = base
	}
}

// WithCache reuses classes synthesized by earlier builds.
func WithCache(cache Cache) BuilderOption {
	return func(opts *synth.Options) {
		opts.Cache = cache
	}
}

// NewBuilder returns a Builder backed by the internal implementation.
func NewBuilder(options ...BuilderOption) Builder {
	cfg := synth.Options{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return synth.New(cfg)
}

// MapType exposes the fixed type table.
func MapType(t schema.Type) (serializer.FieldClass, serializer.Options, bool) {
	return synth.MapType(t)
}

// FieldLabel derives a label from a field name.
func FieldLabel(name string) string {
	return synth.FieldLabel(name)
}

// StripMarkup removes HTML from text.
func StripMarkup(raw string) string {
	return synth.StripMarkup(raw)
}

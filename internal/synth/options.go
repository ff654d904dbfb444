package synth

import (
	"log/slog"

	"github.com/goliatone/go-serializergen/pkg/config"
	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

// DefaultDecimalPrecision is used for max_digits and decimal_places when a
// decimal field declares neither.
const DefaultDecimalPrecision = 28

// Cache exposes classes synthesized by earlier passes so nested references
// reuse them instead of synthesizing again.
type Cache interface {
	Lookup(model *schema.Model) (*serializer.Class, bool)
}

// ClassHook runs once per synthesized class after its fields are declared.
// It is where the validation bridge is installed.
type ClassHook func(class *serializer.Class, model *schema.Model, cfg config.Config) error

// ConfigResolver computes the effective config of a model.
type ConfigResolver func(model *schema.Model) (config.Config, error)

// Options configures the Builder. Options are constructed by the public
// adapter in pkg/synth and passed into New.
type Options struct {
	Logger           *slog.Logger
	Labeler          func(string) string
	DecimalPrecision int
	Sanitizer        func(string) string
	ConfigResolver   ConfigResolver
	ClassHook        ClassHook
	Base             *serializer.Class
	Cache            Cache
}

func defaultOptions() Options {
	return Options{
		Logger:           slog.Default(),
		DecimalPrecision: DefaultDecimalPrecision,
		ConfigResolver:   MergeLineage,
	}
}

// MergeLineage resolves a model's config by overlaying every level of its
// lineage on the defaults.
func MergeLineage(model *schema.Model) (config.Config, error) {
	return config.Merge(model.Overlays()...)
}

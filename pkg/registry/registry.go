// Package registry is the one-time definition step for validation models. A
// model is synthesized the first time it is defined; the resulting
// serializer class and merged config are cached by model identity and shared
// read-only afterwards.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goliatone/go-serializergen/pkg/bridge"
	"github.com/goliatone/go-serializergen/pkg/config"
	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/serializer"
	"github.com/goliatone/go-serializergen/pkg/synth"
)

// ErrNotDefined is returned when a model has not been defined yet.
var ErrNotDefined = errors.New("registry: model is not defined")

// Definition is everything produced for one model.
type Definition struct {
	Model       *schema.Model
	Config      config.Config
	Serializer  *serializer.Class
	Spec        synth.ClassSpec
	Diagnostics synth.Diagnostics
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for mapping warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithBuilderOptions passes extra options to the synthesizer. The cache,
// class hook and base are owned by the registry and cannot be replaced.
func WithBuilderOptions(options ...synth.BuilderOption) Option {
	return func(r *Registry) {
		r.builderOptions = append(r.builderOptions, options...)
	}
}

// Registry caches definitions by model identity.
type Registry struct {
	mu             sync.RWMutex
	defs           map[*schema.Model]*Definition
	order          []*schema.Model
	logger         *slog.Logger
	builderOptions []synth.BuilderOption
}

// New constructs an empty registry.
func New(options ...Option) *Registry {
	r := &Registry{
		defs:   make(map[*schema.Model]*Definition),
		logger: slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Define synthesizes the serializer for def once. Later calls with the same
// model return the cached definition. Nested models reached during the pass
// are defined too.
func (r *Registry) Define(def schema.Definition) (*Definition, error) {
	if def == nil {
		return nil, errors.New("registry: definition is nil")
	}
	m := def.ModelDefinition()
	if m == nil {
		return nil, errors.New("registry: definition has no model")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.defs[m]; ok {
		return existing, nil
	}

	options := append([]synth.BuilderOption{synth.WithLogger(r.logger)}, r.builderOptions...)
	options = append(options,
		synth.WithBase(bridge.Base()),
		synth.WithClassHook(bridge.Install),
		synth.WithCache(lockedCache{r}),
	)
	result, err := synth.NewBuilder(options...).Build(m)
	if err != nil {
		return nil, fmt.Errorf("registry: define %s: %w", m.Name, err)
	}

	for _, built := range result.Models {
		if _, ok := r.defs[built.Model]; ok {
			continue
		}
		r.defs[built.Model] = &Definition{
			Model:       built.Model,
			Config:      built.Config,
			Serializer:  built.Class,
			Spec:        built.Spec,
			Diagnostics: diagnosticsFor(result.Diagnostics, built.Model.Name),
		}
		r.order = append(r.order, built.Model)
	}
	r.logger.Debug("model defined",
		"model", m.Name,
		"serializer", result.Class.Name(),
		"models", len(result.Models),
		"warnings", len(result.Diagnostics.Warnings),
	)
	return r.defs[m], nil
}

// MustDefine is Define that panics on error, for package-level declarations.
func (r *Registry) MustDefine(def schema.Definition) *Definition {
	d, err := r.Define(def)
	if err != nil {
		panic(err)
	}
	return d
}

// Lookup returns the definition of m.
func (r *Registry) Lookup(m *schema.Model) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[m]
	return d, ok
}

// Serializer returns the serializer class of a defined model.
func (r *Registry) Serializer(m *schema.Model) (*serializer.Class, error) {
	d, ok := r.Lookup(m)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDefined, modelName(m))
	}
	return d.Serializer, nil
}

// Config returns the merged config of a defined model.
func (r *Registry) Config(m *schema.Model) (config.Config, error) {
	d, ok := r.Lookup(m)
	if !ok {
		return config.Config{}, fmt.Errorf("%w: %s", ErrNotDefined, modelName(m))
	}
	return d.Config, nil
}

// New binds data to a fresh serializer of a defined model.
func (r *Registry) New(m *schema.Model, data map[string]any) (*serializer.Serializer, error) {
	class, err := r.Serializer(m)
	if err != nil {
		return nil, err
	}
	return class.New(data), nil
}

// Definitions lists definitions in the order they were created.
func (r *Registry) Definitions() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.order))
	for _, m := range r.order {
		out = append(out, r.defs[m])
	}
	return out
}

// lockedCache reads definitions while Define holds the write lock.
type lockedCache struct {
	r *Registry
}

func (c lockedCache) Lookup(m *schema.Model) (*serializer.Class, bool) {
	d, ok := c.r.defs[m]
	if !ok {
		return nil, false
	}
	return d.Serializer, true
}

func diagnosticsFor(all synth.Diagnostics, model string) synth.Diagnostics {
	var out synth.Diagnostics
	for _, w := range all.Warnings {
		if w.Model == model {
			out.Warnings = append(out.Warnings, w)
		}
	}
	return out
}

func modelName(m *schema.Model) string {
	if m == nil {
		return "<nil>"
	}
	return m.Name
}

var defaultRegistry = New()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Define defines def in the default registry.
func Define(def schema.Definition) (*Definition, error) {
	return defaultRegistry.Define(def)
}

// MustDefine defines def in the default registry and panics on error.
func MustDefine(def schema.Definition) *Definition {
	return defaultRegistry.MustDefine(def)
}

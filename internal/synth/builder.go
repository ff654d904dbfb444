package synth

import (
	"fmt"

	"github.com/goliatone/go-serializergen/pkg/config"
	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

// Builder synthesizes serializer classes from validation models.
type Builder struct {
	opts Options
}

// New constructs a Builder. Zero-valued options fall back to defaults.
func New(options Options) *Builder {
	defaults := defaultOptions()
	if options.Logger == nil {
		options.Logger = defaults.Logger
	}
	if options.DecimalPrecision <= 0 {
		options.DecimalPrecision = defaults.DecimalPrecision
	}
	if options.ConfigResolver == nil {
		options.ConfigResolver = defaults.ConfigResolver
	}
	return &Builder{opts: options}
}

// Build synthesizes the serializer for m and for every model it reaches that
// the cache does not already hold. Each model is synthesized at most once per
// call; a model referenced while it is still being synthesized resolves to
// its placeholder class, so recursive models terminate.
func (b *Builder) Build(m *schema.Model) (Result, error) {
	if m == nil {
		return Result{}, ErrNilModel
	}
	s := &session{b: b, built: make(map[*schema.Model]*Built)}
	if _, err := s.build(m); err != nil {
		return Result{}, err
	}

	result := Result{Models: s.order, Diagnostics: s.diags}
	if root, ok := s.built[m]; ok {
		result.Class = root.Class
		result.Spec = root.Spec
		result.Config = root.Config
	} else if b.opts.Cache != nil {
		class, _ := b.opts.Cache.Lookup(m)
		result.Class = class
	}
	return result, nil
}

type session struct {
	b     *Builder
	built map[*schema.Model]*Built
	order []Built
	diags Diagnostics
}

func (s *session) warnFor(model *schema.Model, path string) warnFunc {
	return func(code, message string) {
		s.diags.AddWarning(code, message, model.Name, path)
		s.b.opts.Logger.Warn("serializer field mapping",
			"model", model.Name,
			"field", path,
			"code", code,
			"message", message,
		)
	}
}

func (s *session) build(m *schema.Model) (*serializer.Class, error) {
	if s.b.opts.Cache != nil {
		if class, ok := s.b.opts.Cache.Lookup(m); ok {
			return class, nil
		}
	}
	if entry, ok := s.built[m]; ok {
		return entry.Class, nil
	}

	cfg, err := s.b.opts.ConfigResolver(m)
	if err != nil {
		return nil, fmt.Errorf("synth: resolve config for %s: %w", m.Name, err)
	}

	switch {
	case m.Serializer != nil:
		class := m.Serializer
		if redeclared(m) {
			class = serializer.NewClass(className(m), m.Serializer)
		}
		return s.reuse(m, class, cfg, ClassSpec{Custom: true})
	case m.Parent != nil && m.Parent.Serializer != nil && !m.DeclaresFields():
		derived := serializer.NewClass(className(m), m.Parent.Serializer)
		return s.reuse(m, derived, cfg, ClassSpec{Derived: true})
	}
	return s.synthesize(m, cfg)
}

// reuse registers a class the model supplied, or derived from its parent's
// supplied class, without synthesizing fields.
func (s *session) reuse(m *schema.Model, class *serializer.Class, cfg config.Config, spec ClassSpec) (*serializer.Class, error) {
	spec.Model = m.Name
	spec.Name = class.Name()
	if base := class.Base(); base != nil {
		spec.Base = base.Name()
	}
	entry := &Built{Model: m, Class: class, Spec: spec, Config: cfg}
	s.built[m] = entry

	if s.b.opts.Base != nil && !class.DerivesFrom(s.b.opts.Base) {
		if cfg.ValidatePydantic {
			s.warnFor(m, "")(CodeCustomContract, fmt.Sprintf("serializer %s does not derive from %s, secondary validation is not installed", class.Name(), s.b.opts.Base.Name()))
		}
		s.order = append(s.order, *entry)
		return class, nil
	}
	if err := s.hook(class, m, cfg); err != nil {
		delete(s.built, m)
		return nil, err
	}
	s.order = append(s.order, *entry)
	return class, nil
}

func (s *session) synthesize(m *schema.Model, cfg config.Config) (*serializer.Class, error) {
	class := serializer.NewClass(className(m), s.b.opts.Base)
	spec := ClassSpec{Model: m.Name, Name: class.Name()}
	if s.b.opts.Base != nil {
		spec.Base = s.b.opts.Base.Name()
	}
	entry := &Built{Model: m, Class: class, Config: cfg}
	s.built[m] = entry

	modelErr := &ModelError{Model: m.Name}
	for _, f := range m.AllFields() {
		if len(f.Overrides) > 0 {
			field, msg := override(f)
			if msg != "" {
				modelErr.add(f.Name, msg)
				continue
			}
			if err := class.Declare(f.Name, field); err != nil {
				modelErr.add(f.Name, err.Error())
				continue
			}
			spec.Overrides = append(spec.Overrides, f.Name)
			continue
		}

		fieldSpec, err := s.resolveField(m, f)
		if err != nil {
			delete(s.built, m)
			return nil, err
		}
		field, err := construct(fieldSpec)
		if err == nil {
			err = class.Declare(f.Name, field)
		}
		if err != nil {
			modelErr.add(f.Name, err.Error())
			continue
		}
		spec.Fields = append(spec.Fields, fieldSpec)
	}
	if len(modelErr.Fields) > 0 {
		delete(s.built, m)
		return nil, modelErr
	}

	entry.Spec = spec
	if err := s.hook(class, m, cfg); err != nil {
		delete(s.built, m)
		return nil, err
	}
	s.order = append(s.order, *entry)
	return class, nil
}

func (s *session) hook(class *serializer.Class, m *schema.Model, cfg config.Config) error {
	if s.b.opts.ClassHook == nil {
		return nil
	}
	if err := s.b.opts.ClassHook(class, m, cfg); err != nil {
		return fmt.Errorf("synth: %s: %w", m.Name, err)
	}
	return nil
}

// override extracts the single manual serializer field of f. A non-empty
// message reports a malformed declaration.
func override(f schema.Field) (*serializer.Field, string) {
	if len(f.Overrides) > 1 {
		return nil, "field has multiple conflicting serializer fields, only one serializer field can be provided per field"
	}
	field, ok := f.Overrides[0].(*serializer.Field)
	if !ok {
		return nil, fmt.Sprintf("override must be a *serializer.Field, got %T", f.Overrides[0])
	}
	if field == nil {
		return nil, "override is a nil serializer field"
	}
	return field, ""
}

// redeclared reports whether an ancestor of m supplies the same serializer.
// Each model then gets its own subclass so bindings do not collide.
func redeclared(m *schema.Model) bool {
	for p := m.Parent; p != nil; p = p.Parent {
		if p.Serializer == m.Serializer {
			return true
		}
	}
	return false
}

func className(m *schema.Model) string {
	return m.Name + "Serializer"
}

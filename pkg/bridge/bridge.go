// Package bridge runs a validation model after a synthesized serializer's own
// validation succeeds. It is installed as entry point middleware and
// reconciles the model's errors with the serializer's field-keyed
// convention.
package bridge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-serializergen/pkg/config"
	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

// State is the progress of one serializer through both validation passes.
type State string

const (
	StateDisabled           State = "disabled"
	StateUnvalidated        State = "unvalidated"
	StateDRFValidating      State = "drf-validating"
	StateDRFInvalid         State = "drf-invalid"
	StatePydanticValidating State = "pydantic-validating"
	StatePydanticInvalid    State = "pydantic-invalid"
	StateFullyValid         State = "fully-valid"
)

var (
	// ErrDisabled is returned by Instance when secondary validation is off.
	ErrDisabled = errors.New("bridge: secondary validation is disabled for this serializer")
	// ErrNotValidated is returned by Instance before secondary validation
	// succeeded.
	ErrNotValidated = errors.New("bridge: model instance is only available after successful validation")
	// ErrMissingFactory is returned by Install when secondary validation is
	// requested for a model without a factory.
	ErrMissingFactory = errors.New("bridge: secondary validation requires a model factory")
	// ErrAlreadyBound is returned by Install when the class already serves
	// another model.
	ErrAlreadyBound = errors.New("bridge: serializer class is bound to another model")
)

const (
	metaModel   = "bridge.model"
	metaConfig  = "bridge.config"
	trackerSlot = "bridge.tracker"
)

var (
	baseOnce sync.Once
	base     *serializer.Class
)

// Base returns the class synthesized serializers derive from. Custom
// serializers must derive from it to take part in secondary validation.
func Base() *serializer.Class {
	baseOnce.Do(func() {
		base = serializer.NewClass("ModelSerializer", nil)
	})
	return base
}

type tracker struct {
	state    State
	instance schema.Instance
}

// Install binds class to model with the resolved config. When secondary
// validation is enabled the entry point is wrapped so the model runs after
// the serializer's own validation.
func Install(class *serializer.Class, model *schema.Model, cfg config.Config) error {
	if class == nil || model == nil {
		return errors.New("bridge: class and model are required")
	}
	if bound, ok := ModelOf(class); ok && bound != model {
		return fmt.Errorf("%w: %s serves %s", ErrAlreadyBound, class.Name(), bound.Name)
	}
	if cfg.ValidatePydantic && model.Factory == nil {
		return fmt.Errorf("%w: %s", ErrMissingFactory, model.Name)
	}

	if _, ok := ModelOf(class); !ok {
		class.SetMetadata(metaModel, model)
		class.SetMetadata(metaConfig, cfg)
		if cfg.ValidatePydantic {
			class.Use(middleware(model, cfg))
		}
	}
	return nil
}

func middleware(model *schema.Model, cfg config.Config) serializer.Middleware {
	return func(next serializer.RunFunc) serializer.RunFunc {
		return func(s *serializer.Serializer, data map[string]any) (map[string]any, error) {
			tr := &tracker{state: StateDRFValidating}
			s.Attach(trackerSlot, tr)

			out, err := next(s, data)
			if err != nil {
				tr.state = StateDRFInvalid
				return nil, err
			}

			tr.state = StatePydanticValidating
			inst, err := model.Factory.New(out)
			if err != nil {
				tr.state = StatePydanticInvalid
				var verr *schema.ValidationError
				if !errors.As(err, &verr) || cfg.ValidationError == config.ModePydantic {
					return nil, err
				}
				return nil, Reshape(verr, s.Class())
			}

			tr.state = StateFullyValid
			tr.instance = inst
			if cfg.BackpopulateAfterValidation {
				backpopulate(out, inst.Values())
			}
			return out, nil
		}
	}
}

// backpopulate copies final model values over the validated fields.
func backpopulate(out, values map[string]any) {
	for name := range out {
		if v, ok := values[name]; ok {
			out[name] = v
		}
	}
}

// ModelOf returns the model a class was installed for.
func ModelOf(class *serializer.Class) (*schema.Model, bool) {
	if class == nil {
		return nil, false
	}
	v, ok := class.Metadata(metaModel)
	if !ok {
		return nil, false
	}
	m, ok := v.(*schema.Model)
	return m, ok
}

// ConfigOf returns the config a class was installed with.
func ConfigOf(class *serializer.Class) (config.Config, bool) {
	if class == nil {
		return config.Config{}, false
	}
	v, ok := class.Metadata(metaConfig)
	if !ok {
		return config.Config{}, false
	}
	cfg, ok := v.(config.Config)
	return cfg, ok
}

// Enabled reports whether secondary validation runs for serializers of class.
func Enabled(class *serializer.Class) bool {
	cfg, ok := ConfigOf(class)
	return ok && cfg.ValidatePydantic
}

// StateOf reports how far s progressed.
func StateOf(s *serializer.Serializer) State {
	if s == nil || !Enabled(s.Class()) {
		return StateDisabled
	}
	if tr, ok := trackerOf(s); ok {
		return tr.state
	}
	return StateUnvalidated
}

// Instance returns the model instance produced by secondary validation.
func Instance(s *serializer.Serializer) (schema.Instance, error) {
	if s == nil || !Enabled(s.Class()) {
		return nil, ErrDisabled
	}
	tr, ok := trackerOf(s)
	if !ok || tr.state != StateFullyValid {
		return nil, ErrNotValidated
	}
	return tr.instance, nil
}

func trackerOf(s *serializer.Serializer) (*tracker, bool) {
	v, ok := s.Attachment(trackerSlot)
	if !ok {
		return nil, false
	}
	tr, ok := v.(*tracker)
	return tr, ok
}

// Package config holds the serializer configuration declared on validation
// models and the overlay merge applied along a model's ancestor chain.
package config

import (
	"fmt"
	"sort"
)

// Recognised option keys.
const (
	KeyValidatePydantic            = "validate_pydantic"
	KeyBackpopulateAfterValidation = "backpopulate_after_validation"
	KeyValidationError             = "validation_error"
)

// Mode selects which error type secondary validation failures surface as.
type Mode string

const (
	// ModeDRF reshapes secondary failures into serializer validation errors.
	ModeDRF Mode = "drf"
	// ModePydantic propagates the validation model's native error unchanged.
	ModePydantic Mode = "pydantic"
)

// Valid reports whether the mode is one of the recognised values.
func (m Mode) Valid() bool {
	switch m {
	case ModeDRF, ModePydantic:
		return true
	default:
		return false
	}
}

// Config is the effective configuration of one model once every overlay in
// its lineage has been applied.
type Config struct {
	ValidatePydantic            bool `json:"validate_pydantic" yaml:"validate_pydantic"`
	BackpopulateAfterValidation bool `json:"backpopulate_after_validation" yaml:"backpopulate_after_validation"`
	ValidationError             Mode `json:"validation_error" yaml:"validation_error"`
}

// Default returns the configuration used when no level declares anything.
func Default() Config {
	return Config{
		ValidatePydantic:            false,
		BackpopulateAfterValidation: true,
		ValidationError:             ModeDRF,
	}
}

// Keys lists the recognised option keys in declaration order.
func Keys() []string {
	return []string{KeyValidatePydantic, KeyBackpopulateAfterValidation, KeyValidationError}
}

// Overlay is the configuration declared at one level of a model hierarchy.
// Nil members are not declared at that level and inherit from ancestors.
type Overlay struct {
	ValidatePydantic            *bool `json:"validate_pydantic,omitempty" yaml:"validate_pydantic,omitempty"`
	BackpopulateAfterValidation *bool `json:"backpopulate_after_validation,omitempty" yaml:"backpopulate_after_validation,omitempty"`
	ValidationError             *Mode `json:"validation_error,omitempty" yaml:"validation_error,omitempty"`
}

// Bool returns a pointer to v for use in overlay literals.
func Bool(v bool) *bool {
	return &v
}

// ErrorMode returns a pointer to m for use in overlay literals.
func ErrorMode(m Mode) *Mode {
	return &m
}

// IsZero reports whether the overlay declares no keys.
func (o Overlay) IsZero() bool {
	return o.ValidatePydantic == nil && o.BackpopulateAfterValidation == nil && o.ValidationError == nil
}

// Declared returns the keys set on this overlay, sorted.
func (o Overlay) Declared() []string {
	var keys []string
	if o.ValidatePydantic != nil {
		keys = append(keys, KeyValidatePydantic)
	}
	if o.BackpopulateAfterValidation != nil {
		keys = append(keys, KeyBackpopulateAfterValidation)
	}
	if o.ValidationError != nil {
		keys = append(keys, KeyValidationError)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks that every declared value is acceptable.
func (o Overlay) Validate() error {
	if o.ValidationError != nil && !o.ValidationError.Valid() {
		return &Error{
			Key:    KeyValidationError,
			Value:  string(*o.ValidationError),
			Reason: fmt.Sprintf("must be %q or %q", ModeDRF, ModePydantic),
		}
	}
	return nil
}

// Apply overlays the declared keys on top of base and returns the result.
func (o Overlay) Apply(base Config) Config {
	out := base
	if o.ValidatePydantic != nil {
		out.ValidatePydantic = *o.ValidatePydantic
	}
	if o.BackpopulateAfterValidation != nil {
		out.BackpopulateAfterValidation = *o.BackpopulateAfterValidation
	}
	if o.ValidationError != nil {
		out.ValidationError = *o.ValidationError
	}
	return out
}

// Merge applies overlays in order, root ancestor first, on top of Default.
// Each level only replaces the keys it declares.
func Merge(overlays ...Overlay) (Config, error) {
	cfg := Default()
	for _, overlay := range overlays {
		if err := overlay.Validate(); err != nil {
			return Config{}, err
		}
		cfg = overlay.Apply(cfg)
	}
	return cfg, nil
}

// Error reports an invalid configuration key or value.
type Error struct {
	Key    string
	Value  any
	Reason string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Value == nil {
		return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config: %s=%v: %s", e.Key, e.Value, e.Reason)
}

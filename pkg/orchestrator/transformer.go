package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-serializergen/pkg/config"
	"github.com/goliatone/go-serializergen/pkg/schema"
)

// Transformer mutates parsed models before they are defined.
// Implementations can attach config overlays, rename models or adjust
// fields.
type Transformer interface {
	Transform(ctx context.Context, models map[string]*schema.Model) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, models map[string]*schema.Model) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, models map[string]*schema.Model) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, models)
}

// ConfigPresetTransformer layers config overlays loaded from a YAML (or JSON)
// document onto models by name. Keys present in the preset replace the keys
// the model declares; other keys are kept:
//
//	Customer:
//	  validate_pydantic: true
//	  validation_error: pydantic
type ConfigPresetTransformer struct {
	overlays map[string]config.Overlay
}

// NewConfigPresetTransformer constructs a transformer from raw YAML bytes.
func NewConfigPresetTransformer(data []byte) (*ConfigPresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("config preset transformer: document is empty")
	}
	var document map[string]map[string]any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("config preset transformer: parse document: %w", err)
	}
	overlays := make(map[string]config.Overlay, len(document))
	for name, raw := range document {
		overlay, err := config.ParseOverlay(raw)
		if err != nil {
			return nil, fmt.Errorf("config preset transformer: model %q: %w", name, err)
		}
		overlays[name] = overlay
	}
	return &ConfigPresetTransformer{overlays: overlays}, nil
}

// NewConfigPresetTransformerFromFS loads a preset document from the provided
// filesystem path.
func NewConfigPresetTransformerFromFS(fsys fs.FS, path string) (*ConfigPresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("config preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("config preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("config preset transformer: read %s: %w", path, err)
	}
	return NewConfigPresetTransformer(data)
}

// Transform applies the overlays. A preset naming an unknown model is an error.
func (t *ConfigPresetTransformer) Transform(ctx context.Context, models map[string]*schema.Model) error {
	names := make([]string, 0, len(t.overlays))
	for name := range t.overlays {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, ok := models[name]
		if !ok {
			return fmt.Errorf("config preset transformer: model %q not found", name)
		}
		m.Config = layer(m.Config, t.overlays[name])
	}
	return nil
}

func layer(base, top config.Overlay) config.Overlay {
	if top.ValidatePydantic != nil {
		base.ValidatePydantic = top.ValidatePydantic
	}
	if top.BackpopulateAfterValidation != nil {
		base.BackpopulateAfterValidation = top.BackpopulateAfterValidation
	}
	if top.ValidationError != nil {
		base.ValidationError = top.ValidationError
	}
	return base
}

package config_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-serializergen/pkg/config"
)

func TestMergeDefaults(t *testing.T) {
	got, err := config.Merge()
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	want := config.Config{
		ValidatePydantic:            false,
		BackpopulateAfterValidation: true,
		ValidationError:             config.ModeDRF,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeOverlaysAlongLineage(t *testing.T) {
	child := config.Overlay{ValidatePydantic: config.Bool(true)}
	grandchild := config.Overlay{BackpopulateAfterValidation: config.Bool(false)}

	got, err := config.Merge(config.Overlay{}, child, grandchild)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	want := config.Config{
		ValidatePydantic:            true,
		BackpopulateAfterValidation: false,
		ValidationError:             config.ModeDRF,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeLaterLevelWins(t *testing.T) {
	got, err := config.Merge(
		config.Overlay{ValidatePydantic: config.Bool(true), ValidationError: config.ErrorMode(config.ModePydantic)},
		config.Overlay{ValidatePydantic: config.Bool(false)},
	)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got.ValidatePydantic {
		t.Fatalf("expected redeclared key to win")
	}
	if got.ValidationError != config.ModePydantic {
		t.Fatalf("expected inherited mode, got %q", got.ValidationError)
	}
}

func TestMergeRejectsInvalidMode(t *testing.T) {
	_, err := config.Merge(config.Overlay{ValidationError: config.ErrorMode("strict")})
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected config error, got %v", err)
	}
	if cfgErr.Key != config.KeyValidationError {
		t.Fatalf("expected key %q, got %q", config.KeyValidationError, cfgErr.Key)
	}
}

func TestParseOverlay(t *testing.T) {
	overlay, err := config.ParseOverlay(map[string]any{
		"validate_pydantic": true,
		"validation_error":  "pydantic",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"validate_pydantic", "validation_error"}, overlay.Declared()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if overlay.BackpopulateAfterValidation != nil {
		t.Fatalf("expected undeclared key to stay nil")
	}
}

func TestParseOverlayErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]any
		key  string
	}{
		{name: "unknown key", raw: map[string]any{"validate": true}, key: "validate"},
		{name: "bool type", raw: map[string]any{"validate_pydantic": "yes"}, key: "validate_pydantic"},
		{name: "mode value", raw: map[string]any{"validation_error": "both"}, key: "validation_error"},
		{name: "mode type", raw: map[string]any{"validation_error": 1}, key: "validation_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.ParseOverlay(tc.raw)
			var cfgErr *config.Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected config error, got %v", err)
			}
			if cfgErr.Key != tc.key {
				t.Fatalf("expected key %q, got %q", tc.key, cfgErr.Key)
			}
		})
	}
}

func TestDecodeYAML(t *testing.T) {
	overlay, err := config.DecodeYAML([]byte("validate_pydantic: true\nvalidation_error: pydantic\n"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	cfg := overlay.Apply(config.Default())
	want := config.Config{ValidatePydantic: true, BackpopulateAfterValidation: true, ValidationError: config.ModePydantic}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeYAMLRejectsUnknownKeys(t *testing.T) {
	_, err := config.DecodeYAML([]byte("validate_pydantic: true\nstrict: true\n"))
	if err == nil {
		t.Fatalf("expected unknown key to fail")
	}
	if !strings.Contains(err.Error(), "strict") {
		t.Fatalf("expected error to name the key, got %v", err)
	}
}

func TestDecodeYAMLRejectsBadMode(t *testing.T) {
	_, err := config.DecodeYAML([]byte("validation_error: loose\n"))
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestDecodeYAMLEmpty(t *testing.T) {
	overlay, err := config.DecodeYAML([]byte("  \n"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !overlay.IsZero() {
		t.Fatalf("expected zero overlay")
	}
}

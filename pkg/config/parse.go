package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseOverlay converts a loosely typed mapping (struct tag payloads, OpenAPI
// extensions, decoded JSON) into an Overlay. Unknown keys and wrongly typed
// values are rejected.
func ParseOverlay(raw map[string]any) (Overlay, error) {
	var overlay Overlay
	if len(raw) == 0 {
		return overlay, nil
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		switch key {
		case KeyValidatePydantic:
			b, err := parseBool(key, value)
			if err != nil {
				return Overlay{}, err
			}
			overlay.ValidatePydantic = &b
		case KeyBackpopulateAfterValidation:
			b, err := parseBool(key, value)
			if err != nil {
				return Overlay{}, err
			}
			overlay.BackpopulateAfterValidation = &b
		case KeyValidationError:
			mode, err := parseMode(value)
			if err != nil {
				return Overlay{}, err
			}
			overlay.ValidationError = &mode
		default:
			return Overlay{}, &Error{Key: key, Reason: "unknown option"}
		}
	}
	return overlay, overlay.Validate()
}

func parseBool(key string, value any) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, &Error{Key: key, Value: value, Reason: fmt.Sprintf("expected bool, got %T", value)}
	}
	return b, nil
}

func parseMode(value any) (Mode, error) {
	var mode Mode
	switch v := value.(type) {
	case string:
		mode = Mode(strings.TrimSpace(v))
	case Mode:
		mode = v
	default:
		return "", &Error{Key: KeyValidationError, Value: value, Reason: fmt.Sprintf("expected string, got %T", value)}
	}
	if !mode.Valid() {
		return "", &Error{
			Key:    KeyValidationError,
			Value:  string(mode),
			Reason: fmt.Sprintf("must be %q or %q", ModeDRF, ModePydantic),
		}
	}
	return mode, nil
}

// UnmarshalYAML rejects unrecognised modes while decoding.
func (m *Mode) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return &Error{Key: KeyValidationError, Value: node.Value, Reason: "expected string"}
	}
	mode, err := parseMode(raw)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// DecodeYAML reads an overlay document. Keys outside the recognised set are
// rejected. An empty document yields an empty overlay.
func DecodeYAML(data []byte) (Overlay, error) {
	var overlay Overlay
	if len(bytes.TrimSpace(data)) == 0 {
		return overlay, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&overlay); err != nil {
		if errors.Is(err, io.EOF) {
			return Overlay{}, nil
		}
		var cfgErr *Error
		if errors.As(err, &cfgErr) {
			return Overlay{}, cfgErr
		}
		return Overlay{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	return overlay, overlay.Validate()
}

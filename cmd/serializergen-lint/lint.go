package main

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-serializergen/pkg/config"
)

const (
	configExtension        = "x-drf-config"
	maxDigitsExtension     = "x-max-digits"
	decimalPlacesExtension = "x-decimal-places"
)

// lintDocument checks the serializer extensions declared on component
// schemas and on every inline schema below them.
func lintDocument(ctx context.Context, file string, raw []byte) ([]violation, error) {
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc.Components == nil {
		return nil, nil
	}

	names := make([]string, 0, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	l := &linter{file: file, seen: make(map[*openapi3.Schema]bool)}
	for _, name := range names {
		ref := doc.Components.Schemas[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		l.schema([]string{"components", "schemas", name}, ref.Value)
	}
	return l.result, nil
}

type linter struct {
	file   string
	seen   map[*openapi3.Schema]bool
	result []violation
}

func (l *linter) report(path []string, format string, args ...any) {
	l.result = append(l.result, violation{
		file:     l.file,
		location: formatLocation(path),
		message:  fmt.Sprintf(format, args...),
	})
}

func (l *linter) schema(path []string, s *openapi3.Schema) {
	if s == nil || l.seen[s] {
		return
	}
	l.seen[s] = true

	if raw, ok := s.Extensions[configExtension]; ok {
		if len(s.Properties) == 0 && len(s.AllOf) == 0 {
			l.report(path, "%s is only read on object schemas", configExtension)
		}
		l.config(path, raw)
	}
	l.decimal(path, s)

	keys := make([]string, 0, len(s.Properties))
	for key := range s.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		l.inline(appendPath(path, "properties."+key), s.Properties[key])
	}
	l.inline(appendPath(path, "items"), s.Items)
	l.inline(appendPath(path, "additionalProperties"), s.AdditionalProperties.Schema)
	l.members(path, "allOf", s.AllOf)
	l.members(path, "oneOf", s.OneOf)
	l.members(path, "anyOf", s.AnyOf)
}

// inline descends into schemas declared in place. Referenced components are
// linted under their own location.
func (l *linter) inline(path []string, ref *openapi3.SchemaRef) {
	if ref == nil || ref.Ref != "" || ref.Value == nil {
		return
	}
	l.schema(path, ref.Value)
}

func (l *linter) members(path []string, group string, refs openapi3.SchemaRefs) {
	for i, ref := range refs {
		l.inline(appendPath(path, fmt.Sprintf("%s[%d]", group, i)), ref)
	}
}

func (l *linter) config(path []string, raw any) {
	values, ok := raw.(map[string]any)
	if !ok {
		l.report(path, "%s must be an object, found %T", configExtension, raw)
		return
	}
	if _, err := config.ParseOverlay(values); err != nil {
		l.report(path, "%s: %v", configExtension, err)
	}
}

func (l *linter) decimal(path []string, s *openapi3.Schema) {
	digits, hasDigits := l.count(path, s.Extensions, maxDigitsExtension)
	places, hasPlaces := l.count(path, s.Extensions, decimalPlacesExtension)
	if !hasDigits && !hasPlaces {
		return
	}
	if s.Format != "decimal" {
		l.report(path, "decimal extensions need format \"decimal\", found %q", s.Format)
	}
	if hasDigits && hasPlaces && places > digits {
		l.report(path, "%s (%d) exceeds %s (%d)", decimalPlacesExtension, places, maxDigitsExtension, digits)
	}
}

// count reads a non-negative integer extension, reporting malformed values.
func (l *linter) count(path []string, ext map[string]any, key string) (int, bool) {
	raw, ok := ext[key]
	if !ok {
		return 0, false
	}
	n, ok := raw.(float64)
	if !ok || n != math.Trunc(n) || n < 0 {
		l.report(path, "%s must be a non-negative integer, found %v", key, raw)
		return 0, false
	}
	return int(n), true
}

func appendPath(path []string, segment string) []string {
	next := append([]string(nil), path...)
	next = append(next, segment)
	return next
}

func formatLocation(path []string) string {
	return strings.Join(path, " > ")
}

// Package serializergen synthesizes request serializers from validation
// models. Models come from Go structs (pkg/structmodel), OpenAPI component
// schemas (pkg/openapi) or hand-built schema.Model values; pkg/registry
// defines them once and caches the resulting serializer classes.
package serializergen

import (
	"context"

	internalLoader "github.com/goliatone/go-serializergen/internal/openapi/loader"
	internalParser "github.com/goliatone/go-serializergen/internal/openapi/parser"
	pkgopenapi "github.com/goliatone/go-serializergen/pkg/openapi"
	"github.com/goliatone/go-serializergen/pkg/orchestrator"
	"github.com/goliatone/go-serializergen/pkg/registry"
)

// Request aliases orchestrator.Request for callers using the root package.
type Request = orchestrator.Request

// Transformer aliases orchestrator.Transformer.
type Transformer = orchestrator.Transformer

// NewLoader returns the built-in OpenAPI loader.
func NewLoader(options ...pkgopenapi.LoaderOption) pkgopenapi.Loader {
	return internalLoader.New(pkgopenapi.NewLoaderOptions(options...))
}

// NewParser returns the built-in parser turning component schemas into
// validation models.
func NewParser(options ...pkgopenapi.ParserOption) pkgopenapi.Parser {
	return internalParser.New(pkgopenapi.NewParserOptions(options...))
}

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// Generate loads the OpenAPI source, defines serializers for the named
// component models (all when none are named) and renders them in format.
func Generate(ctx context.Context, source pkgopenapi.Source, format string, models []string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	return gen.Generate(ctx, orchestrator.Request{
		Source: source,
		Models: models,
		Format: format,
	})
}

// GenerateFromDocument renders serializers from a pre-loaded document,
// bypassing the loader stage.
func GenerateFromDocument(ctx context.Context, doc pkgopenapi.Document, format string, models []string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	return gen.Generate(ctx, orchestrator.Request{
		Document: &doc,
		Models:   models,
		Format:   format,
	})
}

// Define loads the OpenAPI source and defines serializers for the named
// component models in reg.
func Define(ctx context.Context, reg *registry.Registry, source pkgopenapi.Source, models []string, options ...orchestrator.Option) ([]*registry.Definition, error) {
	options = append(options, orchestrator.WithRegistry(reg))
	gen := orchestrator.New(options...)
	return gen.Define(ctx, orchestrator.Request{Source: source, Models: models})
}

// WithConfigPreset parses a YAML preset of per-model config overlays and
// registers it as the orchestrator transformer.
func WithConfigPreset(data []byte) (orchestrator.Option, error) {
	preset, err := orchestrator.NewConfigPresetTransformer(data)
	if err != nil {
		return nil, err
	}
	return orchestrator.WithTransformer(preset), nil
}

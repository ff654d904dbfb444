package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	internalLoader "github.com/goliatone/go-serializergen/internal/openapi/loader"
	internalParser "github.com/goliatone/go-serializergen/internal/openapi/parser"
	"github.com/goliatone/go-serializergen/pkg/describe"
	"github.com/goliatone/go-serializergen/pkg/export"
	pkgopenapi "github.com/goliatone/go-serializergen/pkg/openapi"
	"github.com/goliatone/go-serializergen/pkg/registry"
	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

const (
	defaultFormat    = "json"
	jsonSchemaFormat = "jsonschema"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithLoader injects a custom OpenAPI loader.
func WithLoader(loader pkgopenapi.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = loader
	}
}

// WithParser injects a custom OpenAPI parser.
func WithParser(parser pkgopenapi.Parser) Option {
	return func(o *Orchestrator) {
		o.parser = parser
	}
}

// WithRegistry injects the model registry definitions are stored in. By
// default every orchestrator owns a fresh registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = reg
	}
}

// WithRenderers injects the renderer registry used by Generate.
func WithRenderers(renderers *describe.Registry) Option {
	return func(o *Orchestrator) {
		o.renderers = renderers
	}
}

// WithDefaultFormat overrides the format used when a request omits one.
func WithDefaultFormat(name string) Option {
	return func(o *Orchestrator) {
		o.defaultFormat = name
	}
}

// WithTransformer registers a Transformer that can adjust parsed models
// before they are defined.
func WithTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		o.transformer = t
	}
}

// WithLogger sets the logger handed to the default registry.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator coordinates the pipeline from OpenAPI document to rendered
// serializer descriptions.
type Orchestrator struct {
	loader        pkgopenapi.Loader
	parser        pkgopenapi.Parser
	registry      *registry.Registry
	renderers     *describe.Registry
	defaultFormat string
	transformer   Transformer
	logger        *slog.Logger
	initialiseErr error
}

// New constructs an Orchestrator applying any provided options. Missing
// dependencies are initialised with the built-in implementations.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultFormat: defaultFormat,
		logger:        slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes one run of the pipeline.
type Request struct {
	// Source identifies where the OpenAPI document lives. Optional when Document
	// is supplied.
	Source pkgopenapi.Source

	// Document allows callers to bypass the loader.
	Document *pkgopenapi.Document

	// Models selects component models. Empty selects every model.
	Models []string

	// Format names the renderer. Empty falls back to the default format.
	Format string

	// Title is passed to renderers that print one.
	Title string
}

// Registry returns the registry definitions are stored in.
func (o *Orchestrator) Registry() *registry.Registry {
	return o.registry
}

// Models loads and parses the request document and applies the transformer.
func (o *Orchestrator) Models(ctx context.Context, req Request) (map[string]*schema.Model, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.initialiseErr; err != nil {
		return nil, err
	}

	doc, err := o.resolveDocument(ctx, req)
	if err != nil {
		return nil, err
	}
	models, err := o.parser.Models(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: parse models: %w", err)
	}
	if o.transformer != nil {
		if err := o.transformer.Transform(ctx, models); err != nil {
			return nil, fmt.Errorf("orchestrator: transform models: %w", err)
		}
	}
	return models, nil
}

// Define runs the pipeline up to definition and returns the definitions of
// the selected models, in name order.
func (o *Orchestrator) Define(ctx context.Context, req Request) ([]*registry.Definition, error) {
	models, err := o.Models(ctx, req)
	if err != nil {
		return nil, err
	}

	names, err := selectModels(models, req.Models)
	if err != nil {
		return nil, err
	}
	defs := make([]*registry.Definition, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		def, err := o.registry.Define(models[name])
		if err != nil {
			return nil, fmt.Errorf("orchestrator: define %s: %w", name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Generate executes the full pipeline and returns the rendered output.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	defs, err := o.Define(ctx, req)
	if err != nil {
		return nil, err
	}

	roots := make([]string, 0, len(defs))
	for _, def := range defs {
		roots = append(roots, def.Model.Name)
	}
	doc := describe.FromDefinitions(reachable(o.registry, defs)...)
	doc.Title = req.Title

	renderer, err := o.rendererFor(req.Format, roots)
	if err != nil {
		return nil, err
	}
	output, err := renderer.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

func (o *Orchestrator) resolveDocument(ctx context.Context, req Request) (pkgopenapi.Document, error) {
	if req.Document != nil {
		return *req.Document, nil
	}
	if req.Source == nil {
		return pkgopenapi.Document{}, errors.New("orchestrator: source or document is required")
	}
	doc, err := o.loader.Load(ctx, req.Source)
	if err != nil {
		return pkgopenapi.Document{}, fmt.Errorf("orchestrator: load document: %w", err)
	}
	return doc, nil
}

// rendererFor resolves the named renderer. A JSON Schema request for a single
// model renders that model's schema rather than bare definitions.
func (o *Orchestrator) rendererFor(name string, roots []string) (describe.Renderer, error) {
	target := name
	if target == "" {
		target = o.defaultFormat
	}
	if target == jsonSchemaFormat && len(roots) == 1 {
		return export.Renderer{Model: roots[0]}, nil
	}
	renderer, err := o.renderers.Get(target)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: format %q: %w", target, err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyDefaults() {
	if o.loader == nil {
		o.loader = internalLoader.New(pkgopenapi.NewLoaderOptions())
	}
	if o.parser == nil {
		o.parser = internalParser.New(pkgopenapi.NewParserOptions())
	}
	if o.registry == nil {
		o.registry = registry.New(registry.WithLogger(o.logger))
	}
	if o.renderers == nil {
		renderers, err := describe.DefaultRegistry()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderers: %w", err)
			return
		}
		renderers.MustRegister(export.Renderer{})
		o.renderers = renderers
	}
	if o.defaultFormat == "" {
		o.defaultFormat = defaultFormat
	}
}

func selectModels(models map[string]*schema.Model, requested []string) ([]string, error) {
	if len(requested) == 0 {
		names := make([]string, 0, len(models))
		for name := range models {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	}
	names := append([]string(nil), requested...)
	sort.Strings(names)
	for _, name := range names {
		if _, ok := models[name]; !ok {
			return nil, fmt.Errorf("orchestrator: model %q not found", name)
		}
	}
	return names, nil
}

// reachable returns roots and every definition their serializers nest, in
// registry order.
func reachable(reg *registry.Registry, roots []*registry.Definition) []*registry.Definition {
	all := reg.Definitions()
	byClass := make(map[*serializer.Class]*registry.Definition, len(all))
	for _, def := range all {
		byClass[def.Serializer] = def
	}
	keep := make(map[*serializer.Class]bool)
	var visit func(class *serializer.Class)
	visit = func(class *serializer.Class) {
		if class == nil || keep[class] {
			return
		}
		keep[class] = true
		for _, name := range class.Fields() {
			f, _ := class.Field(name)
			for cur := f; cur != nil; cur = cur.Child() {
				visit(cur.Nested())
			}
		}
	}
	for _, def := range roots {
		visit(def.Serializer)
	}

	out := make([]*registry.Definition, 0, len(keep))
	for _, def := range all {
		if keep[def.Serializer] {
			out = append(out, def)
		}
	}
	return out
}

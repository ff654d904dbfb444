package parser

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	pkgopenapi "github.com/goliatone/go-serializergen/pkg/openapi"
	"github.com/goliatone/go-serializergen/pkg/schema"
)

// Parser implements pkgopenapi.Parser using kin-openapi.
type Parser struct {
	options pkgopenapi.ParserOptions
}

var _ pkgopenapi.Parser = (*Parser)(nil)

// New constructs a Parser with the given options.
func New(options pkgopenapi.ParserOptions) pkgopenapi.Parser {
	return &Parser{options: options}
}

// Models converts components.schemas into validation models keyed by name.
func (p *Parser) Models(ctx context.Context, doc pkgopenapi.Document) (map[string]*schema.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := doc.Raw()
	if len(raw) == 0 {
		return nil, errors.New("openapi parser: document payload is empty")
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: p.options.ExternalReferences,
	}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi parser: load document: %w", err)
	}
	if p.options.ValidateDocument {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi parser: validate: %w", err)
		}
	}
	if spec.Components == nil || len(spec.Components.Schemas) == 0 {
		return nil, errors.New("openapi parser: document has no component schemas")
	}

	schemas := spec.Components.Schemas
	names := p.options.Components
	explicit := len(names) > 0
	if !explicit {
		for name := range schemas {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	c := newConverter()
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref, ok := schemas[name]
		if !ok || ref == nil || ref.Value == nil {
			return nil, fmt.Errorf("openapi parser: component %q not found", name)
		}
		if !isComponentModel(ref.Value) {
			if explicit {
				return nil, fmt.Errorf("openapi parser: component %q is not an object schema", name)
			}
			continue
		}
		c.model(name, ref.Value)
		if c.err != nil {
			return nil, c.err
		}
	}
	if len(c.byName) == 0 {
		return nil, errors.New("openapi parser: no object schemas found in components")
	}
	return c.byName, nil
}

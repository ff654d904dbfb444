package openapi

import (
	"context"

	"github.com/goliatone/go-serializergen/pkg/schema"
)

// Parser turns the component schemas of a document into validation models,
// keyed by component name. Inline object schemas reached from components are
// returned too, under their derived names.
type Parser interface {
	Models(ctx context.Context, doc Document) (map[string]*schema.Model, error)
}

// ParserOptions configures a Parser.
type ParserOptions struct {
	// ExternalReferences allows $ref pointers to other documents.
	ExternalReferences bool

	// ValidateDocument runs the OpenAPI document validator before parsing.
	ValidateDocument bool

	// Components restricts parsing to the named component schemas and the
	// models they reference. Empty means all components.
	Components []string
}

// ParserOption mutates ParserOptions.
type ParserOption func(*ParserOptions)

// WithExternalReferences toggles resolution of references to other documents.
func WithExternalReferences(enabled bool) ParserOption {
	return func(opts *ParserOptions) {
		opts.ExternalReferences = enabled
	}
}

// WithDocumentValidation toggles OpenAPI document validation.
func WithDocumentValidation(enabled bool) ParserOption {
	return func(opts *ParserOptions) {
		opts.ValidateDocument = enabled
	}
}

// WithComponents restricts parsing to the named component schemas.
func WithComponents(names ...string) ParserOption {
	return func(opts *ParserOptions) {
		opts.Components = append(opts.Components, names...)
	}
}

// NewParserOptions applies options over the defaults: document validation on,
// external references off.
func NewParserOptions(options ...ParserOption) ParserOptions {
	cfg := ParserOptions{ValidateDocument: true}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

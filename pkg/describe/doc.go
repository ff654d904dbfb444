// Package describe turns registry definitions into a plain tree of models,
// serializer fields and constructor options, and renders that tree as JSON,
// YAML or Markdown. Renderers are looked up by name through a Registry so
// callers can plug in additional formats.
package describe

// Package orchestrator wires the loader → parser → registry → renderer
// pipeline: it reads an OpenAPI document, turns its component schemas into
// validation models, defines their serializers and renders the result in the
// requested format.
package orchestrator

package describe

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"gopkg.in/yaml.v3"
)

// JSON renders documents as indented JSON.
type JSON struct{}

func (JSON) Name() string        { return "json" }
func (JSON) ContentType() string { return "application/json" }

func (JSON) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("describe: encode json: %w", err)
	}
	return append(out, '\n'), nil
}

// YAML renders documents as YAML.
type YAML struct{}

func (YAML) Name() string        { return "yaml" }
func (YAML) ContentType() string { return "application/yaml" }

func (YAML) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("describe: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("describe: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

//go:embed templates/*.tpl
var templatesFS embed.FS

const markdownTemplate = "markdown.tpl"

var registerFilters sync.Once

// Markdown renders documents through a pongo2 template.
type Markdown struct {
	tmpl *pongo2.Template
}

// NewMarkdown parses the embedded markdown template.
func NewMarkdown() (*Markdown, error) {
	registerFilters.Do(func() {
		if !pongo2.FilterExists("inline_options") {
			_ = pongo2.RegisterFilter("inline_options", filterInlineOptions)
		}
	})
	set := pongo2.NewSet("describe", pongo2.NewFSLoader(templatesFS))
	tmpl, err := set.FromFile("templates/" + markdownTemplate)
	if err != nil {
		return nil, fmt.Errorf("describe: parse markdown template: %w", err)
	}
	return &Markdown{tmpl: tmpl}, nil
}

func (*Markdown) Name() string        { return "markdown" }
func (*Markdown) ContentType() string { return "text/markdown" }

func (m *Markdown) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	title := doc.Title
	if title == "" {
		title = "Serializers"
	}
	out, err := m.tmpl.ExecuteBytes(pongo2.Context{
		"title":  title,
		"models": doc.Models,
	})
	if err != nil {
		return nil, fmt.Errorf("describe: execute markdown template: %w", err)
	}
	return out, nil
}

// filterInlineOptions formats field options as `key=value` pairs sorted by
// key, for table cells.
func filterInlineOptions(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	opts, ok := in.Interface().(map[string]any)
	if !ok || len(opts) == 0 {
		return pongo2.AsValue(""), nil
	}
	keys := make([]string, 0, len(opts))
	for key := range opts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		cell := strings.ReplaceAll(inlineValue(opts[key]), "|", `\|`)
		parts = append(parts, fmt.Sprintf("`%s=%s`", key, cell))
	}
	return pongo2.AsValue(strings.Join(parts, " ")), nil
}

func inlineValue(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(buf.String())
}

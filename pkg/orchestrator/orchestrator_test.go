package orchestrator_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	internalParser "github.com/goliatone/go-serializergen/internal/openapi/parser"
	"github.com/goliatone/go-serializergen/pkg/bridge"
	"github.com/goliatone/go-serializergen/pkg/config"
	pkgopenapi "github.com/goliatone/go-serializergen/pkg/openapi"
	"github.com/goliatone/go-serializergen/pkg/orchestrator"
	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/testsupport"
)

var source = pkgopenapi.SourceFromFile(filepath.Join("testdata", "shop.yaml"))

func newOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	base := []orchestrator.Option{
		orchestrator.WithLogger(testsupport.DiscardLogger()),
		orchestrator.WithParser(internalParser.New(pkgopenapi.NewParserOptions(pkgopenapi.WithDocumentValidation(false)))),
	}
	return orchestrator.New(append(base, options...)...)
}

func TestGenerateDescribesSelectedModels(t *testing.T) {
	out, err := newOrchestrator().Generate(testsupport.Context(t), orchestrator.Request{
		Source: source,
		Models: []string{"Customer"},
		Title:  "Shop",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var doc struct {
		Title  string `json:"title"`
		Models []struct {
			Name   string `json:"name"`
			Parent string `json:"parent"`
			Fields []struct {
				Name string `json:"name"`
			} `json:"fields"`
		} `json:"models"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}

	var names []string
	for _, m := range doc.Models {
		names = append(names, m.Name)
	}
	if diff := cmp.Diff([]string{"Address", "Customer"}, names); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	customer := doc.Models[1]
	var fields []string
	for _, f := range customer.Fields {
		fields = append(fields, f.Name)
	}
	if diff := cmp.Diff([]string{"id", "address", "email", "name", "tier"}, fields); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if customer.Parent != "Entity" || doc.Title != "Shop" {
		t.Fatalf("unexpected customer %+v", customer)
	}
}

func TestGenerateJSONSchemaForOneModel(t *testing.T) {
	out, err := newOrchestrator().Generate(testsupport.Context(t), orchestrator.Request{
		Source: source,
		Models: []string{"Customer"},
		Format: "jsonschema",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, want := range []string{`"$ref": "#/$defs/CustomerSerializer"`, `"AddressSerializer"`} {
		if !strings.Contains(string(out), want) {
			t.Fatalf("expected %s in output:\n%s", want, out)
		}
	}

	out, err = newOrchestrator().Generate(testsupport.Context(t), orchestrator.Request{Source: source, Format: "markdown"})
	if err != nil {
		t.Fatalf("generate markdown: %v", err)
	}
	if !strings.Contains(string(out), "## Entity") {
		t.Fatalf("expected every model in markdown output:\n%s", out)
	}
}

func TestPresetEnablesModelValidation(t *testing.T) {
	preset, err := orchestrator.NewConfigPresetTransformerFromFS(fstest.MapFS{
		"preset.yaml": &fstest.MapFile{Data: []byte("Customer:\n  validate_pydantic: true\n")},
	}, "preset.yaml")
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	orch := newOrchestrator(orchestrator.WithTransformer(preset))

	defs, err := orch.Define(testsupport.Context(t), orchestrator.Request{Source: source, Models: []string{"Customer"}})
	if err != nil {
		t.Fatalf("define: %v", err)
	}
	def := defs[0]
	if !def.Config.ValidatePydantic || def.Config.ValidationError != config.ModeDRF {
		t.Fatalf("unexpected config %+v", def.Config)
	}
	if !bridge.Enabled(def.Serializer) {
		t.Fatalf("expected secondary validation on %s", def.Serializer.Name())
	}

	s, err := orch.Registry().New(def.Model, map[string]any{
		"id":      1,
		"email":   "ada@example.com",
		"name":    "Ada",
		"address": map[string]any{"city": "Lisbon"},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if ok, err := s.IsValid(); !ok || err != nil {
		t.Fatalf("expected valid payload, got %v %v", s.Errors(), err)
	}
	inst, err := bridge.Instance(s)
	if err != nil {
		t.Fatalf("instance: %v", err)
	}
	if inst.Values()["tier"] != "free" {
		t.Fatalf("expected default tier in model values, got %v", inst.Values())
	}
}

func TestTransformerFuncSeesParsedModels(t *testing.T) {
	var seen []string
	orch := newOrchestrator(orchestrator.WithTransformer(orchestrator.TransformerFunc(
		func(ctx context.Context, models map[string]*schema.Model) error {
			for name := range models {
				seen = append(seen, name)
			}
			return nil
		},
	)))
	if _, err := orch.Models(testsupport.Context(t), orchestrator.Request{Source: source}); err != nil {
		t.Fatalf("models: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("expected three object models, got %v", seen)
	}
}

func TestGenerateErrors(t *testing.T) {
	ctx := testsupport.Context(t)
	orch := newOrchestrator()

	cases := map[string]orchestrator.Request{
		"missing source": {},
		"unknown model":  {Source: source, Models: []string{"Invoice"}},
		"unknown format": {Source: source, Format: "html"},
		"missing file":   {Source: pkgopenapi.SourceFromFile(filepath.Join("testdata", "missing.yaml"))},
	}
	for name, req := range cases {
		if _, err := orch.Generate(ctx, req); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	if _, err := orchestrator.NewConfigPresetTransformer([]byte("Customer:\n  validate_everything: true\n")); err == nil {
		t.Fatalf("expected preset key error")
	}
	preset, err := orchestrator.NewConfigPresetTransformer([]byte("Invoice:\n  validate_pydantic: true\n"))
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	if _, err := newOrchestrator(orchestrator.WithTransformer(preset)).Define(ctx, orchestrator.Request{Source: source}); err == nil {
		t.Fatalf("expected unknown preset model error")
	}
}

func TestDefineFromLoadedDocument(t *testing.T) {
	doc := testsupport.Fixture(t, "shop.yaml")
	defs, err := newOrchestrator().Define(testsupport.Context(t), orchestrator.Request{Document: &doc})
	if err != nil {
		t.Fatalf("define: %v", err)
	}
	var names []string
	for _, def := range defs {
		names = append(names, def.Model.Name)
	}
	if diff := cmp.Diff([]string{"Address", "Customer", "Entity"}, names); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

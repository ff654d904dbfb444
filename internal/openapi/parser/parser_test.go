package parser_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-serializergen/internal/openapi/parser"
	"github.com/goliatone/go-serializergen/pkg/bridge"
	pkgopenapi "github.com/goliatone/go-serializergen/pkg/openapi"
	"github.com/goliatone/go-serializergen/pkg/registry"
	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

const shop = `openapi: 3.0.3
info: {title: Shop, version: "1.0"}
paths: {}
components:
  schemas:
    Entity:
      type: object
      required: [id]
      properties:
        id: {type: integer, minimum: 1}
    Customer:
      description: A paying customer
      x-drf-config:
        validate_pydantic: true
      allOf:
        - $ref: '#/components/schemas/Entity'
        - type: object
          required: [email, name]
          properties:
            email: {type: string, format: email}
            name: {type: string, minLength: 2, maxLength: 40, title: Display name}
            tier: {type: string, enum: [free, pro], default: free}
            referrer:
              $ref: '#/components/schemas/Customer'
            address:
              type: object
              required: [city]
              properties:
                city: {type: string}
                zip: {type: string, pattern: '^[0-9]{5}$', nullable: true}
            balance: {type: string, format: decimal, x-max-digits: 10, x-decimal-places: 2}
            score: {type: number, minimum: 0, maximum: 10, exclusiveMaximum: true}
            tags:
              type: array
              items: {type: string}
              maxItems: 5
              uniqueItems: true
            metadata:
              type: object
              additionalProperties: {type: integer}
            contact:
              oneOf:
                - {type: string, format: email}
                - {type: integer}
    Status:
      type: string
      enum: [active, closed]
`

func parse(t *testing.T, raw string, options ...pkgopenapi.ParserOption) map[string]*schema.Model {
	t.Helper()
	options = append([]pkgopenapi.ParserOption{pkgopenapi.WithDocumentValidation(false)}, options...)
	p := parser.New(pkgopenapi.NewParserOptions(options...))
	doc := pkgopenapi.MustNewDocument(pkgopenapi.SourceFromFile("shop.yaml"), []byte(raw))
	models, err := p.Models(context.Background(), doc)
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	return models
}

func TestModelsFromComponents(t *testing.T) {
	models := parse(t, shop)

	var names []string
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	if diff := cmp.Diff([]string{"Customer", "CustomerAddress", "Entity"}, names); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	customer := models["Customer"]
	if customer.Parent != models["Entity"] || customer.Description != "A paying customer" {
		t.Fatalf("unexpected customer model %+v", customer)
	}
	if customer.Config.ValidatePydantic == nil || !*customer.Config.ValidatePydantic {
		t.Fatalf("expected x-drf-config overlay, got %+v", customer.Config)
	}

	var fields []string
	for _, f := range customer.AllFields() {
		fields = append(fields, f.Name)
	}
	want := []string{"id", "address", "balance", "contact", "email", "metadata", "name", "referrer", "score", "tags", "tier"}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	types := map[string]schema.Type{
		"address":  schema.Ref(models["CustomerAddress"]),
		"balance":  schema.Decimal(),
		"contact":  schema.Union(schema.Email(), schema.Integer()),
		"email":    schema.Email(),
		"metadata": schema.MapOf(schema.String(), schema.Integer()),
		"name":     schema.String(),
		"referrer": schema.Ref(customer),
		"score":    schema.Float(),
		"tags":     schema.SetOf(schema.String()),
		"tier":     schema.Enum("free", "pro"),
	}
	for name, want := range types {
		f, _ := customer.Field(name)
		if !f.Type.Equal(want) {
			t.Fatalf("%s: expected %s, got %s", name, want, f.Type)
		}
	}

	name, _ := customer.Field("name")
	if name.Title != "Display name" || name.Optional {
		t.Fatalf("unexpected name field %+v", name)
	}
	if diff := cmp.Diff(schema.Constraints{MinLength: schema.Int(2), MaxLength: schema.Int(40)}, name.Constraints); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	score, _ := customer.Field("score")
	if diff := cmp.Diff(schema.Constraints{Ge: schema.Number(0), Lt: schema.Number(10)}, score.Constraints); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	balance, _ := customer.Field("balance")
	if diff := cmp.Diff(schema.Constraints{MaxDigits: schema.Int(10), DecimalPlaces: schema.Int(2)}, balance.Constraints); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	tags, _ := customer.Field("tags")
	if diff := cmp.Diff(schema.Constraints{MaxLength: schema.Int(5)}, tags.Constraints); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	tier, _ := customer.Field("tier")
	if !tier.Optional || !tier.HasDefault || tier.Default != "free" {
		t.Fatalf("unexpected tier field %+v", tier)
	}

	zip, _ := models["CustomerAddress"].Field("zip")
	if !zip.IsNullable() || zip.Constraints.Pattern != "^[0-9]{5}$" {
		t.Fatalf("unexpected zip field %+v", zip)
	}
}

func TestFactoryValidatesAgainstSchema(t *testing.T) {
	customer := parse(t, shop)["Customer"]

	inst, err := customer.Factory.New(map[string]any{
		"id":      int64(7),
		"email":   "ada@example.com",
		"name":    "Ada",
		"balance": decimal.RequireFromString("12.50"),
		"address": map[string]any{"city": "Lisbon", "zip": nil},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if inst.Values()["id"] != int64(7) {
		t.Fatalf("expected instance values to keep serializer types, got %v", inst.Values())
	}

	_, err = customer.Factory.New(map[string]any{
		"id":    int64(7),
		"email": "ada@example.com",
		"name":  "A",
		"score": 10.0,
	})
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	var locations []string
	for _, issue := range verr.Issues {
		locations = append(locations, issue.Location())
	}
	sort.Strings(locations)
	if diff := cmp.Diff([]string{"name", "score"}, locations); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDRFModeReshapesAllOfFailures(t *testing.T) {
	const document = `openapi: 3.0.3
info: {title: Orders, version: "1.0"}
paths: {}
components:
  schemas:
    Entity:
      type: object
      required: [id]
      properties:
        id: {type: integer, minimum: 1}
    Order:
      x-drf-config:
        validate_pydantic: true
      allOf:
        - $ref: '#/components/schemas/Entity'
        - type: object
          properties:
            quantity: {type: integer, multipleOf: 5}
            pack: {type: integer, multipleOf: 12}
`
	order := parse(t, document)["Order"]
	if order.Parent == nil {
		t.Fatalf("expected Order to derive from Entity")
	}

	reg := registry.New(registry.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if _, err := reg.Define(order); err != nil {
		t.Fatalf("define: %v", err)
	}
	s, err := reg.New(order, map[string]any{"id": 3, "quantity": 7, "pack": 13})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ok, err := s.IsValid()
	if ok || err != nil {
		t.Fatalf("expected reshaped failure, got ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff([]string{"pack", "quantity"}, s.Errors().Paths()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	var verr *serializer.ValidationError
	if !errors.As(s.Validate(), &verr) {
		t.Fatalf("expected serializer ValidationError, got %T", s.Validate())
	}
	if got := bridge.StateOf(s); got != bridge.StatePydanticInvalid {
		t.Fatalf("expected %s, got %s", bridge.StatePydanticInvalid, got)
	}
}

func TestComponentSelection(t *testing.T) {
	models := parse(t, shop, pkgopenapi.WithComponents("Entity"))
	if len(models) != 1 || models["Entity"] == nil {
		t.Fatalf("expected only Entity, got %v", models)
	}

	p := parser.New(pkgopenapi.NewParserOptions(pkgopenapi.WithDocumentValidation(false), pkgopenapi.WithComponents("Status")))
	doc := pkgopenapi.MustNewDocument(pkgopenapi.SourceFromFile("shop.yaml"), []byte(shop))
	if _, err := p.Models(context.Background(), doc); err == nil {
		t.Fatalf("expected error for non-object component")
	}

	p = parser.New(pkgopenapi.NewParserOptions(pkgopenapi.WithDocumentValidation(false), pkgopenapi.WithComponents("Missing")))
	if _, err := p.Models(context.Background(), doc); err == nil {
		t.Fatalf("expected error for missing component")
	}
}

func TestRecursiveReferencesShareModels(t *testing.T) {
	const document = `{
  "openapi": "3.0.0",
  "info": { "title": "Cycle", "version": "1.0.0" },
  "paths": {},
  "components": {
    "schemas": {
      "PublishingHouse": {
        "type": "object",
        "properties": {
          "headquarters": { "$ref": "#/components/schemas/Headquarters" }
        }
      },
      "Headquarters": {
        "type": "object",
        "properties": {
          "publisher": { "$ref": "#/components/schemas/PublishingHouse" },
          "branches": { "type": "array", "items": { "$ref": "#/components/schemas/Headquarters" } }
        }
      }
    }
  }
}`
	models := parse(t, document)
	house, hq := models["PublishingHouse"], models["Headquarters"]

	headquarters, _ := house.Field("headquarters")
	publisher, _ := hq.Field("publisher")
	branches, _ := hq.Field("branches")
	if headquarters.Type.Model != hq || publisher.Type.Model != house {
		t.Fatalf("expected references to resolve to shared models")
	}
	if branches.Type.Elem == nil || branches.Type.Elem.Model != hq {
		t.Fatalf("expected self reference in list items, got %s", branches.Type)
	}
}

func TestModelsErrors(t *testing.T) {
	ctx := context.Background()
	p := parser.New(pkgopenapi.NewParserOptions())

	invalid := `openapi: 3.0.3
info: {title: Broken, version: "1.0"}
paths: {}
components:
  schemas:
    Thing:
      type: object
      properties:
        size: {type: huge}
`
	doc := pkgopenapi.MustNewDocument(pkgopenapi.SourceFromFile("broken.yaml"), []byte(invalid))
	if _, err := p.Models(ctx, doc); err == nil {
		t.Fatalf("expected document validation error")
	}

	badConfig := `openapi: 3.0.3
info: {title: Config, version: "1.0"}
paths: {}
components:
  schemas:
    Thing:
      type: object
      x-drf-config: {validate_everything: true}
      properties:
        size: {type: integer}
`
	doc = pkgopenapi.MustNewDocument(pkgopenapi.SourceFromFile("config.yaml"), []byte(badConfig))
	if _, err := p.Models(ctx, doc); err == nil {
		t.Fatalf("expected config extension error")
	}

	empty := `openapi: 3.0.3
info: {title: Empty, version: "1.0"}
paths: {}
`
	doc = pkgopenapi.MustNewDocument(pkgopenapi.SourceFromFile("empty.yaml"), []byte(empty))
	if _, err := p.Models(ctx, doc); err == nil {
		t.Fatalf("expected error for document without components")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := p.Models(cancelled, doc); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

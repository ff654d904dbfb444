package main

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const document = `openapi: 3.0.3
info: {title: Lint, version: "1.0"}
paths: {}
components:
  schemas:
    Invoice:
      type: object
      x-drf-config:
        validate_pydantic: true
        validation_error: pydantic
      properties:
        total: {type: string, format: decimal, x-max-digits: 10, x-decimal-places: 2}
        customer: {$ref: '#/components/schemas/Customer'}
    Customer:
      type: object
      x-drf-config: {validate_everything: true}
      properties:
        balance: {type: string, format: decimal, x-max-digits: 4, x-decimal-places: 6}
        credit: {type: number, x-max-digits: -1}
        nickname: {type: string, x-drf-config: {validate_pydantic: true}}
        lines:
          type: array
          items:
            type: object
            x-drf-config: {validation_error: loud}
            properties:
              price: {type: string, x-decimal-places: 2}
`

func TestLintDocument(t *testing.T) {
	got, err := lintDocument(context.Background(), "shop.yaml", []byte(document))
	if err != nil {
		t.Fatalf("lint: %v", err)
	}

	var locations []string
	for _, v := range got {
		if v.file != "shop.yaml" {
			t.Fatalf("unexpected file %q", v.file)
		}
		locations = append(locations, v.location)
	}
	sort.Strings(locations)
	want := []string{
		"components > schemas > Customer",
		"components > schemas > Customer > properties.balance",
		"components > schemas > Customer > properties.credit",
		"components > schemas > Customer > properties.lines > items",
		"components > schemas > Customer > properties.lines > items > properties.price",
		"components > schemas > Customer > properties.nickname",
	}
	if diff := cmp.Diff(want, locations); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	messages := map[string]string{}
	for _, v := range got {
		messages[v.location] = v.message
	}
	if msg := messages["components > schemas > Customer > properties.balance"]; !strings.Contains(msg, "exceeds x-max-digits") {
		t.Fatalf("unexpected balance message %q", msg)
	}
	if msg := messages["components > schemas > Customer > properties.lines > items"]; !strings.Contains(msg, "validation_error") {
		t.Fatalf("unexpected items message %q", msg)
	}
	if msg := messages["components > schemas > Customer > properties.nickname"]; !strings.Contains(msg, "only read on object schemas") {
		t.Fatalf("unexpected nickname message %q", msg)
	}
}

func TestLintDocumentRejectsInvalidPayload(t *testing.T) {
	if _, err := lintDocument(context.Background(), "broken.yaml", []byte("openapi: [")); err == nil {
		t.Fatalf("expected load error")
	}
}

package schema_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-serializergen/pkg/config"
	"github.com/goliatone/go-serializergen/pkg/schema"
)

func fieldNames(fields []schema.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

func TestAllFieldsInheritsAndReplacesInPlace(t *testing.T) {
	base := &schema.Model{Name: "Base", Fields: []schema.Field{
		{Name: "id", Type: schema.Integer()},
		{Name: "name", Type: schema.String()},
	}}
	child := &schema.Model{Name: "Child", Parent: base, Fields: []schema.Field{
		{Name: "email", Type: schema.Email()},
		{Name: "name", Type: schema.String(), Nullable: true},
	}}

	fields := child.AllFields()
	if diff := cmp.Diff([]string{"id", "name", "email"}, fieldNames(fields)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if !fields[1].Nullable {
		t.Fatalf("expected redeclared field to replace the inherited one")
	}
}

func TestLineageAndOverlays(t *testing.T) {
	root := &schema.Model{Name: "Root"}
	mid := &schema.Model{Name: "Mid", Parent: root, Config: config.Overlay{ValidatePydantic: config.Bool(true)}}
	leaf := &schema.Model{Name: "Leaf", Parent: mid, Config: config.Overlay{BackpopulateAfterValidation: config.Bool(false)}}

	names := []string{}
	for _, m := range leaf.Lineage() {
		names = append(names, m.Name)
	}
	if diff := cmp.Diff([]string{"Root", "Mid", "Leaf"}, names); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	cfg, err := config.Merge(leaf.Overlays()...)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if !cfg.ValidatePydantic || cfg.BackpopulateAfterValidation {
		t.Fatalf("unexpected merged config %+v", cfg)
	}
}

func TestLineageStopsOnParentCycle(t *testing.T) {
	a := &schema.Model{Name: "A"}
	b := &schema.Model{Name: "B", Parent: a}
	a.Parent = b
	if got := len(b.Lineage()); got != 2 {
		t.Fatalf("expected cycle to be cut, got %d levels", got)
	}
}

func TestFieldRequiredness(t *testing.T) {
	cases := []struct {
		name  string
		field schema.Field
		want  bool
	}{
		{name: "plain", field: schema.Field{Type: schema.String()}, want: true},
		{name: "default", field: schema.Field{Type: schema.String(), HasDefault: true}, want: false},
		{name: "factory", field: schema.Field{Type: schema.String(), DefaultFactory: func() any { return "" }}, want: false},
		{name: "nullable flag", field: schema.Field{Type: schema.String(), Nullable: true}, want: false},
		{name: "optional union", field: schema.Field{Type: schema.Optional(schema.String())}, want: false},
		{name: "omittable", field: schema.Field{Type: schema.String(), Optional: true}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.field.IsRequired(); got != tc.want {
				t.Fatalf("expected required=%v, got %v", tc.want, got)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	person := &schema.Model{Name: "Person"}
	cases := map[string]schema.Type{
		"list[string]":            schema.ListOf(schema.String()),
		"tuple[integer, ...]":     schema.VariadicTuple(schema.Integer()),
		"map[string, Person]":     schema.MapOf(schema.String(), schema.Ref(person)),
		"union[integer, string]":  schema.Union(schema.Integer(), schema.String()),
		"enum[a, b]":              schema.Enum("a", "b"),
		"tuple[integer, boolean]": schema.TupleOf(schema.Integer(), schema.Boolean()),
	}
	for want, typ := range cases {
		if got := typ.String(); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestNonNullFlattensUnions(t *testing.T) {
	typ := schema.Union(schema.Optional(schema.Integer()), schema.Null())
	members := typ.NonNull()
	if len(members) != 1 || members[0].Kind != schema.KindInteger {
		t.Fatalf("unexpected members %v", members)
	}
	if !typ.AdmitsNull() {
		t.Fatalf("expected union to admit null")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	verr := &schema.ValidationError{Model: "Person"}
	verr.Add("value_error", "name must be title case", "name")
	verr.Add("value_error", "inconsistent record")

	msg := verr.Error()
	for _, part := range []string{"2 validation errors for Person", "name\n  name must be title case [type=value_error]", "__root__"} {
		if !strings.Contains(msg, part) {
			t.Fatalf("expected %q in %q", part, msg)
		}
	}
}

package synth_test

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-serializergen/internal/synth"
	"github.com/goliatone/go-serializergen/pkg/config"
	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

var ignoreNested = cmpopts.IgnoreUnexported(synth.FieldSpec{})

func newBuilder(opts synth.Options) *synth.Builder {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return synth.New(opts)
}

func build(t *testing.T, m *schema.Model, opts synth.Options) synth.Result {
	t.Helper()
	result, err := newBuilder(opts).Build(m)
	if err != nil {
		t.Fatalf("build %s: %v", m.Name, err)
	}
	return result
}

func fieldSpec(t *testing.T, result synth.Result, name string) synth.FieldSpec {
	t.Helper()
	spec, ok := result.Spec.Field(name)
	if !ok {
		t.Fatalf("expected field %q in %+v", name, result.Spec.Fields)
	}
	return spec
}

func TestBuildNameAndAddresses(t *testing.T) {
	person := &schema.Model{Name: "Person", Fields: []schema.Field{
		{Name: "name", Type: schema.String()},
		{Name: "addresses", Type: schema.ListOf(schema.String())},
	}}

	result := build(t, person, synth.Options{})

	text := serializer.Options{
		serializer.OptRequired:   true,
		serializer.OptAllowNull:  false,
		serializer.OptAllowBlank: true,
	}
	want := synth.ClassSpec{
		Model: "Person",
		Name:  "PersonSerializer",
		Fields: []synth.FieldSpec{
			{Name: "name", Class: serializer.ClassChar, Options: text},
			{
				Name:  "addresses",
				Class: serializer.ClassList,
				Options: serializer.Options{
					serializer.OptRequired:   true,
					serializer.OptAllowNull:  false,
					serializer.OptAllowEmpty: true,
				},
				Child: &synth.FieldSpec{Class: serializer.ClassChar, Options: text},
			},
		},
	}
	if diff := cmp.Diff(want, result.Spec, ignoreNested); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"name", "addresses"}, result.Class.Fields()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	addresses, _ := result.Class.Field("addresses")
	if !addresses.Required() || addresses.AllowNull() || !addresses.AllowEmpty() {
		t.Fatalf("unexpected list field flags")
	}
	if child := addresses.Child(); child == nil || child.Class() != serializer.ClassChar || !child.Required() || child.AllowNull() {
		t.Fatalf("unexpected list child %+v", child)
	}
}

func TestMapTypeTable(t *testing.T) {
	cases := map[schema.Kind]serializer.FieldClass{
		schema.KindString:   serializer.ClassChar,
		schema.KindInteger:  serializer.ClassInteger,
		schema.KindFloat:    serializer.ClassFloat,
		schema.KindBoolean:  serializer.ClassBoolean,
		schema.KindDateTime: serializer.ClassDateTime,
		schema.KindDate:     serializer.ClassDate,
		schema.KindTime:     serializer.ClassTime,
		schema.KindDuration: serializer.ClassDuration,
		schema.KindDecimal:  serializer.ClassDecimal,
		schema.KindEmail:    serializer.ClassEmail,
		schema.KindURL:      serializer.ClassURL,
		schema.KindUUID:     serializer.ClassUUID,
		schema.KindBytes:    serializer.ClassBytes,
		schema.KindEnum:     serializer.ClassChoice,
		schema.KindJSON:     serializer.ClassJSON,
		schema.KindAny:      serializer.ClassField,
	}
	for _, kind := range synth.ScalarKinds() {
		t.Run(string(kind), func(t *testing.T) {
			typ := schema.Type{Kind: kind}
			if kind == schema.KindEnum {
				typ = schema.Enum("red", "green")
			}
			m := &schema.Model{Name: "Scalar", Fields: []schema.Field{{Name: "value", Type: typ}}}
			result := build(t, m, synth.Options{})
			if got := fieldSpec(t, result, "value").Class; got != cases[kind] {
				t.Fatalf("expected %s, got %s", cases[kind], got)
			}
			if result.Diagnostics.HasWarnings() {
				t.Fatalf("unexpected warnings: %s", result.Diagnostics)
			}
		})
	}
}

func TestUnmappedTypeFallsBackWithWarning(t *testing.T) {
	m := &schema.Model{Name: "Thing", Fields: []schema.Field{{Name: "blob", Type: schema.Opaque("net.IP")}}}
	result := build(t, m, synth.Options{})

	if got := fieldSpec(t, result, "blob").Class; got != serializer.ClassField {
		t.Fatalf("expected generic field, got %s", got)
	}
	warnings := result.Diagnostics.ForField("Thing", "blob")
	if len(warnings) != 1 || warnings[0].Code != synth.CodeUnmappedType || !strings.Contains(warnings[0].Message, "net.IP") {
		t.Fatalf("unexpected warnings %v", warnings)
	}
}

func TestAllowBlankFollowsMinLength(t *testing.T) {
	cases := []struct {
		name string
		min  *int
		want bool
	}{
		{name: "unset", want: true},
		{name: "zero", min: schema.Int(0), want: true},
		{name: "one", min: schema.Int(1), want: false},
		{name: "five", min: schema.Int(5), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &schema.Model{Name: "Text", Fields: []schema.Field{{
				Name:        "value",
				Type:        schema.String(),
				Constraints: schema.Constraints{MinLength: tc.min, MaxLength: schema.Int(20)},
			}}}
			spec := fieldSpec(t, build(t, m, synth.Options{}), "value")
			if got := spec.Options[serializer.OptAllowBlank]; got != tc.want {
				t.Fatalf("expected allow_blank=%v, got %v", tc.want, got)
			}
			if spec.Options[serializer.OptMaxLength] != 20 {
				t.Fatalf("expected max_length carried over, got %v", spec.Options)
			}
		})
	}
}

func TestNumericBoundsAreExact(t *testing.T) {
	m := &schema.Model{Name: "Bounds", Fields: []schema.Field{
		{Name: "inclusive", Type: schema.Integer(), Constraints: schema.Constraints{Ge: schema.Number(1), Le: schema.Number(10)}},
		{Name: "exclusive", Type: schema.Float(), Constraints: schema.Constraints{Gt: schema.Number(0.5), Lt: schema.Number(99.5)}},
		{Name: "label", Type: schema.String(), Constraints: schema.Constraints{Ge: schema.Number(1)}},
	}}
	result := build(t, m, synth.Options{})

	inclusive := fieldSpec(t, result, "inclusive")
	if inclusive.Options[serializer.OptMinValue] != 1.0 || inclusive.Options[serializer.OptMaxValue] != 10.0 {
		t.Fatalf("unexpected inclusive bounds %v", inclusive.Options)
	}
	exclusive := fieldSpec(t, result, "exclusive")
	if exclusive.Options[serializer.OptMinValue] != 0.5 || exclusive.Options[serializer.OptMaxValue] != 99.5 {
		t.Fatalf("unexpected exclusive bounds %v", exclusive.Options)
	}
	label := fieldSpec(t, result, "label")
	if _, ok := label.Options[serializer.OptMinValue]; ok {
		t.Fatalf("expected bound to be ignored on text fields, got %v", label.Options)
	}

	codes := []string{}
	for _, w := range result.Diagnostics.ForField("Bounds", "exclusive") {
		codes = append(codes, w.Code)
	}
	if diff := cmp.Diff([]string{synth.CodeExclusiveBound, synth.CodeExclusiveBound}, codes); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if len(result.Diagnostics.ForField("Bounds", "label")) != 0 {
		t.Fatalf("expected bounds on text to be dropped silently")
	}
}

func TestConflictingBoundsKeepTighter(t *testing.T) {
	m := &schema.Model{Name: "Bounds", Fields: []schema.Field{
		{Name: "lower", Type: schema.Integer(), Constraints: schema.Constraints{Ge: schema.Number(1), Gt: schema.Number(3)}},
		{Name: "upper", Type: schema.Integer(), Constraints: schema.Constraints{Le: schema.Number(5), Lt: schema.Number(9)}},
	}}
	result := build(t, m, synth.Options{})

	if got := fieldSpec(t, result, "lower").Options[serializer.OptMinValue]; got != 3.0 {
		t.Fatalf("expected exclusive lower bound to win, got %v", got)
	}
	if got := fieldSpec(t, result, "upper").Options[serializer.OptMaxValue]; got != 5.0 {
		t.Fatalf("expected inclusive upper bound to win, got %v", got)
	}
	var lower []string
	for _, w := range result.Diagnostics.ForField("Bounds", "lower") {
		lower = append(lower, w.Code)
	}
	if diff := cmp.Diff([]string{synth.CodeConflictingBounds, synth.CodeExclusiveBound}, lower); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecimalDigitsDefaultToPrecision(t *testing.T) {
	m := &schema.Model{Name: "Money", Fields: []schema.Field{
		{Name: "open", Type: schema.Decimal()},
		{Name: "price", Type: schema.Decimal(), Constraints: schema.Constraints{MaxDigits: schema.Int(8), DecimalPlaces: schema.Int(2)}},
		{Name: "rate", Type: schema.Decimal(), Constraints: schema.Constraints{DecimalPlaces: schema.Int(4)}},
	}}

	result := build(t, m, synth.Options{})
	check := func(name string, digits, places int) {
		t.Helper()
		opts := fieldSpec(t, result, name).Options
		if opts[serializer.OptMaxDigits] != digits || opts[serializer.OptDecimalPlaces] != places {
			t.Fatalf("%s: expected %d/%d, got %v", name, digits, places, opts)
		}
	}
	check("open", synth.DefaultDecimalPrecision, synth.DefaultDecimalPrecision)
	check("price", 8, 2)
	check("rate", synth.DefaultDecimalPrecision, 4)

	result = build(t, m, synth.Options{DecimalPrecision: 12})
	check("open", 12, 12)
}

func TestPatternSwitchesToRegexField(t *testing.T) {
	m := &schema.Model{Name: "Codes", Fields: []schema.Field{
		{Name: "sku", Type: schema.String(), Constraints: schema.Constraints{Pattern: `^[A-Z]{3}-\d+$`}},
		{Name: "lookbehind", Type: schema.String(), Constraints: schema.Constraints{Pattern: `(?<=a)b`}},
		{Name: "count", Type: schema.Integer(), Constraints: schema.Constraints{Pattern: `^\d+$`}},
	}}
	result := build(t, m, synth.Options{})

	sku := fieldSpec(t, result, "sku")
	if sku.Class != serializer.ClassRegex || sku.Options[serializer.OptRegex] != `^[A-Z]{3}-\d+$` {
		t.Fatalf("unexpected sku spec %+v", sku)
	}
	lookbehind := fieldSpec(t, result, "lookbehind")
	if lookbehind.Class != serializer.ClassChar {
		t.Fatalf("expected unsupported pattern to be dropped, got %s", lookbehind.Class)
	}
	if got := result.Diagnostics.ForField("Codes", "lookbehind"); len(got) != 1 || got[0].Code != synth.CodeInvalidPattern {
		t.Fatalf("unexpected warnings %v", got)
	}
	if got := result.Diagnostics.ForField("Codes", "count"); len(got) != 1 || got[0].Code != synth.CodeDroppedConstraints {
		t.Fatalf("unexpected warnings %v", got)
	}
}

func TestUnionsResolve(t *testing.T) {
	m := &schema.Model{Name: "Unions", Fields: []schema.Field{
		{Name: "maybe", Type: schema.Optional(schema.Integer())},
		{Name: "either", Type: schema.Union(schema.Integer(), schema.String())},
		{Name: "nothing", Type: schema.Union(schema.Null())},
	}}
	result := build(t, m, synth.Options{})

	maybe := fieldSpec(t, result, "maybe")
	want := serializer.Options{serializer.OptRequired: false, serializer.OptAllowNull: true}
	if maybe.Class != serializer.ClassInteger {
		t.Fatalf("expected optional integer to map to integer, got %s", maybe.Class)
	}
	if diff := cmp.Diff(want, maybe.Options); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	if got := fieldSpec(t, result, "either").Class; got != serializer.ClassField {
		t.Fatalf("expected generic field for true union, got %s", got)
	}
	if got := result.Diagnostics.ForField("Unions", "either"); len(got) != 1 || got[0].Code != synth.CodeAmbiguousUnion {
		t.Fatalf("unexpected warnings %v", got)
	}

	nothing := fieldSpec(t, result, "nothing")
	if nothing.Class != serializer.ClassField || nothing.Options[serializer.OptAllowNull] != true {
		t.Fatalf("unexpected null-only spec %+v", nothing)
	}
}

func TestContainers(t *testing.T) {
	m := &schema.Model{Name: "Bag", Fields: []schema.Field{
		{Name: "tags", Type: schema.SetOf(schema.String()), Constraints: schema.Constraints{MinLength: schema.Int(1), MaxLength: schema.Int(5)}},
		{Name: "point", Type: schema.TupleOf(schema.Float(), schema.Float())},
		{Name: "scores", Type: schema.VariadicTuple(schema.Integer())},
		{Name: "mixed", Type: schema.TupleOf(schema.Integer(), schema.String())},
		{Name: "meta", Type: schema.MapOf(schema.String(), schema.Optional(schema.Integer()))},
		{Name: "lookup", Type: schema.MapOf(schema.Integer(), schema.String())},
		{Name: "anything", Type: schema.Type{Kind: schema.KindList}},
	}}
	result := build(t, m, synth.Options{})

	tags := fieldSpec(t, result, "tags")
	if tags.Class != serializer.ClassList || tags.Options[serializer.OptMinLength] != 1 || tags.Options[serializer.OptMaxLength] != 5 {
		t.Fatalf("unexpected tags spec %+v", tags)
	}
	if tags.Child.Options[serializer.OptAllowBlank] != true {
		t.Fatalf("expected unconstrained child to allow blank, got %v", tags.Child.Options)
	}
	for _, name := range []string{"point", "scores"} {
		spec := fieldSpec(t, result, name)
		if spec.Class != serializer.ClassList || spec.Child == nil {
			t.Fatalf("%s: expected list with child, got %+v", name, spec)
		}
	}
	if got := fieldSpec(t, result, "mixed").Class; got != serializer.ClassField {
		t.Fatalf("expected generic field for mixed tuple, got %s", got)
	}

	meta := fieldSpec(t, result, "meta")
	if meta.Class != serializer.ClassDict || meta.Options[serializer.OptAllowEmpty] != true {
		t.Fatalf("unexpected meta spec %+v", meta)
	}
	if meta.Child.Class != serializer.ClassInteger || meta.Child.Options[serializer.OptAllowNull] != true {
		t.Fatalf("unexpected meta child %+v", meta.Child)
	}
	if got := fieldSpec(t, result, "lookup").Class; got != serializer.ClassField {
		t.Fatalf("expected generic field for non-string keys, got %s", got)
	}
	if got := fieldSpec(t, result, "anything").Child.Class; got != serializer.ClassField {
		t.Fatalf("expected untyped element to map to generic field, got %s", got)
	}

	want := []string{synth.CodeUnsupportedTuple, synth.CodeUnsupportedMapKey}
	if diff := cmp.Diff(want, result.Diagnostics.Codes()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldMetadataOptions(t *testing.T) {
	m := &schema.Model{Name: "Profile", Fields: []schema.Field{
		{Name: "first_name", Type: schema.String(), Description: "<b>Given</b> name &amp; initials"},
		{Name: "nickname", Type: schema.String(), Title: "Alias", HasDefault: true, Default: "anon"},
		{Name: "tags", Type: schema.ListOf(schema.String()), DefaultFactory: func() any { return []any{} }},
		{Name: "bio", Type: schema.String(), Optional: true, Nullable: true},
	}}
	result := build(t, m, synth.Options{Labeler: synth.FieldLabel, Sanitizer: synth.StripMarkup})

	first := fieldSpec(t, result, "first_name")
	if first.Options[serializer.OptHelpText] != "Given name & initials" || first.Options[serializer.OptLabel] != "First name" {
		t.Fatalf("unexpected metadata %v", first.Options)
	}
	nickname := fieldSpec(t, result, "nickname")
	if nickname.Options[serializer.OptLabel] != "Alias" || nickname.Options[serializer.OptDefault] != "anon" || nickname.Options[serializer.OptRequired] != false {
		t.Fatalf("unexpected nickname options %v", nickname.Options)
	}
	tags, _ := result.Class.Field("tags")
	if got, ok := tags.Default(); !ok || len(got.([]any)) != 0 || tags.Required() {
		t.Fatalf("expected default factory to make tags optional, got %v", got)
	}
	bio := fieldSpec(t, result, "bio")
	if bio.Options[serializer.OptRequired] != false || bio.Options[serializer.OptAllowNull] != true {
		t.Fatalf("unexpected bio options %v", bio.Options)
	}
}

func TestEveryOptionIsAccepted(t *testing.T) {
	inner := &schema.Model{Name: "Inner", Fields: []schema.Field{{Name: "id", Type: schema.UUID()}}}
	m := &schema.Model{Name: "Everything", Fields: []schema.Field{
		{Name: "choice", Type: schema.Enum(1, 2), Constraints: schema.Constraints{MinLength: schema.Int(1), Ge: schema.Number(1)}},
		{Name: "when", Type: schema.DateTime(), Constraints: schema.Constraints{MaxDigits: schema.Int(4)}},
		{Name: "inner", Type: schema.Ref(inner), Description: "nested", Constraints: schema.Constraints{MaxLength: schema.Int(3)}},
		{Name: "amounts", Type: schema.MapOf(schema.String(), schema.Decimal()), Constraints: schema.Constraints{MinLength: schema.Int(1)}},
	}}
	result := build(t, m, synth.Options{})

	var check func(path string, spec synth.FieldSpec)
	check = func(path string, spec synth.FieldSpec) {
		for _, option := range spec.Options.Keys() {
			if !serializer.Accepts(spec.Class, option) {
				t.Fatalf("%s: %s does not accept %q", path, spec.Class, option)
			}
		}
		if spec.Child != nil {
			check(path+".child", *spec.Child)
		}
	}
	for _, built := range result.Models {
		for _, spec := range built.Spec.Fields {
			check(built.Model.Name+"."+spec.Name, spec)
		}
	}
	if len(result.Models) != 2 {
		t.Fatalf("expected inner and outer models, got %d", len(result.Models))
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	address := &schema.Model{Name: "Address", Fields: []schema.Field{
		{Name: "street", Type: schema.String(), Constraints: schema.Constraints{MinLength: schema.Int(1)}},
	}}
	m := &schema.Model{Name: "Customer", Fields: []schema.Field{
		{Name: "name", Type: schema.String()},
		{Name: "address", Type: schema.Ref(address)},
		{Name: "balance", Type: schema.Decimal(), Constraints: schema.Constraints{Ge: schema.Number(0)}},
	}}

	first := build(t, m, synth.Options{})
	second := build(t, m, synth.Options{})
	if diff := cmp.Diff(first.Spec, second.Spec, ignoreNested); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if first.Class == second.Class {
		t.Fatalf("expected independent classes per build")
	}
}

func TestSelfReferenceTerminates(t *testing.T) {
	node := &schema.Model{Name: "Node"}
	node.Fields = []schema.Field{
		{Name: "value", Type: schema.Integer()},
		{Name: "children", Type: schema.ListOf(schema.Ref(node)), HasDefault: true, Default: []any{}},
		{Name: "parent", Type: schema.Optional(schema.Ref(node))},
	}

	result := build(t, node, synth.Options{})
	if len(result.Models) != 1 {
		t.Fatalf("expected one synthesized model, got %d", len(result.Models))
	}
	parent, _ := result.Class.Field("parent")
	if parent.Nested() != result.Class {
		t.Fatalf("expected self reference to reuse the class")
	}
	children, _ := result.Class.Field("children")
	if children.Child().Nested() != result.Class {
		t.Fatalf("expected list elements to reuse the class")
	}
	if got := fieldSpec(t, result, "parent").Nested; got != "NodeSerializer" {
		t.Fatalf("expected nested name, got %q", got)
	}

	s := result.Class.New(map[string]any{
		"value":  1,
		"parent": nil,
		"children": []any{
			map[string]any{"value": 2, "parent": nil},
			map[string]any{"value": "x", "parent": nil},
		},
	})
	if ok, err := s.IsValid(); ok || err != nil {
		t.Fatalf("expected invalid nested data, got ok=%v err=%v", ok, err)
	}
	if _, ok := s.Errors()["children.1.value"]; !ok {
		t.Fatalf("expected nested error path, got %v", s.Errors())
	}
}

func TestMutualReferencesAreBuiltOnce(t *testing.T) {
	author := &schema.Model{Name: "Author"}
	book := &schema.Model{Name: "Book"}
	author.Fields = []schema.Field{
		{Name: "name", Type: schema.String()},
		{Name: "books", Type: schema.ListOf(schema.Ref(book))},
	}
	book.Fields = []schema.Field{
		{Name: "title", Type: schema.String()},
		{Name: "author", Type: schema.Optional(schema.Ref(author))},
		{Name: "coauthor", Type: schema.Optional(schema.Ref(author))},
	}

	result := build(t, author, synth.Options{})
	var names []string
	for _, built := range result.Models {
		names = append(names, built.Model.Name)
	}
	if diff := cmp.Diff([]string{"Book", "Author"}, names); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	bookClass := result.Models[0].Class
	first, _ := bookClass.Field("author")
	second, _ := bookClass.Field("coauthor")
	if first.Nested() != result.Class || second.Nested() != result.Class {
		t.Fatalf("expected references to share the author class")
	}
}

func TestNestedModelFieldsRecursively(t *testing.T) {
	city := &schema.Model{Name: "City", Fields: []schema.Field{{Name: "name", Type: schema.String()}}}
	address := &schema.Model{Name: "Address", Fields: []schema.Field{{Name: "city", Type: schema.Ref(city)}}}
	person := &schema.Model{Name: "Person", Fields: []schema.Field{{Name: "home", Type: schema.Ref(address)}}}

	result := build(t, person, synth.Options{})
	home, _ := result.Class.Field("home")
	cityField, ok := home.Nested().Field("city")
	if !ok {
		t.Fatalf("expected address serializer to declare city")
	}
	if diff := cmp.Diff([]string{"name"}, cityField.Nested().Fields()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	s := result.Class.New(map[string]any{"home": map[string]any{"city": map[string]any{}}})
	if err := s.Validate(); err == nil {
		t.Fatalf("expected missing nested name to fail")
	}
	if diff := cmp.Diff([]string{"home.city.name"}, s.Errors().Paths()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestOverridesAreUsedVerbatim(t *testing.T) {
	manual := serializer.MustField(serializer.NewField(serializer.ClassChar, serializer.Options{serializer.OptMaxLength: 3}))
	m := &schema.Model{Name: "Country", Fields: []schema.Field{
		{Name: "code", Type: schema.Opaque("iso.Code"), Overrides: []any{manual}},
		{Name: "name", Type: schema.String()},
	}}
	result := build(t, m, synth.Options{})

	got, _ := result.Class.Field("code")
	if got != manual {
		t.Fatalf("expected manual field to be declared as-is")
	}
	if diff := cmp.Diff([]string{"code"}, result.Spec.Overrides); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if _, ok := result.Spec.Field("code"); ok {
		t.Fatalf("overridden field must not be synthesized")
	}
	if result.Diagnostics.HasWarnings() {
		t.Fatalf("overridden fields are not introspected, got %s", result.Diagnostics)
	}
}

func TestMalformedOverridesFailAtDefinition(t *testing.T) {
	a := serializer.MustField(serializer.NewField(serializer.ClassChar, nil))
	b := serializer.MustField(serializer.NewField(serializer.ClassEmail, nil))
	m := &schema.Model{Name: "Broken", Fields: []schema.Field{
		{Name: "twice", Type: schema.String(), Overrides: []any{a, b}},
		{Name: "wrong", Type: schema.String(), Overrides: []any{"CharField"}},
		{Name: "fine", Type: schema.String()},
	}}

	_, err := newBuilder(synth.Options{}).Build(m)
	var modelErr *synth.ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("expected ModelError, got %v", err)
	}
	var fields []string
	for _, f := range modelErr.Fields {
		fields = append(fields, f.Field)
	}
	if diff := cmp.Diff([]string{"twice", "wrong"}, fields); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	msg := err.Error()
	for _, part := range []string{"error when converting model: Broken", "\n  twice\n    field has multiple", "got string"} {
		if !strings.Contains(msg, part) {
			t.Fatalf("expected %q in %q", part, msg)
		}
	}
}

func TestNestedOverrideErrorPropagates(t *testing.T) {
	inner := &schema.Model{Name: "Inner", Fields: []schema.Field{{Name: "x", Overrides: []any{42}}}}
	outer := &schema.Model{Name: "Outer", Fields: []schema.Field{{Name: "inner", Type: schema.Ref(inner)}}}

	_, err := newBuilder(synth.Options{}).Build(outer)
	var modelErr *synth.ModelError
	if !errors.As(err, &modelErr) || modelErr.Model != "Inner" {
		t.Fatalf("expected Inner conversion error, got %v", err)
	}
}

func TestCustomSerializerIsUsedAsIs(t *testing.T) {
	base := serializer.NewClass("ModelSerializer", nil)
	custom := serializer.NewClass("HandWritten", base)
	custom.MustDeclare("code", serializer.MustField(serializer.NewField(serializer.ClassChar, nil)))

	parent := &schema.Model{Name: "Parent", Serializer: custom, Fields: []schema.Field{
		{Name: "code", Type: schema.String()},
		{Name: "ignored", Type: schema.Opaque("x")},
	}}
	result := build(t, parent, synth.Options{Base: base})
	if result.Class != custom || !result.Spec.Custom || len(result.Spec.Fields) != 0 {
		t.Fatalf("unexpected custom result %+v", result.Spec)
	}
	if result.Diagnostics.HasWarnings() {
		t.Fatalf("custom serializers skip introspection, got %s", result.Diagnostics)
	}

	derived := &schema.Model{Name: "Quiet", Parent: parent}
	result = build(t, derived, synth.Options{Base: base})
	if !result.Spec.Derived || result.Class.Base() != custom || result.Spec.Base != "HandWritten" {
		t.Fatalf("expected class derived from the custom serializer, got %+v", result.Spec)
	}
	if diff := cmp.Diff([]string{"code"}, result.Class.Fields()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	extended := &schema.Model{Name: "Loud", Parent: parent, Fields: []schema.Field{{Name: "extra", Type: schema.Integer()}}}
	result = build(t, extended, synth.Options{Base: base})
	if result.Spec.Custom || result.Spec.Derived || result.Class.Base() != base {
		t.Fatalf("expected re-synthesis for subclass with fields, got %+v", result.Spec)
	}
	if diff := cmp.Diff([]string{"code", "ignored", "extra"}, result.Class.Fields()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCustomSerializerContractWarning(t *testing.T) {
	base := serializer.NewClass("ModelSerializer", nil)
	foreign := serializer.NewClass("Foreign", nil)
	m := &schema.Model{
		Name:       "Legacy",
		Serializer: foreign,
		Config:     config.Overlay{ValidatePydantic: config.Bool(true)},
	}

	hooked := 0
	result := build(t, m, synth.Options{
		Base: base,
		ClassHook: func(*serializer.Class, *schema.Model, config.Config) error {
			hooked++
			return nil
		},
	})
	if hooked != 0 {
		t.Fatalf("expected hook to be skipped for a foreign serializer")
	}
	if diff := cmp.Diff([]string{synth.CodeCustomContract}, result.Diagnostics.Codes()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestClassHookReceivesEachModelConfig(t *testing.T) {
	inner := &schema.Model{Name: "Inner", Fields: []schema.Field{{Name: "x", Type: schema.Integer()}}}
	root := &schema.Model{Name: "Root", Config: config.Overlay{ValidatePydantic: config.Bool(true)}}
	leaf := &schema.Model{
		Name:   "Leaf",
		Parent: root,
		Config: config.Overlay{BackpopulateAfterValidation: config.Bool(false)},
		Fields: []schema.Field{{Name: "inner", Type: schema.Ref(inner)}},
	}

	seen := map[string]config.Config{}
	result := build(t, leaf, synth.Options{
		ClassHook: func(class *serializer.Class, m *schema.Model, cfg config.Config) error {
			if _, dup := seen[m.Name]; dup {
				t.Fatalf("hook ran twice for %s", m.Name)
			}
			seen[m.Name] = cfg
			return nil
		},
	})

	want := map[string]config.Config{
		"Inner": config.Default(),
		"Leaf":  {ValidatePydantic: true, BackpopulateAfterValidation: false, ValidationError: config.ModeDRF},
	}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want["Leaf"], result.Config); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestClassHookErrorAbortsBuild(t *testing.T) {
	sentinel := errors.New("no factory")
	m := &schema.Model{Name: "Strict", Fields: []schema.Field{{Name: "x", Type: schema.Integer()}}}
	_, err := newBuilder(synth.Options{
		ClassHook: func(*serializer.Class, *schema.Model, config.Config) error { return sentinel },
	}).Build(m)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected hook error, got %v", err)
	}
}

type staticCache map[*schema.Model]*serializer.Class

func (c staticCache) Lookup(m *schema.Model) (*serializer.Class, bool) {
	class, ok := c[m]
	return class, ok
}

func TestCacheIsConsultedForNestedModels(t *testing.T) {
	shared := &schema.Model{Name: "Shared", Fields: []schema.Field{{Name: "x", Type: schema.Integer()}}}
	cached := serializer.NewClass("SharedSerializer", nil)
	m := &schema.Model{Name: "User", Fields: []schema.Field{{Name: "shared", Type: schema.Ref(shared)}}}

	result := build(t, m, synth.Options{Cache: staticCache{shared: cached}})
	field, _ := result.Class.Field("shared")
	if field.Nested() != cached {
		t.Fatalf("expected cached class to be reused")
	}
	if len(result.Models) != 1 {
		t.Fatalf("expected only the root to be synthesized, got %d", len(result.Models))
	}
}

func TestInvalidConfigIsFatal(t *testing.T) {
	bad := config.Mode("xml")
	m := &schema.Model{Name: "Odd", Config: config.Overlay{ValidationError: &bad}}
	_, err := newBuilder(synth.Options{}).Build(m)
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestBuildNilModel(t *testing.T) {
	if _, err := newBuilder(synth.Options{}).Build(nil); !errors.Is(err, synth.ErrNilModel) {
		t.Fatalf("expected ErrNilModel, got %v", err)
	}
}

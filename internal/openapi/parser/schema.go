package parser

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-serializergen/pkg/config"
	"github.com/goliatone/go-serializergen/pkg/schema"
)

const (
	configExtensionKey        = "x-drf-config"
	maxDigitsExtensionKey     = "x-max-digits"
	decimalPlacesExtensionKey = "x-decimal-places"
)

// converter maps OpenAPI schemas to models. Models are keyed by schema
// identity so a component reached through several references, or through a
// cycle, maps to one model.
type converter struct {
	models map[*openapi3.Schema]*schema.Model
	byName map[string]*schema.Model
	err    error
}

func newConverter() *converter {
	return &converter{
		models: make(map[*openapi3.Schema]*schema.Model),
		byName: make(map[string]*schema.Model),
	}
}

func (c *converter) model(name string, s *openapi3.Schema) *schema.Model {
	if m, ok := c.models[s]; ok {
		return m
	}
	m := &schema.Model{Name: c.uniqueName(name), Description: s.Description}
	c.models[s] = m
	c.byName[m.Name] = m

	var props properties
	c.collect(m, s, &props)
	for _, name := range props.order {
		m.Fields = append(m.Fields, c.field(m, name, props.schemas[name], props.required[name]))
	}

	if raw, ok := s.Extensions[configExtensionKey]; ok {
		values, ok := raw.(map[string]any)
		if !ok {
			c.fail(fmt.Errorf("openapi parser: %s: %s must be an object", m.Name, configExtensionKey))
		} else if overlay, err := config.ParseOverlay(values); err != nil {
			c.fail(fmt.Errorf("openapi parser: %s: %s: %w", m.Name, configExtensionKey, err))
		} else {
			m.Config = overlay
		}
	}
	m.Factory = &factory{name: m.Name, schema: s}
	return m
}

func (c *converter) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *converter) uniqueName(name string) string {
	if _, taken := c.byName[name]; !taken {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s%d", name, i)
		if _, taken := c.byName[candidate]; !taken {
			return candidate
		}
	}
}

type properties struct {
	order    []string
	schemas  map[string]*openapi3.SchemaRef
	required map[string]bool
}

func (p *properties) add(s *openapi3.Schema) {
	if p.schemas == nil {
		p.schemas = make(map[string]*openapi3.SchemaRef)
		p.required = make(map[string]bool)
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, seen := p.schemas[name]; !seen {
			p.order = append(p.order, name)
		}
		p.schemas[name] = s.Properties[name]
	}
	for _, name := range s.Required {
		p.required[name] = true
	}
}

// collect gathers the properties m declares. The first allOf member that
// references an object component becomes the parent; other allOf members are
// merged into m.
func (c *converter) collect(m *schema.Model, s *openapi3.Schema, props *properties) {
	for _, member := range s.AllOf {
		if member == nil || member.Value == nil {
			continue
		}
		if member.Ref != "" && m.Parent == nil && isComponentModel(member.Value) {
			m.Parent = c.model(refName(member.Ref), member.Value)
			continue
		}
		c.collect(m, member.Value, props)
	}
	props.add(s)
}

func (c *converter) field(owner *schema.Model, name string, ref *openapi3.SchemaRef, required bool) schema.Field {
	f := schema.Field{
		Name:     name,
		Type:     c.typeOf(owner.Name+pascal(name), ref),
		Optional: !required,
	}
	if ref == nil || ref.Value == nil || ref.Ref != "" {
		return f
	}
	s := ref.Value
	f.Description = s.Description
	f.Title = s.Title
	if s.Default != nil {
		f.Default = jsonDefault(f.Type, s.Default)
		f.HasDefault = true
	}
	f.Constraints = constraints(s)
	return f
}

func (c *converter) typeOf(anon string, ref *openapi3.SchemaRef) schema.Type {
	if ref == nil || ref.Value == nil {
		return schema.Any()
	}
	t := c.baseType(anon, ref)
	if ref.Value.Nullable && !t.AdmitsNull() {
		t = schema.Optional(t)
	}
	return t
}

func (c *converter) baseType(anon string, ref *openapi3.SchemaRef) schema.Type {
	s := ref.Value
	switch {
	case len(s.OneOf) > 0:
		return c.union(anon, s.OneOf)
	case len(s.AnyOf) > 0:
		return c.union(anon, s.AnyOf)
	case len(s.Enum) > 0:
		return enumType(s)
	case len(s.AllOf) == 1 && len(s.Properties) == 0 && s.AllOf[0] != nil && s.AllOf[0].Ref != "":
		return c.typeOf(anon, s.AllOf[0])
	}
	if isComponentModel(s) && (ref.Ref != "" || isObject(s)) {
		name := anon
		if ref.Ref != "" {
			name = refName(ref.Ref)
		}
		return schema.Ref(c.model(name, s))
	}

	types := typesOf(s)
	switch len(types) {
	case 0:
		return schema.Any()
	case 1:
		return c.scalar(anon, s, types[0])
	}
	members := make([]schema.Type, 0, len(types))
	for _, typ := range types {
		members = append(members, c.scalar(anon, s, typ))
	}
	return schema.Union(members...)
}

func (c *converter) union(anon string, refs openapi3.SchemaRefs) schema.Type {
	members := make([]schema.Type, 0, len(refs))
	for i, ref := range refs {
		members = append(members, c.typeOf(fmt.Sprintf("%sOption%d", anon, i+1), ref))
	}
	return schema.Union(members...)
}

func (c *converter) scalar(anon string, s *openapi3.Schema, typ string) schema.Type {
	switch typ {
	case openapi3.TypeString:
		return stringType(s.Format)
	case openapi3.TypeInteger:
		return schema.Integer()
	case openapi3.TypeNumber:
		if s.Format == "decimal" {
			return schema.Decimal()
		}
		return schema.Float()
	case openapi3.TypeBoolean:
		return schema.Boolean()
	case openapi3.TypeArray:
		elem := c.typeOf(anon+"Item", s.Items)
		if s.UniqueItems {
			return schema.SetOf(elem)
		}
		return schema.ListOf(elem)
	case openapi3.TypeObject:
		if s.AdditionalProperties.Schema != nil {
			return schema.MapOf(schema.String(), c.typeOf(anon+"Value", s.AdditionalProperties.Schema))
		}
		return schema.MapOf(schema.String(), schema.Any())
	case "null":
		return schema.Null()
	}
	return schema.Opaque(typ)
}

func stringType(format string) schema.Type {
	switch format {
	case "date-time":
		return schema.DateTime()
	case "date":
		return schema.Date()
	case "time":
		return schema.Time()
	case "duration":
		return schema.Duration()
	case "email":
		return schema.Email()
	case "uri", "url":
		return schema.URL()
	case "uuid":
		return schema.UUID()
	case "byte", "binary":
		return schema.Bytes()
	case "decimal":
		return schema.Decimal()
	}
	return schema.String()
}

func enumType(s *openapi3.Schema) schema.Type {
	integer := hasType(s, openapi3.TypeInteger)
	values := make([]any, 0, len(s.Enum))
	nullable := false
	for _, v := range s.Enum {
		if v == nil {
			nullable = true
			continue
		}
		if n, ok := v.(float64); ok && integer && n == math.Trunc(n) {
			v = int64(n)
		}
		values = append(values, v)
	}
	t := schema.Enum(values...)
	if nullable {
		t = schema.Optional(t)
	}
	return t
}

func constraints(s *openapi3.Schema) schema.Constraints {
	var c schema.Constraints
	if hasType(s, openapi3.TypeArray) {
		if s.MinItems > 0 {
			c.MinLength = schema.Int(int(s.MinItems))
		}
		if s.MaxItems != nil {
			c.MaxLength = schema.Int(int(*s.MaxItems))
		}
	} else {
		if s.MinLength > 0 {
			c.MinLength = schema.Int(int(s.MinLength))
		}
		if s.MaxLength != nil {
			c.MaxLength = schema.Int(int(*s.MaxLength))
		}
	}
	if s.Min != nil {
		if s.ExclusiveMin {
			c.Gt = schema.Number(*s.Min)
		} else {
			c.Ge = schema.Number(*s.Min)
		}
	}
	if s.Max != nil {
		if s.ExclusiveMax {
			c.Lt = schema.Number(*s.Max)
		} else {
			c.Le = schema.Number(*s.Max)
		}
	}
	c.Pattern = s.Pattern
	if n, ok := intExtension(s.Extensions, maxDigitsExtensionKey); ok {
		c.MaxDigits = schema.Int(n)
	}
	if n, ok := intExtension(s.Extensions, decimalPlacesExtensionKey); ok {
		c.DecimalPlaces = schema.Int(n)
	}
	return c
}

func intExtension(ext map[string]any, key string) (int, bool) {
	switch v := ext[key].(type) {
	case float64:
		return int(v), v == math.Trunc(v)
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

func jsonDefault(t schema.Type, v any) any {
	if n, ok := v.(float64); ok && t.Kind == schema.KindInteger && n == math.Trunc(n) {
		return int64(n)
	}
	return v
}

// isObject reports whether s declares properties, directly or through allOf.
func isObject(s *openapi3.Schema) bool {
	if s == nil {
		return false
	}
	if len(s.Properties) > 0 {
		return true
	}
	for _, member := range s.AllOf {
		if member != nil && isObject(member.Value) {
			return true
		}
	}
	return false
}

// isComponentModel reports whether s becomes a model: an object with
// properties, or a closed object schema without additionalProperties.
func isComponentModel(s *openapi3.Schema) bool {
	if isObject(s) {
		return true
	}
	if s == nil || !hasType(s, openapi3.TypeObject) || s.AdditionalProperties.Schema != nil {
		return false
	}
	return s.AdditionalProperties.Has == nil || !*s.AdditionalProperties.Has
}

func typesOf(s *openapi3.Schema) []string {
	if s == nil || s.Type == nil {
		return nil
	}
	return s.Type.Slice()
}

func hasType(s *openapi3.Schema, typ string) bool {
	for _, t := range typesOf(s) {
		if t == typ {
			return true
		}
	}
	return false
}

// refName returns the last segment of a $ref, e.g. "Pet" for
// "#/components/schemas/Pet".
func refName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// pascal turns a property name such as "home_address" into "HomeAddress".
func pascal(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

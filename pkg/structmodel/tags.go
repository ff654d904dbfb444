package structmodel

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-serializergen/pkg/schema"
)

var (
	timeType       = reflect.TypeOf(time.Time{})
	durationType   = reflect.TypeOf(time.Duration(0))
	uuidType       = reflect.TypeOf(uuid.UUID{})
	decimalType    = reflect.TypeOf(decimal.Decimal{})
	rawMessageType = reflect.TypeOf(json.RawMessage(nil))
	bytesType      = reflect.TypeOf([]byte(nil))
	enumType       = reflect.TypeOf((*Enum)(nil)).Elem()
)

// isLeaf reports whether a struct type is a value rather than a model.
func isLeaf(rt reflect.Type) bool {
	switch rt {
	case timeType, uuidType, decimalType:
		return true
	}
	return implementsEnum(rt)
}

func jsonName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	return name
}

func jsonOmitEmpty(sf reflect.StructField) bool {
	_, opts, _ := strings.Cut(sf.Tag.Get("json"), ",")
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" || opt == "omitzero" {
			return true
		}
	}
	return false
}

// fieldName returns the serialized name of sf, or "" when it is skipped.
func fieldName(sf reflect.StructField) string {
	name := jsonName(sf)
	if name == "-" {
		return ""
	}
	if name == "" {
		return sf.Name
	}
	return name
}

func (s *Source) field(sf reflect.StructField) (schema.Field, bool) {
	name := fieldName(sf)
	if name == "" {
		return schema.Field{}, false
	}
	typ, pointer := s.typeFor(sf.Type)
	field := schema.Field{
		Name:        name,
		Type:        typ,
		Optional:    jsonOmitEmpty(sf),
		Description: sf.Tag.Get("description"),
		Title:       sf.Tag.Get("title"),
	}

	applyFormat(&field, sf.Tag.Get("format"))
	required := applyValidateTag(&field, sf.Tag.Get("validate"))
	field.Nullable = pointer && !required

	if pattern := sf.Tag.Get("pattern"); pattern != "" {
		field.Constraints.Pattern = pattern
	}
	if digits := sf.Tag.Get("decimal"); digits != "" {
		applyDigits(&field, digits)
	}
	if raw, ok := sf.Tag.Lookup("default"); ok {
		field.Default = parseDefault(field.Type, raw)
		field.HasDefault = true
	}
	return field, true
}

// typeFor maps a Go type to a model type. pointer reports whether the value
// was reached through a pointer.
func (s *Source) typeFor(rt reflect.Type) (schema.Type, bool) {
	pointer := false
	for rt.Kind() == reflect.Pointer {
		pointer = true
		rt = rt.Elem()
	}

	if implementsEnum(rt) {
		return schema.Enum(enumValues(rt)...), pointer
	}
	switch rt {
	case timeType:
		return schema.DateTime(), pointer
	case durationType:
		return schema.Duration(), pointer
	case uuidType:
		return schema.UUID(), pointer
	case decimalType:
		return schema.Decimal(), pointer
	case rawMessageType:
		return schema.JSON(), pointer
	case bytesType:
		return schema.Bytes(), pointer
	}

	switch rt.Kind() {
	case reflect.String:
		return schema.String(), pointer
	case reflect.Bool:
		return schema.Boolean(), pointer
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return schema.Integer(), pointer
	case reflect.Float32, reflect.Float64:
		return schema.Float(), pointer
	case reflect.Slice, reflect.Array:
		elem, elemPointer := s.typeFor(rt.Elem())
		if elemPointer {
			elem = schema.Optional(elem)
		}
		return schema.ListOf(elem), pointer
	case reflect.Map:
		key, _ := s.typeFor(rt.Key())
		value, valuePointer := s.typeFor(rt.Elem())
		if valuePointer {
			value = schema.Optional(value)
		}
		return schema.MapOf(key, value), pointer
	case reflect.Struct:
		return schema.Ref(s.model(rt)), pointer
	case reflect.Interface:
		if rt.NumMethod() == 0 {
			return schema.Any(), pointer
		}
	}
	return schema.Opaque(rt.String()), pointer
}

func implementsEnum(rt reflect.Type) bool {
	return rt.Implements(enumType) || reflect.PointerTo(rt).Implements(enumType)
}

func enumValues(rt reflect.Type) []any {
	if rt.Implements(enumType) {
		return reflect.Zero(rt).Interface().(Enum).EnumValues()
	}
	return reflect.New(rt).Interface().(Enum).EnumValues()
}

func applyFormat(field *schema.Field, format string) {
	if format == "" || field.Type.Kind != schema.KindString {
		return
	}
	switch strings.ToLower(format) {
	case "date":
		field.Type = schema.Date()
	case "time":
		field.Type = schema.Time()
	case "date-time", "datetime":
		field.Type = schema.DateTime()
	case "email":
		field.Type = schema.Email()
	case "url", "uri":
		field.Type = schema.URL()
	case "uuid":
		field.Type = schema.UUID()
	case "decimal":
		field.Type = schema.Decimal()
	}
}

// applyValidateTag translates validator rules into constraints and reports
// whether the field is marked required.
func applyValidateTag(field *schema.Field, tag string) bool {
	required := false
	if tag == "" || tag == "-" {
		return false
	}
	for _, rule := range strings.Split(tag, ",") {
		name, param, _ := strings.Cut(strings.TrimSpace(rule), "=")
		if name == "dive" {
			break
		}
		switch name {
		case "required":
			required = true
		case "omitempty":
			field.Optional = true
		case "email":
			retype(field, schema.Email())
		case "url", "uri", "http_url":
			retype(field, schema.URL())
		case "uuid", "uuid4", "uuid_rfc4122":
			retype(field, schema.UUID())
		case "oneof":
			field.Type = oneOf(field.Type, param)
		case "min", "gte":
			setLower(field, param, false)
		case "max", "lte":
			setUpper(field, param, false)
		case "gt":
			setLower(field, param, true)
		case "lt":
			setUpper(field, param, true)
		case "len":
			setLower(field, param, false)
			setUpper(field, param, false)
		}
	}
	return required
}

func retype(field *schema.Field, t schema.Type) {
	if field.Type.Kind == schema.KindString {
		field.Type = t
	}
}

func oneOf(t schema.Type, param string) schema.Type {
	words := strings.Fields(param)
	values := make([]any, 0, len(words))
	for _, word := range words {
		switch t.Kind {
		case schema.KindInteger:
			if n, err := strconv.ParseInt(word, 10, 64); err == nil {
				values = append(values, n)
				continue
			}
		case schema.KindFloat:
			if n, err := strconv.ParseFloat(word, 64); err == nil {
				values = append(values, n)
				continue
			}
		}
		values = append(values, word)
	}
	return schema.Enum(values...)
}

func measuresLength(t schema.Type) bool {
	switch t.Kind {
	case schema.KindString, schema.KindEmail, schema.KindURL, schema.KindList, schema.KindSet, schema.KindMap, schema.KindBytes:
		return true
	}
	return false
}

func measuresValue(t schema.Type) bool {
	switch t.Kind {
	case schema.KindInteger, schema.KindFloat, schema.KindDecimal:
		return true
	}
	return false
}

func setLower(field *schema.Field, param string, exclusive bool) {
	n, err := strconv.ParseFloat(param, 64)
	if err != nil {
		return
	}
	switch {
	case measuresLength(field.Type):
		if exclusive {
			n++
		}
		field.Constraints.MinLength = schema.Int(int(n))
	case measuresValue(field.Type):
		if exclusive {
			field.Constraints.Gt = schema.Number(n)
		} else {
			field.Constraints.Ge = schema.Number(n)
		}
	}
}

func setUpper(field *schema.Field, param string, exclusive bool) {
	n, err := strconv.ParseFloat(param, 64)
	if err != nil {
		return
	}
	switch {
	case measuresLength(field.Type):
		if exclusive {
			n--
		}
		field.Constraints.MaxLength = schema.Int(int(n))
	case measuresValue(field.Type):
		if exclusive {
			field.Constraints.Lt = schema.Number(n)
		} else {
			field.Constraints.Le = schema.Number(n)
		}
	}
}

func applyDigits(field *schema.Field, tag string) {
	digits, places, _ := strings.Cut(tag, ",")
	if n, err := strconv.Atoi(strings.TrimSpace(digits)); err == nil {
		field.Constraints.MaxDigits = schema.Int(n)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(places)); err == nil {
		field.Constraints.DecimalPlaces = schema.Int(n)
	}
}

// parseDefault converts a default tag to a value of the field type. Values
// that do not parse are kept as strings.
func parseDefault(t schema.Type, raw string) any {
	switch t.Kind {
	case schema.KindInteger:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	case schema.KindFloat:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	case schema.KindBoolean:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	case schema.KindDecimal:
		if d, err := decimal.NewFromString(raw); err == nil {
			return d
		}
	case schema.KindDuration:
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
	case schema.KindList, schema.KindSet, schema.KindMap, schema.KindJSON, schema.KindAny:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v
		}
	}
	return raw
}

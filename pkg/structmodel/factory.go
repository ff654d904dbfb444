package structmodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-serializergen/pkg/schema"
)

const (
	kindDecode = "decode_error"
	kindValue  = "value_error"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name := jsonName(sf)
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// factory builds instances of one struct type.
type factory struct {
	source *Source
	typ    reflect.Type
	name   string
}

// New decodes data into a new struct, validates its tags and patterns and
// runs any Normalizer.
func (f *factory) New(data map[string]any) (schema.Instance, error) {
	ptr := reflect.New(f.typ)
	verr := &schema.ValidationError{Model: f.name}

	if err := decode(data, ptr.Interface()); err != nil {
		verr.Add(kindDecode, err.Error())
		return nil, verr
	}

	if err := f.source.validate.Struct(ptr.Interface()); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("structmodel: validate %s: %w", f.name, err)
		}
		for _, fe := range fieldErrs {
			verr.Add(fe.Tag(), fieldMessage(fe), namespacePath(f.typ, fe.StructNamespace())...)
		}
	}
	checkPatterns(ptr.Elem(), nil, verr)
	if verr.HasIssues() {
		return nil, verr
	}

	if err := normalize(ptr.Elem(), nil, verr); err != nil {
		return nil, err
	}
	if verr.HasIssues() {
		return nil, verr
	}
	return &instance{value: ptr}, nil
}

func decode(data map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			validatedValueHook(),
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(data)
}

// validatedValueHook converts the typed values a serializer produces into
// the representation of the target field.
func validatedValueHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to == rawMessageType {
			if raw, ok := data.(json.RawMessage); ok {
				return raw, nil
			}
			return json.Marshal(data)
		}
		switch to.Kind() {
		case reflect.String:
			switch v := data.(type) {
			case time.Time:
				return formatTime(v), nil
			case time.Duration:
				return v.String(), nil
			case fmt.Stringer:
				return v.String(), nil
			}
		case reflect.Float32, reflect.Float64:
			if d, ok := data.(decimal.Decimal); ok {
				return d.InexactFloat64(), nil
			}
		}
		return data, nil
	}
}

func formatTime(t time.Time) string {
	switch {
	case t.Year() == 0 && t.Month() == time.January && t.Day() == 1:
		return t.Format(time.TimeOnly)
	case t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0:
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}

// namespacePath maps a validator struct namespace such as
// "Order.Lines[0].Quantity" to the json path of the field. Segments for
// embedded structs are dropped.
func namespacePath(root reflect.Type, namespace string) []string {
	segments := strings.Split(namespace, ".")
	if len(segments) > 0 {
		segments = segments[1:]
	}
	var path []string
	current := root
	for _, segment := range segments {
		name, indexes := splitIndexes(segment)
		current = deref(current)
		if current.Kind() != reflect.Struct {
			path = append(path, name)
			path = append(path, indexes...)
			continue
		}
		sf, ok := current.FieldByName(name)
		if !ok {
			path = append(path, name)
			path = append(path, indexes...)
			continue
		}
		current = sf.Type
		if isEmbeddedModel(sf) {
			continue
		}
		path = append(path, fieldName(sf))
		for _, index := range indexes {
			path = append(path, index)
			current = deref(current)
			if k := current.Kind(); k == reflect.Slice || k == reflect.Array || k == reflect.Map {
				current = current.Elem()
			}
		}
	}
	return path
}

func splitIndexes(segment string) (string, []string) {
	name, rest, ok := strings.Cut(segment, "[")
	if !ok {
		return segment, nil
	}
	var indexes []string
	for _, part := range strings.Split("["+rest, "]") {
		part = strings.TrimPrefix(part, "[")
		if part != "" {
			indexes = append(indexes, part)
		}
	}
	return name, indexes
}

func fieldMessage(fe validator.FieldError) string {
	param := fe.Param()
	numeric := false
	switch fe.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		numeric = true
	}

	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "url", "uri", "http_url":
		return "value is not a valid URL"
	case "uuid", "uuid4", "uuid_rfc4122":
		return "value is not a valid UUID"
	case "oneof":
		return "value is not one of " + strings.Join(strings.Fields(param), ", ")
	case "len":
		if numeric {
			return "value must be equal to " + param
		}
		return fmt.Sprintf("length must be exactly %s", param)
	case "min", "gte":
		if numeric {
			return "value must be greater than or equal to " + param
		}
		return fmt.Sprintf("length must be at least %s", param)
	case "max", "lte":
		if numeric {
			return "value must be less than or equal to " + param
		}
		return fmt.Sprintf("length must be at most %s", param)
	case "gt":
		if numeric {
			return "value must be greater than " + param
		}
		return fmt.Sprintf("length must be more than %s", param)
	case "lt":
		if numeric {
			return "value must be less than " + param
		}
		return fmt.Sprintf("length must be less than %s", param)
	}
	if param != "" {
		return fmt.Sprintf("failed the %s=%s check", fe.Tag(), param)
	}
	return fmt.Sprintf("failed the %s check", fe.Tag())
}

var patterns sync.Map

func compiledPattern(expr string) (*regexp.Regexp, bool) {
	if re, ok := patterns.Load(expr); ok {
		return re.(*regexp.Regexp), re.(*regexp.Regexp) != nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		patterns.Store(expr, (*regexp.Regexp)(nil))
		return nil, false
	}
	patterns.Store(expr, re)
	return re, true
}

// checkPatterns applies pattern tags to string fields, descending into
// nested structs and collections.
func checkPatterns(v reflect.Value, path []string, verr *schema.ValidationError) {
	v = reflect.Indirect(v)
	if !v.IsValid() || v.Kind() != reflect.Struct || isLeaf(v.Type()) {
		return
	}
	for i := 0; i < v.NumField(); i++ {
		sf := v.Type().Field(i)
		fv := v.Field(i)
		if isEmbeddedModel(sf) {
			checkPatterns(fv, path, verr)
			continue
		}
		name := fieldName(sf)
		if !sf.IsExported() || name == "" {
			continue
		}
		at := append(append([]string(nil), path...), name)
		if expr := sf.Tag.Get("pattern"); expr != "" {
			if s := reflect.Indirect(fv); s.IsValid() && s.Kind() == reflect.String {
				if re, ok := compiledPattern(expr); ok && !re.MatchString(s.String()) {
					verr.Add("pattern_mismatch", fmt.Sprintf("string does not match pattern %q", expr), at...)
				}
			}
			continue
		}
		eachChild(fv, at, func(child reflect.Value, childPath []string) {
			checkPatterns(child, childPath, verr)
		})
	}
}

// normalize runs Normalize on nested structs first, then on v itself.
// Issues are recorded on verr; other errors are returned.
func normalize(v reflect.Value, path []string, verr *schema.ValidationError) error {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct || isLeaf(v.Type()) {
		return nil
	}
	if err := normalizeFields(v, path, verr); err != nil {
		return err
	}
	if !v.CanAddr() {
		return nil
	}
	normalizer, ok := v.Addr().Interface().(Normalizer)
	if !ok {
		return nil
	}
	err := normalizer.Normalize()
	if err == nil {
		return nil
	}
	var nested *schema.ValidationError
	if errors.As(err, &nested) {
		for _, issue := range nested.Issues {
			verr.Add(issue.Kind, issue.Message, append(append([]string(nil), path...), issue.Path...)...)
		}
		return nil
	}
	verr.Add(kindValue, err.Error(), path...)
	return nil
}

func normalizeFields(v reflect.Value, path []string, verr *schema.ValidationError) error {
	for i := 0; i < v.NumField(); i++ {
		sf := v.Type().Field(i)
		if !sf.IsExported() {
			continue
		}
		fv := v.Field(i)
		if isEmbeddedModel(sf) {
			if err := normalizeFields(fv, path, verr); err != nil {
				return err
			}
			continue
		}
		name := fieldName(sf)
		if name == "" {
			continue
		}
		var err error
		eachChild(fv, append(append([]string(nil), path...), name), func(child reflect.Value, childPath []string) {
			if err == nil {
				err = normalize(child, childPath, verr)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// eachChild calls fn for fv and, when fv is a collection, for every element
// with its index or key appended to the path.
func eachChild(fv reflect.Value, path []string, fn func(reflect.Value, []string)) {
	switch fv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < fv.Len(); i++ {
			fn(fv.Index(i), append(append([]string(nil), path...), strconv.Itoa(i)))
		}
	case reflect.Map:
		iter := fv.MapRange()
		for iter.Next() {
			value := iter.Value()
			childPath := append(append([]string(nil), path...), fmt.Sprint(iter.Key().Interface()))
			if value.Kind() != reflect.Struct {
				fn(value, childPath)
				continue
			}
			// map values are not addressable
			copied := reflect.New(value.Type()).Elem()
			copied.Set(value)
			fn(copied, childPath)
			fv.SetMapIndex(iter.Key(), copied)
		}
	default:
		fn(fv, path)
	}
}

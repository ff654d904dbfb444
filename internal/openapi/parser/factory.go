package parser

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-serializergen/pkg/schema"
)

// factory validates instances against the originating component schema.
type factory struct {
	name   string
	schema *openapi3.Schema
}

// New checks data against the schema, reporting every failure. The instance
// holds the data unchanged.
func (f *factory) New(data map[string]any) (schema.Instance, error) {
	value := jsonValue(data, f.schema)
	if err := f.schema.VisitJSON(value, openapi3.MultiErrors()); err != nil {
		verr := &schema.ValidationError{Model: f.name}
		collectIssues(err, nil, verr)
		if !verr.HasIssues() {
			verr.Add("schema", err.Error())
		}
		return nil, verr
	}
	out := make(schema.MapInstance, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out, nil
}

// collectIssues flattens validator errors into issues. allOf failures are
// unwrapped so issues keep the path of the failing property. Wrapped errors
// are followed until a schema error or a multi error is reached.
func collectIssues(err error, prefix []string, verr *schema.ValidationError) {
	switch e := err.(type) {
	case nil:
	case openapi3.MultiError:
		for _, inner := range e {
			collectIssues(inner, prefix, verr)
		}
	case *openapi3.SchemaError:
		path := append(append([]string(nil), prefix...), e.JSONPointer()...)
		if e.SchemaField == "allOf" && e.Origin != nil {
			collectIssues(e.Origin, path, verr)
			return
		}
		kind := e.SchemaField
		if kind == "" {
			kind = "schema"
		}
		message := e.Reason
		if message == "" {
			message = e.Error()
		}
		verr.Add(kind, message, path...)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			collectIssues(inner, prefix, verr)
		}
	default:
		collectIssues(errors.Unwrap(err), prefix, verr)
	}
}

// jsonValue converts serializer output into the JSON data model the schema
// validator expects, using s to pick representations for typed values.
func jsonValue(v any, s *openapi3.Schema) any {
	switch x := v.(type) {
	case nil, bool, string, float64:
		return x
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		if n, err := x.Float64(); err == nil {
			return n
		}
		return x.String()
	case decimal.Decimal:
		if hasType(s, openapi3.TypeNumber) {
			return x.InexactFloat64()
		}
		return x.String()
	case time.Time:
		switch format(s) {
		case "date":
			return x.Format(time.DateOnly)
		case "time":
			return x.Format(time.TimeOnly)
		}
		return x.Format(time.RFC3339Nano)
	case time.Duration:
		return x.String()
	case uuid.UUID:
		return x.String()
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = jsonValue(e, propertySchema(s, k))
		}
		return out
	case []any:
		var items *openapi3.Schema
		if s != nil && s.Items != nil {
			items = s.Items.Value
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonValue(e, items)
		}
		return out
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return string(raw)
	}
	return out
}

func format(s *openapi3.Schema) string {
	if s == nil {
		return ""
	}
	return s.Format
}

// propertySchema finds the schema of a property, looking through allOf
// members and additionalProperties.
func propertySchema(s *openapi3.Schema, name string) *openapi3.Schema {
	if s == nil {
		return nil
	}
	if ref, ok := s.Properties[name]; ok && ref != nil {
		return ref.Value
	}
	for _, member := range s.AllOf {
		if member == nil {
			continue
		}
		if found := propertySchema(member.Value, name); found != nil {
			return found
		}
	}
	if s.AdditionalProperties.Schema != nil {
		return s.AdditionalProperties.Schema.Value
	}
	return nil
}

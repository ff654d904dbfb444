package structmodel

import (
	"fmt"
	"reflect"
)

// instance is a validated struct.
type instance struct {
	value reflect.Value
}

// Value returns a pointer to the struct.
func (i *instance) Value() any {
	return i.value.Interface()
}

// Values returns the struct fields keyed by json name. Nested model structs
// become maps; leaf values are returned as they are.
func (i *instance) Values() map[string]any {
	out := make(map[string]any)
	structValues(i.value.Elem(), out)
	return out
}

func structValues(v reflect.Value, out map[string]any) {
	for i := 0; i < v.NumField(); i++ {
		sf := v.Type().Field(i)
		if isEmbeddedModel(sf) {
			structValues(v.Field(i), out)
			continue
		}
		name := fieldName(sf)
		if !sf.IsExported() || name == "" {
			continue
		}
		out[name] = plain(v.Field(i))
	}
}

func plain(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return plain(v.Elem())
	case reflect.Struct:
		if isLeaf(v.Type()) {
			return v.Interface()
		}
		out := make(map[string]any)
		structValues(v, out)
		return out
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type() == bytesType || v.Type() == rawMessageType {
			return v.Interface()
		}
		fallthrough
	case reflect.Array:
		if v.Type() == uuidType {
			return v.Interface()
		}
		out := make([]any, v.Len())
		for i := range out {
			out[i] = plain(v.Index(i))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = plain(iter.Value())
		}
		return out
	}
	return v.Interface()
}

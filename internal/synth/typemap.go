package synth

import (
	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

var classByKind = map[schema.Kind]serializer.FieldClass{
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

// MapType returns the serializer field class and baseline options for a
// scalar type. ok is false when the type has no confident mapping; the
// generic field is returned in that case and the caller reports it.
func MapType(t schema.Type) (class serializer.FieldClass, opts serializer.Options, ok bool) {
	class, ok = classByKind[t.Kind]
	if !ok {
		return serializer.ClassField, serializer.Options{}, false
	}
	opts = serializer.Options{}
	if t.Kind == schema.KindEnum {
		opts[serializer.OptChoices] = append([]any(nil), t.Choices...)
	}
	return class, opts, true
}

// ScalarKinds lists the kinds covered by the fixed mapping table.
func ScalarKinds() []schema.Kind {
	return []schema.Kind{
		schema.KindString, schema.KindInteger, schema.KindFloat, schema.KindBoolean,
		schema.KindDateTime, schema.KindDate, schema.KindTime, schema.KindDuration,
		schema.KindDecimal, schema.KindEmail, schema.KindURL, schema.KindUUID,
		schema.KindBytes, schema.KindEnum, schema.KindJSON, schema.KindAny,
	}
}

package bridge

import (
	"slices"
	"strings"

	"github.com/goliatone/go-serializergen/pkg/schema"
	"github.com/goliatone/go-serializergen/pkg/serializer"
)

// Reshape converts a validation model error into the serializer convention.
// Issue paths become dotted keys; issues without a path, or whose first
// segment is not a field of class, attach to the non-field key.
func Reshape(verr *schema.ValidationError, class *serializer.Class) *serializer.ValidationError {
	detail := serializer.ErrorDetail{}
	if verr == nil {
		return serializer.NewValidationError(detail)
	}
	for _, issue := range verr.Issues {
		message := strings.TrimSpace(issue.Message)
		if message == "" {
			continue
		}
		path := issuePath(issue.Path, class)
		if !slices.Contains(detail[keyFor(path)], message) {
			detail.Add(path, message)
		}
	}
	if detail.Empty() {
		detail.Add("", verr.Error())
	}
	return serializer.NewValidationError(detail)
}

func issuePath(segments []string, class *serializer.Class) string {
	clean := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment != "" {
			clean = append(clean, segment)
		}
	}
	if len(clean) == 0 || isNonFieldKey(clean[0]) {
		return ""
	}
	if class != nil {
		if _, ok := class.Field(clean[0]); !ok {
			return ""
		}
	}
	return strings.Join(clean, ".")
}

func keyFor(path string) string {
	if path == "" {
		return serializer.NonFieldErrorsKey
	}
	return path
}

func isNonFieldKey(key string) bool {
	switch strings.ToLower(key) {
	case "__root__", "__all__", serializer.NonFieldErrorsKey:
		return true
	default:
		return false
	}
}

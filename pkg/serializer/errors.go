package serializer

import (
	"fmt"
	"sort"
	"strings"
)

// NonFieldErrorsKey collects messages not attributable to a single field.
const NonFieldErrorsKey = "non_field_errors"

// ErrorDetail maps dotted field paths to their messages. Messages that do not
// belong to a field live under NonFieldErrorsKey.
type ErrorDetail map[string][]string

// Add appends messages under path. An empty path is a non-field error.
func (d ErrorDetail) Add(path string, messages ...string) {
	if path == "" {
		path = NonFieldErrorsKey
	}
	d[path] = append(d[path], messages...)
}

// Merge copies other into d, prefixing each field path with prefix. Non-field
// messages of other attach to prefix itself.
func (d ErrorDetail) Merge(prefix string, other ErrorDetail) {
	for path, messages := range other {
		target := path
		switch {
		case prefix == "":
		case path == NonFieldErrorsKey:
			target = prefix
		default:
			target = joinPath(prefix, path)
		}
		d[target] = append(d[target], messages...)
	}
}

// Paths returns the error paths, sorted.
func (d ErrorDetail) Paths() []string {
	out := make([]string, 0, len(d))
	for path := range d {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether no messages were recorded.
func (d ErrorDetail) Empty() bool {
	return len(d) == 0
}

// ValidationError is returned when input fails serializer validation.
type ValidationError struct {
	Detail ErrorDetail
}

// NewValidationError wraps detail in a ValidationError.
func NewValidationError(detail ErrorDetail) *ValidationError {
	if detail == nil {
		detail = ErrorDetail{}
	}
	return &ValidationError{Detail: detail}
}

// NonFieldError builds a ValidationError holding a single object-level message.
func NonFieldError(message string) *ValidationError {
	return &ValidationError{Detail: ErrorDetail{NonFieldErrorsKey: {message}}}
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Detail) == 0 {
		return "serializer: invalid data"
	}
	parts := make([]string, 0, len(e.Detail))
	for _, path := range e.Detail.Paths() {
		parts = append(parts, path+": "+strings.Join(e.Detail[path], " "))
	}
	return "serializer: invalid data: " + strings.Join(parts, "; ")
}

// OptionError reports a field constructed with an unknown or ill-typed option.
type OptionError struct {
	Class  FieldClass
	Option string
	Reason string
}

func (e *OptionError) Error() string {
	if e.Option == "" {
		return fmt.Sprintf("serializer: %s: %s", e.Class, e.Reason)
	}
	return fmt.Sprintf("serializer: %s: option %q %s", e.Class, e.Option, e.Reason)
}

const (
	msgRequired       = "This field is required."
	msgNull           = "This field may not be null."
	msgBlank          = "This field may not be blank."
	msgNoData         = "No data provided."
	msgInvalidString  = "Not a valid string."
	msgInvalidInteger = "A valid integer is required."
	msgInvalidNumber  = "A valid number is required."
	msgInvalidBoolean = "Must be a valid boolean."
	msgInvalidEmail   = "Enter a valid email address."
	msgInvalidURL     = "Enter a valid URL."
	msgInvalidUUID    = "Must be a valid UUID."
	msgInvalidPattern = "This value does not match the required pattern."
	msgInvalidBytes   = "Not valid binary data."
	msgEmptyList      = "This list may not be empty."
	msgEmptyDict      = "This dictionary may not be empty."
	msgDateTime       = "Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]."
	msgDate           = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	msgTime           = "Time has wrong format. Use one of these formats instead: hh:mm[:ss[.uuuuuu]]."
	msgDuration       = "Duration has wrong format. Use a duration such as 1h30m or a number of seconds."
)

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}

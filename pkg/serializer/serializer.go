package serializer

import "errors"

// Serializer is one validation request bound to a class. It is not safe for
// concurrent use; each request builds its own instance.
type Serializer struct {
	class       *Class
	data        map[string]any
	ran         bool
	validated   map[string]any
	errors      ErrorDetail
	err         error
	attachments map[string]any
}

// Class returns the class the serializer was created from.
func (s *Serializer) Class() *Class {
	return s.class
}

// InitialData returns the input passed to Class.New.
func (s *Serializer) InitialData() map[string]any {
	return s.data
}

// IsValid runs validation once. Serializer validation failures are recorded
// in Errors and reported as (false, nil). Any other error, such as a native
// validation model error configured to propagate, is returned.
func (s *Serializer) IsValid() (bool, error) {
	s.run()
	if s.err == nil {
		return true, nil
	}
	var verr *ValidationError
	if errors.As(s.err, &verr) {
		return false, nil
	}
	return false, s.err
}

// Validate runs validation once and returns the failure, if any.
func (s *Serializer) Validate() error {
	s.run()
	return s.err
}

// ValidatedData returns the validated mapping, or nil before a successful
// validation.
func (s *Serializer) ValidatedData() map[string]any {
	return s.validated
}

// Errors returns the field-keyed messages of a failed validation.
func (s *Serializer) Errors() ErrorDetail {
	return s.errors
}

// Attach stores request-scoped data for middleware.
func (s *Serializer) Attach(key string, value any) {
	if s.attachments == nil {
		s.attachments = make(map[string]any)
	}
	s.attachments[key] = value
}

// Attachment returns data stored with Attach.
func (s *Serializer) Attachment(key string) (any, bool) {
	v, ok := s.attachments[key]
	return v, ok
}

func (s *Serializer) run() {
	if s.ran {
		return
	}
	s.ran = true

	out, err := s.class.execute(s, s.data)
	if err != nil {
		s.err = err
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.errors = verr.Detail
		}
		return
	}
	s.validated = out
}

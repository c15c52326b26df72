package site

import "fmt"

// MissingRequiredField is raised when a post lacks metadata the page needs.
// It never comes from the transformer, which accepts any scope.
type MissingRequiredField struct {
	Field string
	Err   error // parse failure when the field is present but unusable
}

func (e *MissingRequiredField) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("missing required field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("missing required field %q", e.Field)
}

func (e *MissingRequiredField) Unwrap() error { return e.Err }

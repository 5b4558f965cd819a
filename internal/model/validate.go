package model

import (
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, msg string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: msg})
}

// maxIdentifierLen matches the width of the identifier column.
const maxIdentifierLen = 255

// ValidateVariable checks a Variable draft before it is stored.
// It returns a *ValidationError if any rules fail, or nil if the draft is valid.
// The value is not checked against the type.
func ValidateVariable(v *Variable) error {
	var ve ValidationError

	identifier := strings.TrimSpace(v.Identifier)
	switch {
	case identifier == "":
		ve.add("identifier", "is required")
	case len(v.Identifier) > maxIdentifierLen:
		ve.add("identifier", "must be at most 255 characters")
	}

	if v.Type == "" {
		ve.add("type", "is required")
	} else if !v.Type.IsValid() {
		ve.add("type", "unknown variable type "+string(v.Type))
	}

	if strings.TrimSpace(v.Value) == "" {
		ve.add("value", "is required")
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

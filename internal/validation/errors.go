// Package validation checks applicant records, both one slot at a time and
// across the full set of education levels.
package validation

import (
	"fmt"
	"strings"

	"github.com/jonathan/careers-portal/internal/types"
)

// Sections an Error can belong to.
const (
	SectionEducation  = "education"
	SectionExperience = "experience"
	SectionDependents = "dependents"
	SectionReferences = "references"
)

// Error is a blocking cross-record violation. Message is shown to the applicant as is.
// Level is only meaningful for the education section.
type Error struct {
	Section string
	Level   types.EducationLevel
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// FieldError is a single per-slot field violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors collects every field violation found in one slot's record.
type FieldErrors struct {
	Slot   string       `json:"slot"`
	Errors []FieldError `json:"errors"`
}

func (e *FieldErrors) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("invalid %s:", e.Slot))
	for i, fe := range e.Errors {
		if i > 0 {
			sb.WriteString(";")
		}
		sb.WriteString(fmt.Sprintf(" %s %s", fe.Field, fe.Message))
	}
	return sb.String()
}

// Has reports whether the field has at least one violation.
func (e *FieldErrors) Has(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

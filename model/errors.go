package model

import (
	"fmt"
	"strings"
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports every field of a candidate that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

func (e *ValidationError) Error() string {
	var missing, invalid []string
	for _, f := range e.Fields {
		if f.Reason == ReasonMissing {
			missing = append(missing, f.Field)
		} else {
			invalid = append(invalid, fmt.Sprintf("%s %s", f.Field, f.Reason))
		}
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(invalid, ", "))
	}
	if len(parts) == 0 {
		return "validation failed"
	}
	return strings.Join(parts, "; ")
}

// ErrOrNil returns e only if it holds at least one field error.
func (e *ValidationError) ErrOrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

const (
	ReasonMissing = "is required"
	ReasonType    = "has the wrong type"
)

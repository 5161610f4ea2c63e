package model

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Error taxonomy of the ledger and its synchronisation
var (
	ErrValidation      = goerr.New("validation failed")
	ErrInvalidTier     = goerr.New("invalid tier")
	ErrPersistence     = goerr.New("local persistence failed")
	ErrSyncConflict    = goerr.New("remote mirror changed concurrently")
	ErrSyncUnavailable = goerr.New("remote mirror unavailable")
	ErrNotFound        = goerr.New("not found")
	ErrUnsupported     = goerr.New("not supported by the configured backend")
)

// Context keys for error values
const (
	FieldKey    = "field"
	AxisKey     = "axis"
	LabelKey    = "label"
	PathKey     = "path"
	ExpectedKey = "expected_version"
	ActualKey   = "actual_version"
)

// FieldError describes one violated field of an input record
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// ValidationError collects every field violation of a single input so that
// all of them can be reported at once.
type ValidationError struct {
	Fields []FieldError
}

// Add records a violation
func (e *ValidationError) Add(field, value, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Value: value, Message: message})
}

// Has reports whether the given field is among the violations
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// OrNil returns nil when no violation was recorded
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrValidation) hold for any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

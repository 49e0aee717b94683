// Package types provides type definitions for the records produced and consumed by a scrape run.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CodeType identifies one of the four supported site/workflow variants.
type CodeType string

// Supported code types
const (
	CodeTypeHRCockpit           CodeType = "HR_COCKPIT"
	CodeTypeHRCockpitSoll       CodeType = "HR_COCKPIT_SOLL"
	CodeTypeProfilingValues     CodeType = "PROFILING_VALUES"
	CodeTypeProfilingValuesSoll CodeType = "PROFILING_VALUES_SOLL"
)

// AllCodeTypes lists every supported code type in a stable order.
func AllCodeTypes() []CodeType {
	return []CodeType{
		CodeTypeHRCockpit,
		CodeTypeHRCockpitSoll,
		CodeTypeProfilingValues,
		CodeTypeProfilingValuesSoll,
	}
}

// RunRequest holds the inbound invocation parameters of a run.
type RunRequest struct {
	Code     string   `json:"code" validate:"required,min=1"`
	CodeType CodeType `json:"code_type" validate:"required,oneof=HR_COCKPIT HR_COCKPIT_SOLL PROFILING_VALUES PROFILING_VALUES_SOLL"`
	RunID    string   `json:"run_id,omitempty"`
}

// InputValidationError indicates invalid invocation parameters. No browser is opened when it occurs.
type InputValidationError struct {
	Field   string
	Message string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("input validation error: %s - %s", e.Field, e.Message)
}

// Validate validates the RunRequest using the validator.
// Leading and trailing whitespace in Code is not significant and is trimmed first.
func (r *RunRequest) Validate() error {
	r.Code = strings.TrimSpace(r.Code)

	validate := validator.New()
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required", "min":
			return &InputValidationError{Field: fe.Field(), Message: "is required"}
		case "oneof":
			return &InputValidationError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("%q is not one of %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", ")),
			}
		}
		return &InputValidationError{Field: fe.Field(), Message: fe.Error()}
	}
	return &InputValidationError{Field: "request", Message: err.Error()}
}

// Package schemas checks result records against the embedded JSON Schema before they are
// persisted.
package schemas

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed result.schema.json
var resultSchema string

const resultSchemaName = "result.schema.json"

var (
	compiledResult     *gojsonschema.Schema
	compiledResultErr  error
	compiledResultOnce sync.Once
)

// ValidationError lists every schema violation found in one record.
type ValidationError struct {
	Schema string
	Errors []FieldError
}

// FieldError is a single violation. Field is a dotted path such as "reports.0.url".
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	parts := make([]string, 0, len(ve.Errors))
	for _, fe := range ve.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return fmt.Sprintf("record does not match %s: %s", ve.Schema, strings.Join(parts, "; "))
}

// Fields returns the paths of the violating fields in report order.
func (ve *ValidationError) Fields() []string {
	fields := make([]string, len(ve.Errors))
	for i, fe := range ve.Errors {
		fields[i] = fe.Field
	}
	return fields
}

// SchemaLoadError means the embedded schema itself could not be compiled.
type SchemaLoadError struct {
	Schema string
	Cause  error
}

func (e *SchemaLoadError) Error() string {
	return fmt.Sprintf("failed to compile %s: %v", e.Schema, e.Cause)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// ResultSchema returns the embedded result record schema.
func ResultSchema() string {
	return resultSchema
}

func resultValidator() (*gojsonschema.Schema, error) {
	compiledResultOnce.Do(func() {
		compiledResult, compiledResultErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(resultSchema))
	})
	if compiledResultErr != nil {
		return nil, &SchemaLoadError{Schema: resultSchemaName, Cause: compiledResultErr}
	}
	return compiledResult, nil
}

// ValidateResult marshals rec and checks it against the result record schema.
// It returns a *ValidationError listing every violation, or nil.
func ValidateResult(rec any) error {
	schema, err := resultValidator()
	if err != nil {
		return err
	}

	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to validate record: %w", err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Schema: resultSchemaName}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" || field == "(root)" {
			field = "record"
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return verr
}

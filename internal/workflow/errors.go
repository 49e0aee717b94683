package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/assessment-scraper/internal/browser"
	"github.com/jonathan/assessment-scraper/internal/retry"
	"github.com/jonathan/assessment-scraper/internal/types"
	"github.com/jonathan/assessment-scraper/internal/variants"
)

// Error kinds stored in error records
const (
	KindInputValidation    = "input_validation"
	KindMissingCredentials = "missing_credentials"
	KindNavigationTimeout  = "navigation_timeout"
	KindElementNotFound    = "element_not_found"
	KindCodeNotFound       = "code_not_found"
	KindDownloadTimeout    = "download_timeout"
	KindRetryExhausted     = "retry_exhausted"
	KindUnexpected         = "unexpected"
)

// MissingCredentialsError indicates unset or empty credential variables.
type MissingCredentialsError struct {
	CodeType types.CodeType
	Vars     []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("missing credentials for %s: %s not set", e.CodeType, strings.Join(e.Vars, ", "))
}

// NavigationTimeoutError indicates a menu link or page element expected during
// navigation never became visible.
type NavigationTimeoutError struct {
	Target string
	Cause  error
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("navigation timeout: %s did not appear: %v", e.Target, e.Cause)
}

func (e *NavigationTimeoutError) Unwrap() error {
	return e.Cause
}

// CodeNotFoundError indicates the listing has no row for the requested code.
type CodeNotFoundError struct {
	Code     string
	CodeType types.CodeType
}

func (e *CodeNotFoundError) Error() string {
	return fmt.Sprintf("code %q not found in %s listing", e.Code, e.CodeType)
}

// PanicError carries a panic recovered during a run.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("unexpected panic: %v", e.Value)
}

// Kind classifies err into the error-record taxonomy.
func Kind(err error) string {
	var (
		inputErr    *types.InputValidationError
		variantErr  *variants.UnknownVariantError
		credsErr    *MissingCredentialsError
		navErr      *NavigationTimeoutError
		pageNavErr  *browser.NavigationError
		notFoundErr *CodeNotFoundError
		exhausted   *retry.RetryExhaustedError
		elementErr  *browser.ElementNotFoundError
		downloadErr *browser.DownloadTimeoutError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &inputErr), errors.As(err, &variantErr):
		return KindInputValidation
	case errors.As(err, &credsErr):
		return KindMissingCredentials
	case errors.As(err, &navErr), errors.As(err, &pageNavErr):
		return KindNavigationTimeout
	case errors.As(err, &notFoundErr):
		return KindCodeNotFound
	case errors.As(err, &exhausted):
		return KindRetryExhausted
	case errors.As(err, &elementErr):
		return KindElementNotFound
	case errors.As(err, &downloadErr):
		return KindDownloadTimeout
	default:
		return KindUnexpected
	}
}

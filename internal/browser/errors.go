package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ElementNotFoundError indicates an element did not appear within its timeout.
type ElementNotFoundError struct {
	Selector string
	Timeout  time.Duration
	Cause    error
}

func (e *ElementNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("element %q not found within %s: %v", e.Selector, e.Timeout, e.Cause)
	}
	return fmt.Sprintf("element %q not found within %s", e.Selector, e.Timeout)
}

func (e *ElementNotFoundError) Unwrap() error {
	return e.Cause
}

// TimedOut reports whether the wait ended because the element timeout elapsed, as opposed
// to a cancelled run or a browser failure.
func (e *ElementNotFoundError) TimedOut() bool {
	return e.Cause == nil
}

// NavigationError indicates a page load that failed or timed out.
type NavigationError struct {
	URL   string
	Cause error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Cause)
}

func (e *NavigationError) Unwrap() error {
	return e.Cause
}

// DownloadTimeoutError indicates no download (or popup, or JSON response) arrived in time.
type DownloadTimeoutError struct {
	What    string
	Timeout time.Duration
}

func (e *DownloadTimeoutError) Error() string {
	return fmt.Sprintf("download timeout: no %s within %s", e.What, e.Timeout)
}

// DownloadFailedError indicates the browser reported the download as cancelled.
type DownloadFailedError struct {
	FileName string
}

func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("download of %q was cancelled by the browser", e.FileName)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

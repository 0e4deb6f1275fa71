package webtop

import (
	"fmt"
	"strings"
	"time"
)

// NavigationError is returned when a page fails to load in time.
type NavigationError struct {
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate to %s (timeout %s): %v", e.URL, e.Timeout, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// SelectorNotFoundError is returned when no locator of a required step matched.
type SelectorNotFoundError struct {
	Step  string
	Tried []string
}

func (e *SelectorNotFoundError) Error() string {
	return fmt.Sprintf("%s: no element matched any of [%s]", e.Step, strings.Join(e.Tried, ", "))
}

// StepTimeoutError is returned when a browser action on a located element did
// not finish in time, such as a click on an element that never becomes visible.
type StepTimeoutError struct {
	Step    string
	Timeout time.Duration
	Err     error
}

func (e *StepTimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s: %v", e.Step, e.Timeout, e.Err)
}

func (e *StepTimeoutError) Unwrap() error {
	return e.Err
}

// CredentialEntryError is returned when every password entry method failed.
type CredentialEntryError struct {
	Attempts []error
}

func (e *CredentialEntryError) Error() string {
	msgs := make([]string, len(e.Attempts))
	for i, err := range e.Attempts {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("could not enter password after %d attempts: %s", len(e.Attempts), strings.Join(msgs, "; "))
}

func (e *CredentialEntryError) Unwrap() []error {
	return e.Attempts
}

// AuthenticationError is returned when login finished but no session artifact
// was issued, usually because the credentials were rejected.
type AuthenticationError struct {
	Expected []string
	Present  []string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf(
		"authentication failed: expected one of cookies [%s], got [%s]",
		strings.Join(e.Expected, ", "),
		strings.Join(e.Present, ", "),
	)
}

// NavigationValidationError is returned when a destination was reached but
// does not look like the expected page.
type NavigationValidationError struct {
	Destination Destination
	URL         string
	Reason      string
}

func (e *NavigationValidationError) Error() string {
	return fmt.Sprintf("navigate to %s: landed on %s: %s", e.Destination, e.URL, e.Reason)
}

// ExtractionError is returned when a page could not be read or parsed at all.
// Individual malformed rows are skipped instead.
type ExtractionError struct {
	Kind string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

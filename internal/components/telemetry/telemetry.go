package telemetry

import (
	"fmt"
)

// API is an abstraction over logging/metrics, it exists so that tests can assert
// on what a component reported.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that broke in a way that needs fixing.
	//
	// The `id` names the broken **component**, not the line that broke. A login
	// failure in the session manager is `session.establish`, the detail goes in the
	// params (usually the error as the first param).
	//
	// Formatting rules:
	// 1) all lowercase
	// 2) use underscores for large components
	// 3) use dashes for methods part of a larger component
	//
	// Most packages declare their ids as `report_...` string constants and wrap
	// the API in a ScopedAPI so ids don't need the package name.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something unexpected that was recovered from, like a
	// selector fallback being exhausted for an optional step.
	ReportWarning(id string, params ...any)

	// ReportDebug reports some debug information that will be ignored in production
	ReportDebug(msg string, params ...any)

	// ReportCount reports the current value of a counter at the current time,
	// these should be read as points over time and not summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, like a sub-logger.
type ScopedAPI struct {
	namespace string
	inner     API
}

// NewScopedAPI creates a ScopedAPI out of a given namespace and another api.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}

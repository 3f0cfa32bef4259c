package port

import (
	"errors"
	"fmt"
)

// DiagnosticKind is the closed set of failure categories reported to agents.
type DiagnosticKind string

const (
	KindDriverUnavailable  DiagnosticKind = "driver-unavailable"
	KindNetworkUnreachable DiagnosticKind = "network-unreachable"
	KindAuthRejected       DiagnosticKind = "auth-rejected"
	KindDatabaseNotFound   DiagnosticKind = "database-not-found"
	KindQueryFailed        DiagnosticKind = "query-failed"
	KindNotFound           DiagnosticKind = "not-found"
	KindValidation         DiagnosticKind = "validation"
	KindUnknown            DiagnosticKind = "unknown"
)

// Fatal reports whether a failure of this kind invalidates the open handle.
func (k DiagnosticKind) Fatal() bool {
	switch k {
	case KindDriverUnavailable, KindNetworkUnreachable, KindAuthRejected, KindDatabaseNotFound, KindUnknown:
		return true
	}
	return false
}

// DiagnosticReport is a kind-tagged failure returned instead of a raw
// driver error.
type DiagnosticReport struct {
	Kind        DiagnosticKind `json:"kind"`
	Message     string         `json:"message"`
	Hint        string         `json:"hint,omitempty"`
	Remediation []string       `json:"remediation,omitempty"`
}

func (r *DiagnosticReport) Error() string {
	return fmt.Sprintf("%s: %s", r.Kind, r.Message)
}

func NewDiagnostic(kind DiagnosticKind, format string, args ...any) *DiagnosticReport {
	return &DiagnosticReport{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsDiagnostic converts any error into a report. Errors that are not
// already reports become KindUnknown with the message preserved.
func AsDiagnostic(err error) *DiagnosticReport {
	if err == nil {
		return nil
	}
	var report *DiagnosticReport
	if errors.As(err, &report) {
		return report
	}
	return &DiagnosticReport{Kind: KindUnknown, Message: err.Error()}
}

// KindOf returns the diagnostic kind of err, or KindUnknown.
func KindOf(err error) DiagnosticKind {
	if r := AsDiagnostic(err); r != nil {
		return r.Kind
	}
	return KindUnknown
}

package firebird

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

var remediation = map[port.DiagnosticKind]struct {
	hint  string
	steps []string
}{
	port.KindDriverUnavailable: {
		hint: "the Firebird client driver is not available in this build",
		steps: []string{
			"rebuild the server with the firebirdsql driver linked in",
			"set ALLOW_DEGRADED=true to start without database access",
		},
	},
	port.KindNetworkUnreachable: {
		hint: "the Firebird server could not be reached",
		steps: []string{
			"verify FIREBIRD_HOST and FIREBIRD_PORT (default port 3050)",
			"check that the Firebird service is running and listening on that address",
			"check firewalls and container networking between this host and the server",
		},
	},
	port.KindAuthRejected: {
		hint: "the server rejected the credentials",
		steps: []string{
			"verify FIREBIRD_USER and FIREBIRD_PASSWORD",
			"make sure the user exists in the security database (gsec or CREATE USER)",
			"on Firebird 3+ check AuthServer and WireCrypt in firebird.conf",
		},
	},
	port.KindDatabaseNotFound: {
		hint: "the database path or alias is not valid on the server",
		steps: []string{
			"verify FIREBIRD_DATABASE is a path on the server host or an alias from databases.conf",
			"check that the firebird process can read and write the database file",
		},
	},
	port.KindQueryFailed: {
		hint: "the engine rejected the statement",
		steps: []string{
			"check the statement syntax against the Firebird SQL reference",
			"use get_table_info to confirm table and column names",
		},
	},
	port.KindNotFound: {
		hint: "no such table in the connected database",
		steps: []string{
			"use list_tables to see the available tables",
		},
	},
	port.KindUnknown: {
		hint: "unclassified engine error",
		steps: []string{
			"run `fbmcp diagnose` for a step-by-step connectivity report",
		},
	},
}

func newReport(kind port.DiagnosticKind, msg string) *port.DiagnosticReport {
	r := &port.DiagnosticReport{Kind: kind, Message: msg}
	if rem, ok := remediation[kind]; ok {
		r.Hint = rem.hint
		r.Remediation = rem.steps
	}
	return r
}

// classifyOpen maps a failure to open or ping the database.
func classifyOpen(err error) *port.DiagnosticReport {
	var report *port.DiagnosticReport
	if errors.As(err, &report) {
		return report
	}
	msg := err.Error()
	if isNetworkError(err) {
		return newReport(port.KindNetworkUnreachable, msg)
	}
	return newReport(classifyMessage(msg), msg)
}

// classifyQuery maps a failure while executing a statement. Lost
// connections stay connectivity failures, everything else is the engine
// rejecting the statement.
func classifyQuery(err error) *port.DiagnosticReport {
	var report *port.DiagnosticReport
	if errors.As(err, &report) {
		return report
	}
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		return newReport(port.KindQueryFailed, "statement timed out: "+msg)
	}
	if isNetworkError(err) || errors.Is(err, driver.ErrBadConn) {
		return newReport(port.KindNetworkUnreachable, msg)
	}
	return newReport(port.KindQueryFailed, msg)
}

func isNetworkError(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused", "no such host", "i/o timeout", "network is unreachable",
		"connection reset", "broken pipe", "no route to host", "network error",
	} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func classifyMessage(msg string) port.DiagnosticKind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "unknown driver"), strings.Contains(lower, "could not be determined"):
		return port.KindDriverUnavailable
	case strings.Contains(lower, "user name and password"),
		strings.Contains(lower, "login"),
		strings.Contains(lower, "password"),
		strings.Contains(lower, "authentication"),
		strings.Contains(lower, "auth plugin"):
		return port.KindAuthRejected
	case strings.Contains(lower, "i/o error during \"open\""),
		strings.Contains(lower, "error while trying to open file"),
		strings.Contains(lower, "no such file or directory"),
		strings.Contains(lower, "is not a valid database"),
		strings.Contains(lower, "unavailable database"),
		strings.Contains(lower, "database") && strings.Contains(lower, "not found"):
		return port.KindDatabaseNotFound
	case strings.Contains(lower, "context deadline exceeded"), strings.Contains(lower, "timeout"):
		return port.KindNetworkUnreachable
	}
	return port.KindUnknown
}

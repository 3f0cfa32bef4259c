package port

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const redactedPassword = "****"

// ConnectionConfig is immutable after process start.
type ConnectionConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
	Charset  string `json:"charset"`
}

// Redacted returns a copy safe to log or report.
func (c ConnectionConfig) Redacted() ConnectionConfig {
	if c.Password != "" {
		c.Password = redactedPassword
	}
	return c
}

// DSN renders the firebirdsql data source name:
// user:password@host:port/path?charset=X
func (c ConnectionConfig) DSN() string {
	u := url.URL{
		User: url.UserPassword(c.User, c.Password),
		Host: net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path: "/" + c.Database,
	}
	if c.Charset != "" {
		u.RawQuery = url.Values{"charset": {c.Charset}}.Encode()
	}
	return strings.TrimPrefix(u.String(), "//")
}

// RedactedDSN is the unescaped display form of DSN with the password masked.
func (c ConnectionConfig) RedactedDSN() string {
	dsn := c.User + ":" + redactedPassword + "@" + c.Address() + "/" + c.Database
	if c.Charset != "" {
		dsn += "?charset=" + c.Charset
	}
	return dsn
}

// Address is host:port of the engine.
func (c ConnectionConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ConnectionStatus is the outcome of a connectivity test. Failures are
// carried in Diagnostic rather than returned as errors.
type ConnectionStatus struct {
	Connected     bool              `json:"connected"`
	EngineVersion string            `json:"engine_version,omitempty"`
	DSN           string            `json:"dsn"`
	Latency       string            `json:"latency,omitempty"`
	Diagnostic    *DiagnosticReport `json:"diagnostic,omitempty"`
}

type AdapterStatus struct {
	Driver       string           `json:"driver"`
	DriverLoaded bool             `json:"driver_loaded"`
	HandleOpen   bool             `json:"handle_open"`
	Config       ConnectionConfig `json:"config"`
	DSN          string           `json:"dsn"`
}

// Database is the full surface of the engine adapter.
type Database interface {
	SchemaExplorer
	QueryExecutor
	TestConnection(ctx context.Context) *ConnectionStatus
	Status() AdapterStatus
}

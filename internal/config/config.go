package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// FirebirdConfig is the engine connection as read from the environment.
type FirebirdConfig struct {
	Host     string `env:"FIREBIRD_HOST" validate:"required"`
	Port     int    `env:"FIREBIRD_PORT" validate:"min=1,max=65535"`
	Database string `env:"FIREBIRD_DATABASE" validate:"required"`
	User     string `env:"FIREBIRD_USER" validate:"required"`
	Password string `env:"FIREBIRD_PASSWORD"`
	Charset  string `env:"FIREBIRD_CHARSET" validate:"required,alphanum"`
}

// Connection converts to the adapter's immutable connection config.
func (f FirebirdConfig) Connection() port.ConnectionConfig {
	return port.ConnectionConfig{
		Host:     f.Host,
		Port:     f.Port,
		Database: f.Database,
		User:     f.User,
		Password: f.Password,
		Charset:  f.Charset,
	}
}

// GuidanceConfig drives the default prompt manager. Fixed at startup.
type GuidanceConfig struct {
	Enabled    bool   `env:"FIREBIRD_DEFAULT_PROMPT_ENABLED"`
	Persona    string `env:"FIREBIRD_DEFAULT_PROMPT" validate:"oneof=firebird_expert firebird_performance firebird_architecture"`
	Operation  string `env:"FIREBIRD_DEFAULT_OPERATION" validate:"oneof=query select insert update delete ddl admin"`
	Complexity string `env:"FIREBIRD_DEFAULT_COMPLEXITY" validate:"oneof=basic intermediate advanced"`
}

type Config struct {
	Firebird FirebirdConfig
	Guidance GuidanceConfig
	HTTP     HTTPConfig

	ServerName    string        `env:"MCP_SERVER_NAME" validate:"required"`
	ServerVersion string        `env:"MCP_SERVER_VERSION"`
	Language      string        `env:"FIREBIRD_LANGUAGE"`
	MaxRows       int           `env:"MAX_ROWS" validate:"gt=0"`
	QueryTimeout  time.Duration `env:"QUERY_TIMEOUT" validate:"gt=0"`
	ConnTimeout   time.Duration `env:"CONNECT_TIMEOUT" validate:"gt=0"`
	IdleTimeout   time.Duration `env:"CONN_IDLE_TIMEOUT" validate:"gte=0"`
	LogLevel      slog.Level
	LogFile       string `env:"LOG_FILE"`
	AuditLogFile  string `env:"AUDIT_LOG_FILE"`
	AllowDegraded bool   `env:"ALLOW_DEGRADED"`
	Transport     string `env:"TRANSPORT" validate:"oneof=stdio http"`
}

// Load reads configuration from environment variables. version is the build
// version used when MCP_SERVER_VERSION is unset.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Firebird: FirebirdConfig{
			Host:     envString("FIREBIRD_HOST", "localhost"),
			Port:     3050,
			Database: os.Getenv("FIREBIRD_DATABASE"),
			User:     envString("FIREBIRD_USER", "SYSDBA"),
			Password: envString("FIREBIRD_PASSWORD", "masterkey"),
			Charset:  envString("FIREBIRD_CHARSET", "UTF8"),
		},
		Guidance: GuidanceConfig{
			Enabled:    true,
			Persona:    envString("FIREBIRD_DEFAULT_PROMPT", "firebird_expert"),
			Operation:  strings.ToLower(envString("FIREBIRD_DEFAULT_OPERATION", "query")),
			Complexity: strings.ToLower(envString("FIREBIRD_DEFAULT_COMPLEXITY", "intermediate")),
		},
		ServerName:    envString("MCP_SERVER_NAME", "firebird-expert-server"),
		ServerVersion: envString("MCP_SERVER_VERSION", version),
		Language:      envString("FIREBIRD_LANGUAGE", "en_US"),
		MaxRows:       1000,
		QueryTimeout:  30 * time.Second,
		ConnTimeout:   10 * time.Second,
		IdleTimeout:   5 * time.Minute,
		LogLevel:      slog.LevelInfo,
		LogFile:       os.Getenv("LOG_FILE"),
		AuditLogFile:  os.Getenv("AUDIT_LOG_FILE"),
		Transport:     strings.ToLower(envString("TRANSPORT", TransportStdio)),
	}

	var err error
	if cfg.Firebird.Port, err = envInt("FIREBIRD_PORT", cfg.Firebird.Port); err != nil {
		return nil, err
	}
	if cfg.Guidance.Enabled, err = envBool("FIREBIRD_DEFAULT_PROMPT_ENABLED", cfg.Guidance.Enabled); err != nil {
		return nil, err
	}
	if cfg.AllowDegraded, err = envBool("ALLOW_DEGRADED", false); err != nil {
		return nil, err
	}
	if cfg.MaxRows, err = envInt("MAX_ROWS", cfg.MaxRows); err != nil {
		return nil, err
	}
	if cfg.QueryTimeout, err = envDuration("QUERY_TIMEOUT", cfg.QueryTimeout); err != nil {
		return nil, err
	}
	if cfg.ConnTimeout, err = envDuration("CONNECT_TIMEOUT", cfg.ConnTimeout); err != nil {
		return nil, err
	}
	if cfg.IdleTimeout, err = envDuration("CONN_IDLE_TIMEOUT", cfg.IdleTimeout); err != nil {
		return nil, err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return nil, err
		}
		cfg.LogLevel = level
	}

	if cfg.HTTP, err = loadHTTP(); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() func(any) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report env var names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})

	return func(s any) error {
		err := v.Struct(s)
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s environment variable is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("invalid %s value %q: must be one of %s", fe.Field(), fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "max", "gt", "gte":
		return fmt.Sprintf("invalid %s value %v: must be %s %s", fe.Field(), fe.Value(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("invalid %s value %q", fe.Field(), fmt.Sprint(fe.Value()))
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: must be an integer", key, v)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}

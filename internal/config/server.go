package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// HTTPConfig holds configuration for the optional HTTP transport.
type HTTPConfig struct {
	ListenAddr        string        `env:"LISTEN_ADDR" validate:"required"`
	CORSOrigin        string        `env:"CORS_ORIGIN"`
	APIKeys           []string      `env:"HTTP_API_KEYS"`
	RateLimitRPM      float64       `env:"RATE_LIMIT_RPM" validate:"gt=0"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" validate:"gt=0"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

func loadHTTP() (HTTPConfig, error) {
	cfg := HTTPConfig{
		ListenAddr:        envString("LISTEN_ADDR", ":8080"),
		CORSOrigin:        os.Getenv("CORS_ORIGIN"),
		APIKeys:           splitList(os.Getenv("HTTP_API_KEYS")),
		RateLimitRPM:      120,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   15 * time.Second,
	}

	if v := os.Getenv("RATE_LIMIT_RPM"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return cfg, &envError{key: "RATE_LIMIT_RPM", value: v, reason: "must be a number"}
		}
		cfg.RateLimitRPM = f
	}

	var err error
	if cfg.ReadHeaderTimeout, err = envDuration("READ_HEADER_TIMEOUT", cfg.ReadHeaderTimeout); err != nil {
		return cfg, err
	}
	if cfg.IdleTimeout, err = envDuration("HTTP_IDLE_TIMEOUT", cfg.IdleTimeout); err != nil {
		return cfg, err
	}
	if cfg.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// splitList parses a comma separated list, dropping blank entries.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

type envError struct {
	key, value, reason string
}

func (e *envError) Error() string {
	return "invalid " + e.key + " value " + strconv.Quote(e.value) + ": " + e.reason
}

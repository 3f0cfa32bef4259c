package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

// StaticAuthenticator accepts a fixed set of keys. Entries prefixed with
// "sha256:" are stored digests, anything else is a plaintext key that is
// hashed at construction.
type StaticAuthenticator struct {
	keys   map[string]string // hash -> display prefix
	logger *slog.Logger
}

var _ port.Authenticator = (*StaticAuthenticator)(nil)

func NewStaticAuthenticator(keys []string, logger *slog.Logger) *StaticAuthenticator {
	a := &StaticAuthenticator{keys: make(map[string]string, len(keys)), logger: logger}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if digest, ok := strings.CutPrefix(k, "sha256:"); ok {
			digest = strings.ToLower(digest)
			a.keys[digest] = "sha256:" + digest[:min(8, len(digest))]
			continue
		}
		a.keys[HashKey(k)] = DisplayPrefix(k)
	}
	return a
}

// Enabled reports whether any key is configured.
func (a *StaticAuthenticator) Enabled() bool {
	return len(a.keys) > 0
}

// Authenticate returns (nil, nil) for unknown tokens.
func (a *StaticAuthenticator) Authenticate(_ context.Context, token string) (*port.AuthResult, error) {
	id, ok := a.keys[HashKey(token)]
	if !ok {
		a.logger.Debug("api key rejected", slog.String("key", DisplayPrefix(token)))
		return nil, nil
	}
	return &port.AuthResult{KeyID: id}, nil
}

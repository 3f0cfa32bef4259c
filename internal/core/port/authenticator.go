package port

import "context"

// AuthResult identifies the API key that authenticated a request.
type AuthResult struct {
	// KeyID is the display prefix of the key, safe to log.
	KeyID string
}

// Authenticator validates a Bearer token from an incoming request.
type Authenticator interface {
	// Authenticate validates the token and returns metadata about the key.
	// Returns (nil, nil) when the token is not recognised.
	Authenticate(ctx context.Context, token string) (*AuthResult, error)
}

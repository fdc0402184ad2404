// Package auth authenticates service callers by API key.
//
// Keys are configured through the environment only. The authenticator keeps
// an HMAC of each key under a per-process secret rather than the key itself
// and compares digests in constant time. The same check backs a gRPC unary
// interceptor and an HTTP middleware, both reading the x-api-key header.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// HeaderName is the header (HTTP) and metadata key (gRPC) carrying the key.
const HeaderName = "x-api-key"

type contextKey string

const keyIDKey = contextKey("key_id")

// Authenticator validates API keys.
type Authenticator struct {
	secret  []byte
	digests map[string][]byte
}

// NewAuthenticator creates an authenticator accepting keys, a map of key
// ID to key as returned by config.APIKeys.
func NewAuthenticator(keys map[string]string) (*Authenticator, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	a := &Authenticator{secret: secret, digests: make(map[string][]byte, len(keys))}
	for id, key := range keys {
		keyID, _, err := ParseAPIKey(key)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", id, err)
		}
		if keyID != id {
			return nil, fmt.Errorf("key %s: key ID does not match key", id)
		}
		a.digests[keyID] = ComputeHMAC(secret, key)
	}
	return a, nil
}

// Enabled reports whether any key is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.digests) > 0
}

// Authenticate validates apiKey and returns its key ID.
func (a *Authenticator) Authenticate(apiKey string) (string, error) {
	if apiKey == "" {
		return "", ErrMissingKey
	}
	keyID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}
	expected, ok := a.digests[keyID]
	if !ok {
		return "", ErrUnknownKey
	}
	if !VerifyHMAC(expected, ComputeHMAC(a.secret, apiKey)) {
		return "", ErrInvalidKey
	}
	return keyID, nil
}

// UnaryInterceptor returns a gRPC interceptor that authenticates requests.
// Health checks pass through unauthenticated.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !a.Enabled() || info.FullMethod == "/grpc.health.v1.Health/Check" {
			return handler(ctx, req)
		}
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		var key string
		if vals := md.Get(HeaderName); len(vals) > 0 {
			key = vals[0]
		}
		keyID, err := a.Authenticate(key)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, publicMessage(err))
		}
		return handler(context.WithValue(ctx, keyIDKey, keyID), req)
	}
}

// Middleware returns HTTP middleware that authenticates requests.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		keyID, err := a.Authenticate(r.Header.Get(HeaderName))
		if err != nil {
			http.Error(w, publicMessage(err), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), keyIDKey, keyID)))
	})
}

// publicMessage hides whether a well-formed key ID exists.
func publicMessage(err error) string {
	if errors.Is(err, ErrUnknownKey) {
		return ErrInvalidKey.Error()
	}
	return err.Error()
}

// KeyIDFromContext returns the authenticated key ID, or "" when the request
// was not authenticated.
func KeyIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(keyIDKey).(string); ok {
		return id
	}
	return ""
}

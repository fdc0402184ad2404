package auth

import "errors"

// Authentication errors. Unknown and invalid keys share one gRPC code so a
// caller cannot tell which key IDs exist.
var (
	ErrMissingKey       = errors.New("API key required in x-api-key header")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("unknown key ID")
	ErrInvalidKey       = errors.New("invalid API key")
)

// Package common defines shared constants and sentinel errors used across
// client and server layers of cipherchat. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Crypto errors. ErrCryptoUnavailable means the platform RNG or cipher
	// construction failed. ErrDecryptionFailed covers wrong keys and corrupted
	// ciphertext. ErrInvalidFormat covers malformed stored payloads: missing
	// delimiter, empty half, bad base64.
	ErrCryptoUnavailable = errors.New("crypto unavailable")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrInvalidFormat     = errors.New("invalid encrypted payload format")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// Package token provides digest primitives for server-side storage of
// refresh credentials.
//
// The stored value on a principal row is always a 64-char hex digest
// (HMAC-SHA256 when GRADNET_TOKEN_HMAC_KEY is set; otherwise SHA-256 for dev).
// Comparison is constant-time.
package token

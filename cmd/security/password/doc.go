// Package password provides Argon2id password hashing and verification.
//
// It implements a PHC-like encoded string format and includes:
// - Configurable Argon2id parameters (via environment variables)
// - Password policy validation
// - Strict hash decoding and verification with anti-DoS bounds
//
// Hash strings are treated as untrusted input during Verify; verification
// refuses hashes with parameters that exceed reasonable bounds.
package password

// Package session implements gradnet's credential lifecycle.
//
// It mints the two-token pair (short-lived access JWT, long-lived refresh
// JWT, each signed with its own secret), performs single-use refresh
// rotation against the credential store, and authenticates access
// credentials on behalf of the HTTP gate.
//
// The stored refresh value on a principal is a digest, never plaintext, and
// rotation replaces it with a compare-and-swap so a replayed old credential
// can never rotate twice.
package session

// Package identity implements gradnet's credential store and identity
// primitives.
//
// It contains the principal model (account, role, stored refresh-credential
// digest), password hashing, normalization, ULID ids, and the persistence
// boundary used by the HTTP layer.
package identity

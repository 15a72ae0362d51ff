package identity

import (
	"context"
	"time"
)

// Principal is gradnet's canonical security principal: one account record.
//
// RefreshDigest is write-only state used purely for server-side comparison
// during refresh rotation. It is never included in Principal and never
// crosses any read path available to the principal; stores expose it only
// through the Swap/Clear operations below.
type Principal struct {
	ID        string
	Name      string
	Email     string
	EmailNorm string
	Role      Role
	Active    bool

	// Alumni profile fields.
	CollegeName    *string
	Course         *string
	Specialization *string
	Enrollment     *string
	YearOfJoining  *int
	YearOfPassing  *int

	LastLoginAt *time.Time
	CreatedAt   time.Time
}

// PrincipalAuth carries the password hash alongside the principal.
// It exists only for the login path; handlers must never serialize it.
type PrincipalAuth struct {
	Principal
	PasswordHash string
}

// CreateUserInput describes a registration request.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     Role

	CollegeName    *string
	Course         *string
	Specialization *string
	Enrollment     *string
	YearOfJoining  *int
	YearOfPassing  *int

	Now time.Time
}

// UpdateProfileInput describes a partial profile update.
// Nil fields are left unchanged.
type UpdateProfileInput struct {
	Name           *string
	CollegeName    *string
	Course         *string
	Specialization *string
	Enrollment     *string
	YearOfJoining  *int
	YearOfPassing  *int
}

// Store is the credential-store persistence boundary.
//
// The stored refresh digest is the single mutable field shared between
// requests; SwapRefreshDigest is the compare-and-swap primitive that makes
// refresh rotation single-use (see auth/session).
type Store interface {
	// CreateUser creates a principal. Email uniqueness is enforced on the
	// normalized form; violation yields a ConflictError.
	CreateUser(ctx context.Context, in CreateUserInput) (Principal, error)

	// GetByID loads an active-or-inactive principal by id.
	GetByID(ctx context.Context, id string) (Principal, error)

	// GetAuthByEmail loads a principal with its password hash for login.
	GetAuthByEmail(ctx context.Context, email string) (PrincipalAuth, error)

	// SetRefreshDigest unconditionally overwrites the stored refresh digest
	// (login and registration; a second login invalidates the first session).
	SetRefreshDigest(ctx context.Context, id string, digest string) error

	// SwapRefreshDigest atomically replaces the stored digest with newDigest
	// iff the stored digest equals presentedDigest and the principal is
	// active. Any failure (missing principal, inactive, cleared or mismatched
	// digest) is reported as the same ErrNotActive-kinded error.
	SwapRefreshDigest(ctx context.Context, id string, presentedDigest, newDigest string) error

	// ClearRefreshDigest clears the stored digest for a principal (logout).
	ClearRefreshDigest(ctx context.Context, id string) error

	// ClearRefreshDigestByDigest clears the stored digest wherever it equals
	// digest. Idempotent; no error when nothing matches.
	ClearRefreshDigestByDigest(ctx context.Context, digest string) error

	// TouchLogin updates last_login_at (best-effort).
	TouchLogin(ctx context.Context, id string, now time.Time) error

	// UpdateProfile applies a partial profile update and returns the result.
	UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (Principal, error)
}

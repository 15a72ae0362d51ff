package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const principalColumns = `
	id, name, email, email_norm, role, active,
	college_name, course, specialization, enrollment,
	year_of_joining, year_of_passing,
	last_login_at, created_at
`

// PostgresStore implements Store using PostgreSQL (gradnet.principals).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed credential store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("identity: nil db pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// CreateUser hashes the password and inserts a principal row.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (Principal, error) {
	const op = "identity.CreateUser"

	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return Principal{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "name, email and password are required"}
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return Principal{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := NewULID(now)
	if err != nil {
		return Principal{}, err
	}

	role := in.Role
	if role == "" {
		role = RoleStudent
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO gradnet.principals (
			id, name, email, email_norm, password_hash, role, active,
			refresh_token_digest,
			college_name, course, specialization, enrollment,
			year_of_joining, year_of_passing,
			last_login_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, TRUE,
			NULL,
			$7, $8, $9, $10,
			$11, $12,
			NULL, $13
		)
	`, id, name, email, NormalizeEmail(email), hash, string(role),
		in.CollegeName, in.Course, in.Specialization, in.Enrollment,
		in.YearOfJoining, in.YearOfPassing, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Principal{}, ConflictError{Op: op, Field: "email"}
		}
		return Principal{}, err
	}

	return s.GetByID(ctx, id)
}

// GetByID loads a principal by id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Principal, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+principalColumns+`
		FROM gradnet.principals
		WHERE id = $1
	`, id)
	return scanPrincipal(row, "identity.GetByID")
}

// GetAuthByEmail loads a principal with its password hash for login checks.
func (s *PostgresStore) GetAuthByEmail(ctx context.Context, email string) (PrincipalAuth, error) {
	const op = "identity.GetAuthByEmail"

	var (
		p    Principal
		hash string
		role string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT `+principalColumns+`, password_hash
		FROM gradnet.principals
		WHERE email_norm = $1
	`, NormalizeEmail(email)).Scan(
		&p.ID, &p.Name, &p.Email, &p.EmailNorm, &role, &p.Active,
		&p.CollegeName, &p.Course, &p.Specialization, &p.Enrollment,
		&p.YearOfJoining, &p.YearOfPassing,
		&p.LastLoginAt, &p.CreatedAt,
		&hash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return PrincipalAuth{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return PrincipalAuth{}, err
	}

	p.Role = ParseRole(role)
	return PrincipalAuth{Principal: p, PasswordHash: hash}, nil
}

// SetRefreshDigest overwrites the stored refresh digest unconditionally.
func (s *PostgresStore) SetRefreshDigest(ctx context.Context, id string, digest string) error {
	const op = "identity.SetRefreshDigest"

	tag, err := s.pool.Exec(ctx, `
		UPDATE gradnet.principals
		SET refresh_token_digest = $2
		WHERE id = $1 AND active
	`, id, digest)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	return nil
}

// SwapRefreshDigest is the rotation compare-and-swap: one UPDATE whose WHERE
// clause carries the equality check, so two racing rotations for the same
// principal serialize on the row and exactly one wins.
func (s *PostgresStore) SwapRefreshDigest(ctx context.Context, id string, presentedDigest, newDigest string) error {
	if presentedDigest == "" || newDigest == "" {
		return notActiveSwap()
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE gradnet.principals
		SET refresh_token_digest = $3
		WHERE id = $1
		  AND active
		  AND refresh_token_digest = $2
	`, id, presentedDigest, newDigest)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notActiveSwap()
	}
	return nil
}

// ClearRefreshDigest clears the stored digest for a principal.
func (s *PostgresStore) ClearRefreshDigest(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE gradnet.principals
		SET refresh_token_digest = NULL
		WHERE id = $1
	`, id)
	return err
}

// ClearRefreshDigestByDigest clears any row whose stored digest matches.
func (s *PostgresStore) ClearRefreshDigestByDigest(ctx context.Context, digest string) error {
	if digest == "" {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE gradnet.principals
		SET refresh_token_digest = NULL
		WHERE refresh_token_digest = $1
	`, digest)
	return err
}

// TouchLogin updates last_login_at.
func (s *PostgresStore) TouchLogin(ctx context.Context, id string, now time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE gradnet.principals
		SET last_login_at = $2
		WHERE id = $1
	`, id, now)
	return err
}

// UpdateProfile applies non-nil fields and returns the updated principal.
func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (Principal, error) {
	const op = "identity.UpdateProfile"

	tag, err := s.pool.Exec(ctx, `
		UPDATE gradnet.principals
		SET
			name            = COALESCE($2, name),
			college_name    = COALESCE($3, college_name),
			course          = COALESCE($4, course),
			specialization  = COALESCE($5, specialization),
			enrollment      = COALESCE($6, enrollment),
			year_of_joining = COALESCE($7, year_of_joining),
			year_of_passing = COALESCE($8, year_of_passing)
		WHERE id = $1
	`, id, in.Name, in.CollegeName, in.Course, in.Specialization,
		in.Enrollment, in.YearOfJoining, in.YearOfPassing)
	if err != nil {
		return Principal{}, err
	}
	if tag.RowsAffected() == 0 {
		return Principal{}, OpError{Op: op, Kind: ErrNotFound}
	}

	return s.GetByID(ctx, id)
}

func scanPrincipal(row pgx.Row, op string) (Principal, error) {
	var (
		p    Principal
		role string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.EmailNorm, &role, &p.Active,
		&p.CollegeName, &p.Course, &p.Specialization, &p.Enrollment,
		&p.YearOfJoining, &p.YearOfPassing,
		&p.LastLoginAt, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Principal{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return Principal{}, err
	}

	p.Role = ParseRole(role)
	return p, nil
}

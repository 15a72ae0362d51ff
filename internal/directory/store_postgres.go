package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gradnet/cmd/identity"
)

const maxPageSize = 100

// PostgresStore implements Store over gradnet.principals.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed directory store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("directory: nil db pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// SearchProfiles lists active principals matching the filter, newest first.
func (s *PostgresStore) SearchProfiles(ctx context.Context, f SearchFilter) ([]identity.Principal, error) {
	limit := f.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	where := []string{"active"}
	args := []any{}

	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(name ILIKE $%d OR college_name ILIKE $%d OR course ILIKE $%d)", n, n, n))
	}
	if c := strings.TrimSpace(f.Course); c != "" {
		args = append(args, c)
		where = append(where, fmt.Sprintf("course ILIKE $%d", len(args)))
	}
	if f.YearOfPassing != nil {
		args = append(args, *f.YearOfPassing)
		where = append(where, fmt.Sprintf("year_of_passing = $%d", len(args)))
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT
			id, name, email, email_norm, role, active,
			college_name, course, specialization, enrollment,
			year_of_joining, year_of_passing,
			last_login_at, created_at
		FROM gradnet.principals
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []identity.Principal
	for rows.Next() {
		p, err := scanDirectoryRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProfile loads one active principal.
func (s *PostgresStore) GetProfile(ctx context.Context, id string) (identity.Principal, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT
			id, name, email, email_norm, role, active,
			college_name, course, specialization, enrollment,
			year_of_joining, year_of_passing,
			last_login_at, created_at
		FROM gradnet.principals
		WHERE id = $1 AND active
	`, id)

	p, err := scanDirectoryRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.Principal{}, identity.OpError{Op: "directory.GetProfile", Kind: identity.ErrNotFound}
	}
	return p, err
}

// Overview aggregates network counts for the admin snapshot.
func (s *PostgresStore) Overview(ctx context.Context, now time.Time) (Overview, error) {
	var o Overview
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE role = 'student'),
			COUNT(*) FILTER (WHERE role = 'alumni'),
			COUNT(*) FILTER (WHERE role = 'admin'),
			COUNT(*) FILTER (WHERE created_at >= $1)
		FROM gradnet.principals
		WHERE active
	`, now.Add(-30*24*time.Hour)).Scan(
		&o.TotalProfiles, &o.Students, &o.Alumni, &o.Admins, &o.JoinedLast30Days,
	)
	return o, err
}

func scanDirectoryRow(row pgx.Row) (identity.Principal, error) {
	var (
		p    identity.Principal
		role string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.EmailNorm, &role, &p.Active,
		&p.CollegeName, &p.Course, &p.Specialization, &p.Enrollment,
		&p.YearOfJoining, &p.YearOfPassing,
		&p.LastLoginAt, &p.CreatedAt,
	)
	if err != nil {
		return identity.Principal{}, err
	}
	p.Role = identity.ParseRole(role)
	return p, nil
}

var _ Store = (*PostgresStore)(nil)

package directory

import (
	"context"
	"time"

	"gradnet/cmd/identity"
)

// SearchFilter narrows a profile listing. Zero values mean "no filter".
type SearchFilter struct {
	// Query matches name, college and course, case-insensitively.
	Query string

	Course        string
	YearOfPassing *int

	Limit  int
	Offset int
}

// Overview is the admin snapshot of the network.
type Overview struct {
	TotalProfiles int64
	Students      int64
	Alumni        int64
	Admins        int64

	// JoinedLast30Days counts principals created in the 30 days before now.
	JoinedLast30Days int64
}

// Store is the directory read boundary. Only active principals are visible.
type Store interface {
	SearchProfiles(ctx context.Context, f SearchFilter) ([]identity.Principal, error)
	GetProfile(ctx context.Context, id string) (identity.Principal, error)
	Overview(ctx context.Context, now time.Time) (Overview, error)
}

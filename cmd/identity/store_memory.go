package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"gradnet/cmd/security/token"
)

// MemoryStore is an in-memory Store used for tests and DB-less development.
// A single mutex serializes all mutations, which also serializes refresh
// rotation per process.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*memRecord
	byEmail map[string]string // email_norm -> id
}

type memRecord struct {
	principal     Principal
	passwordHash  string
	refreshDigest string
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*memRecord),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, in CreateUserInput) (Principal, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	norm := NormalizeEmail(email)
	if _, exists := s.byEmail[norm]; exists {
		return Principal{}, ConflictError{Op: op, Field: "email"}
	}

	p := Principal{
		ID:             id,
		Name:           name,
		Email:          email,
		EmailNorm:      norm,
		Role:           role,
		Active:         true,
		CollegeName:    in.CollegeName,
		Course:         in.Course,
		Specialization: in.Specialization,
		Enrollment:     in.Enrollment,
		YearOfJoining:  in.YearOfJoining,
		YearOfPassing:  in.YearOfPassing,
		CreatedAt:      now,
	}

	s.byID[id] = &memRecord{principal: p, passwordHash: hash}
	s.byEmail[norm] = id
	return p, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return Principal{}, OpError{Op: "identity.GetByID", Kind: ErrNotFound}
	}
	return rec.principal, nil
}

func (s *MemoryStore) GetAuthByEmail(_ context.Context, email string) (PrincipalAuth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return PrincipalAuth{}, OpError{Op: "identity.GetAuthByEmail", Kind: ErrNotFound}
	}
	rec := s.byID[id]
	return PrincipalAuth{Principal: rec.principal, PasswordHash: rec.passwordHash}, nil
}

func (s *MemoryStore) SetRefreshDigest(_ context.Context, id string, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok || !rec.principal.Active {
		return OpError{Op: "identity.SetRefreshDigest", Kind: ErrNotFound}
	}
	rec.refreshDigest = digest
	return nil
}

func (s *MemoryStore) SwapRefreshDigest(_ context.Context, id string, presentedDigest, newDigest string) error {
	if presentedDigest == "" || newDigest == "" {
		return notActiveSwap()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok || !rec.principal.Active {
		return notActiveSwap()
	}
	if !token.DigestEqual(rec.refreshDigest, presentedDigest) {
		return notActiveSwap()
	}
	rec.refreshDigest = newDigest
	return nil
}

func (s *MemoryStore) ClearRefreshDigest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.byID[id]; ok {
		rec.refreshDigest = ""
	}
	return nil
}

func (s *MemoryStore) ClearRefreshDigestByDigest(_ context.Context, digest string) error {
	if digest == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.byID {
		if token.DigestEqual(rec.refreshDigest, digest) {
			rec.refreshDigest = ""
		}
	}
	return nil
}

func (s *MemoryStore) TouchLogin(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.byID[id]; ok {
		t := now
		rec.principal.LastLoginAt = &t
	}
	return nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id string, in UpdateProfileInput) (Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return Principal{}, OpError{Op: "identity.UpdateProfile", Kind: ErrNotFound}
	}

	p := &rec.principal
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.CollegeName != nil {
		p.CollegeName = in.CollegeName
	}
	if in.Course != nil {
		p.Course = in.Course
	}
	if in.Specialization != nil {
		p.Specialization = in.Specialization
	}
	if in.Enrollment != nil {
		p.Enrollment = in.Enrollment
	}
	if in.YearOfJoining != nil {
		p.YearOfJoining = in.YearOfJoining
	}
	if in.YearOfPassing != nil {
		p.YearOfPassing = in.YearOfPassing
	}
	return *p, nil
}

// SetActive flips the soft-disable flag. Test/admin helper.
func (s *MemoryStore) SetActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.byID[id]; ok {
		rec.principal.Active = active
	}
}

// SetRole changes a principal's role. Test/admin helper.
func (s *MemoryStore) SetRole(id string, role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.byID[id]; ok {
		rec.principal.Role = role
	}
}

var _ Store = (*MemoryStore)(nil)

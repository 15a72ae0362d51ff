package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gradnet/cmd/identity"
	"gradnet/cmd/security/token"
)

// Service implements the high-level credential operations for gradnet.
//
// It issues token pairs, performs single-use refresh rotation, clears the
// stored refresh state on logout, and authenticates access credentials
// against the live credential store.
type Service struct {
	cfg    Config
	issuer *Issuer
	store  identity.Store
	log    *slog.Logger
}

// Issued is the result of issuing or rotating a credential pair.
type Issued struct {
	SubjectID string
	Access    Credential
	Refresh   Credential
}

// NewService constructs a Service with the provided configuration and store.
func NewService(cfg Config, store identity.Store, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	issuer, err := NewIssuer(cfg)
	if err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, issuer: issuer, store: store, log: log}, nil
}

// Issue mints a fresh pair for a principal and persists the refresh digest,
// overwriting whatever was stored. A second login therefore invalidates the
// refresh credential of the first session.
func (s *Service) Issue(ctx context.Context, now time.Time, principalID string) (Issued, error) {
	access, refresh, err := s.issuer.Pair(principalID, now)
	if err != nil {
		return Issued{}, err
	}

	if err := s.store.SetRefreshDigest(ctx, principalID, token.DigestRefreshCredentialHex(refresh.Value)); err != nil {
		return Issued{}, err
	}

	return Issued{SubjectID: principalID, Access: access, Refresh: refresh}, nil
}

// Rotate performs single-use refresh rotation.
//
// Steps:
//  1. Verify signature and expiry of the presented credential. The expired
//     vs malformed distinction is logged, never surfaced.
//  2. Mint a brand-new pair (no side effects yet).
//  3. Compare-and-swap the stored digest: old -> new. The swap only succeeds
//     when the stored value still equals the presented one, which is what
//     makes a replayed old credential fail after a successful rotation.
//
// A failed rotation leaves the stored value untouched; there is no partial
// state to roll back.
func (s *Service) Rotate(ctx context.Context, now time.Time, presented string) (Issued, error) {
	presented = strings.TrimSpace(presented)
	// Sanity bounds against pathological inputs.
	if presented == "" || len(presented) > 4096 {
		return Issued{}, ErrInvalidToken
	}

	claims, err := s.issuer.VerifyRefresh(presented, now)
	if err != nil {
		s.log.Debug("session.rotate.verify.fail", "err", err)
		return Issued{}, err
	}

	access, refresh, err := s.issuer.Pair(claims.SubjectID, now)
	if err != nil {
		return Issued{}, err
	}

	oldDigest := token.DigestRefreshCredentialHex(presented)
	newDigest := token.DigestRefreshCredentialHex(refresh.Value)
	if err := s.store.SwapRefreshDigest(ctx, claims.SubjectID, oldDigest, newDigest); err != nil {
		// Mismatch covers: already rotated by a race winner, logged out,
		// superseded by a newer login, or principal disabled.
		s.log.Debug("session.rotate.swap.fail", "subject", claims.SubjectID, "err", err)
		return Issued{}, err
	}

	return Issued{SubjectID: claims.SubjectID, Access: access, Refresh: refresh}, nil
}

// Logout clears the stored refresh digest matching the presented credential.
// It does not require the credential to verify: a client holding an expired
// refresh credential can still log out, and clearing is idempotent.
func (s *Service) Logout(ctx context.Context, presented string) error {
	presented = strings.TrimSpace(presented)
	if presented == "" || len(presented) > 4096 {
		return nil
	}
	return s.store.ClearRefreshDigestByDigest(ctx, token.DigestRefreshCredentialHex(presented))
}

// LogoutSubject clears the stored refresh digest for a known principal.
// Used when the caller is authenticated via access credential.
func (s *Service) LogoutSubject(ctx context.Context, principalID string) error {
	return s.store.ClearRefreshDigest(ctx, principalID)
}

// Authenticate verifies an access credential and resolves the live principal.
//
// Token validity alone is necessary but not sufficient: the principal must
// still exist and be active, and the role attached to the request always
// comes from the store, never from the token payload.
func (s *Service) Authenticate(ctx context.Context, now time.Time, accessValue string) (identity.Principal, error) {
	claims, err := s.issuer.VerifyAccess(accessValue, now)
	if err != nil {
		s.log.Debug("session.authenticate.verify.fail", "err", err)
		return identity.Principal{}, err
	}

	p, err := s.store.GetByID(ctx, claims.SubjectID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.Principal{}, ErrInvalidToken
		}
		return identity.Principal{}, err
	}
	if !p.Active {
		return identity.Principal{}, ErrInvalidToken
	}

	return p, nil
}

// AccessTTL exposes the configured access lifetime for cookie max-age.
func (s *Service) AccessTTL() time.Duration { return s.cfg.AccessTTL }

// RefreshTTL exposes the configured refresh lifetime for cookie max-age.
func (s *Service) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gradnet/cmd/identity"
)

// Credential is one signed, time-boxed token.
type Credential struct {
	Value     string
	ExpiresAt time.Time
}

// Claims is the verified content of a credential.
type Claims struct {
	SubjectID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer mints and verifies the two-token pair. It is stateless: minting has
// no side effects and verification needs no database round-trip.
type Issuer struct {
	issuer    string
	clockSkew time.Duration

	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration
}

// NewIssuer builds an Issuer from config. Both secrets are required.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, ErrConfig
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, ErrConfig
	}

	return &Issuer{
		issuer:        cfg.Issuer,
		clockSkew:     cfg.ClockSkew,
		accessSecret:  cfg.AccessSecret,
		accessTTL:     cfg.AccessTTL,
		refreshSecret: cfg.RefreshSecret,
		refreshTTL:    cfg.RefreshTTL,
	}, nil
}

// Pair mints an access credential and a refresh credential for subjectID.
//
// An empty subject is a programming-contract violation, reported as an
// ErrInvalidInput-kinded error rather than a token error.
func (i *Issuer) Pair(subjectID string, now time.Time) (access Credential, refresh Credential, err error) {
	if subjectID == "" {
		return Credential{}, Credential{}, identity.OpError{
			Op:   "session.Pair",
			Kind: identity.ErrInvalidInput,
			Msg:  "subject id is required",
		}
	}

	access, err = i.sign(subjectID, now, i.accessTTL, i.accessSecret)
	if err != nil {
		return Credential{}, Credential{}, err
	}
	refresh, err = i.sign(subjectID, now, i.refreshTTL, i.refreshSecret)
	if err != nil {
		return Credential{}, Credential{}, err
	}
	return access, refresh, nil
}

// VerifyAccess verifies an access credential and returns its claims.
func (i *Issuer) VerifyAccess(value string, now time.Time) (Claims, error) {
	return i.verify(value, now, i.accessSecret)
}

// VerifyRefresh verifies a refresh credential and returns its claims.
// Cryptographic validity alone does not make the credential acceptable for
// rotation; the service still compares it against the stored digest.
func (i *Issuer) VerifyRefresh(value string, now time.Time) (Claims, error) {
	return i.verify(value, now, i.refreshSecret)
}

func (i *Issuer) sign(subjectID string, now time.Time, ttl time.Duration, secret []byte) (Credential, error) {
	exp := now.Add(ttl)

	// The random jti makes every minted credential unique even when two are
	// minted within the same second; rotation depends on old != new.
	jti, err := identity.NewULID(now)
	if err != nil {
		return Credential{}, err
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   subjectID,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	signed, err := tok.SignedString(secret)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Value: signed, ExpiresAt: exp}, nil
}

func (i *Issuer) verify(value string, now time.Time, secret []byte) (Claims, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(value, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(i.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}

	out := Claims{SubjectID: claims.Subject}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

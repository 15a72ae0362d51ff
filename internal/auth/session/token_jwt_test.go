package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradnet/cmd/identity"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AccessSecret = []byte("access-secret-for-tests-0123456789")
	cfg.RefreshSecret = []byte("refresh-secret-for-tests-0123456789")
	return cfg
}

func TestIssuerPairRoundTrip(t *testing.T) {
	iss, err := NewIssuer(testConfig())
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	access, refresh, err := iss.Pair("01ARZ3NDEKTSV4RRFFQ69G5FAV", now)
	require.NoError(t, err)
	require.NotEqual(t, access.Value, refresh.Value)
	assert.Equal(t, now.Add(15*time.Minute), access.ExpiresAt)
	assert.Equal(t, now.Add(7*24*time.Hour), refresh.ExpiresAt)

	ac, err := iss.VerifyAccess(access.Value, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", ac.SubjectID)

	rc, err := iss.VerifyRefresh(refresh.Value, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", rc.SubjectID)
}

func TestIssuerPairEmptySubject(t *testing.T) {
	iss, err := NewIssuer(testConfig())
	require.NoError(t, err)

	_, _, err = iss.Pair("", time.Now().UTC())
	require.Error(t, err)
	assert.True(t, identity.IsInvalidInput(err))
}

func TestIssuerPairUniquePerMint(t *testing.T) {
	iss, err := NewIssuer(testConfig())
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Two pairs minted at the exact same instant must still differ.
	_, r1, err := iss.Pair("subj", now)
	require.NoError(t, err)
	_, r2, err := iss.Pair("subj", now)
	require.NoError(t, err)
	assert.NotEqual(t, r1.Value, r2.Value)
}

func TestIssuerVerifyTampered(t *testing.T) {
	iss, err := NewIssuer(testConfig())
	require.NoError(t, err)

	now := time.Now().UTC()
	access, _, err := iss.Pair("subj", now)
	require.NoError(t, err)

	// Flipping any single byte must invalidate the credential.
	raw := []byte(access.Value)
	for _, pos := range []int{0, len(raw) / 2, len(raw) - 1} {
		mutated := append([]byte(nil), raw...)
		if mutated[pos] == 'A' {
			mutated[pos] = 'B'
		} else {
			mutated[pos] = 'A'
		}
		_, err := iss.VerifyAccess(string(mutated), now)
		assert.ErrorIs(t, err, ErrInvalidToken, "byte %d", pos)
	}
}

func TestIssuerVerifyExpired(t *testing.T) {
	iss, err := NewIssuer(testConfig())
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	access, _, err := iss.Pair("subj", now)
	require.NoError(t, err)

	// Within skew still passes.
	_, err = iss.VerifyAccess(access.Value, now.Add(15*time.Minute+10*time.Second))
	require.NoError(t, err)

	// Beyond skew fails, and the expired error still matches the generic one.
	_, err = iss.VerifyAccess(access.Value, now.Add(16*time.Minute))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestIssuerSecretsNotInterchangeable(t *testing.T) {
	iss, err := NewIssuer(testConfig())
	require.NoError(t, err)

	now := time.Now().UTC()
	access, refresh, err := iss.Pair("subj", now)
	require.NoError(t, err)

	// A refresh credential must not pass as an access credential and
	// vice versa.
	_, err = iss.VerifyAccess(refresh.Value, now)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.VerifyRefresh(access.Value, now)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuerVerifyGarbage(t *testing.T) {
	iss, err := NewIssuer(testConfig())
	require.NoError(t, err)

	now := time.Now().UTC()
	for _, v := range []string{"", "not-a-jwt", "a.b.c", "eyJhbGciOiJub25lIn0.e30."} {
		_, err := iss.VerifyAccess(v, now)
		assert.ErrorIs(t, err, ErrInvalidToken, "value %q", v)
	}
}

func TestNewIssuerRejectsMissingSecrets(t *testing.T) {
	cfg := DefaultConfig()
	_, err := NewIssuer(cfg)
	assert.ErrorIs(t, err, ErrConfig)
}

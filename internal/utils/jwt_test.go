package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestSessionIssuer_IssueAndVerify(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	iss := NewSessionIssuer("secret", time.Hour).WithClock(fixedClock(now))

	tok, err := iss.IssueDefault(42, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), tok.Exp)

	claims, err := iss.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, now.Add(time.Hour), claims.ExpiresAt.Time.UTC())
}

func TestSessionIssuer_RejectsExpired(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	iss := NewSessionIssuer("secret", time.Minute).WithClock(fixedClock(now))
	tok, err := iss.IssueDefault(1, "a@example.com")
	require.NoError(t, err)

	later := iss.WithClock(fixedClock(now.Add(2 * time.Minute)))
	_, err = later.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionIssuer_RejectsWrongSecretAndAlgorithm(t *testing.T) {
	iss := NewSessionIssuer("secret", time.Hour)
	other := NewSessionIssuer("other", time.Hour)
	tok, err := other.IssueDefault(1, "a@example.com")
	require.NoError(t, err)
	_, err = iss.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionIssuer_RejectsNonNumericSubject(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewSessionIssuer("secret", time.Hour).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Sup3r$ecret!", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3r$ecret!", hash)
	assert.True(t, VerifyPassword(hash, "Sup3r$ecret!"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}

func TestDummyVerify_UsesConfiguredCost(t *testing.T) {
	assert.False(t, DummyVerify("anything", 5))

	cost, err := bcrypt.Cost(dummyHashFor(5))
	require.NoError(t, err)
	assert.Equal(t, 5, cost)

	cost, err = bcrypt.Cost(dummyHashFor(4))
	require.NoError(t, err)
	assert.Equal(t, 4, cost)
}

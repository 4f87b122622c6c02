package services

import (
	"testing"
	"time"

	"streamgate/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_RoundTrip(t *testing.T) {
	svc := NewSessionService("session-test-secret", 15*time.Minute, 7*24*time.Hour)

	token, err := svc.GenerateToken("acct-1", "alice")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("acct-1"), claims.AccountID)
	assert.Equal(t, "alice", claims.Username)
}

func TestSessionService_RejectsWrongSecret(t *testing.T) {
	issuer := NewSessionService("secret-a", 15*time.Minute, time.Hour)
	verifier := NewSessionService("secret-b", 15*time.Minute, time.Hour)

	token, err := issuer.GenerateToken("acct-1", "alice")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionService_RejectsExpiredToken(t *testing.T) {
	svc := NewSessionService("session-test-secret", -1*time.Second, time.Hour)

	token, err := svc.GenerateToken("acct-1", "alice")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredSession)
}

func TestSessionService_RejectsGarbage(t *testing.T) {
	svc := NewSessionService("session-test-secret", 15*time.Minute, time.Hour)

	_, err := svc.ValidateToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionService_RefreshTokenRoundTrip(t *testing.T) {
	svc := NewSessionService("session-test-secret", 15*time.Minute, 7*24*time.Hour)

	refresh, err := svc.GenerateRefreshToken("acct-1")
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("acct-1"), claims.AccountID)
	assert.Empty(t, claims.Username)
}

package services

import (
	"testing"
	"time"

	"streamgate/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-playback-secret"

func newTestTokenService(ttl time.Duration) *tokenService {
	return &tokenService{
		secret: []byte(testSecret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := newTestTokenService(60 * time.Second)

	streamURL := "https://ex.com/live/chan.m3u8"
	token, err := svc.Issue(streamURL, "acct-1", "device-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	accountID, deviceID, err := svc.Verify(token, streamURL)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("acct-1"), accountID)
	assert.Equal(t, domain.DeviceID("device-1"), deviceID)
}

func TestTokenService_URLScoping(t *testing.T) {
	svc := newTestTokenService(60 * time.Second)

	token, err := svc.Issue("https://ex.com/live/chan-a.m3u8", "acct-1", "device-1")
	require.NoError(t, err)

	_, _, err = svc.Verify(token, "https://ex.com/live/chan-b.m3u8")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestTokenService_Expiry(t *testing.T) {
	issued := time.Now()
	svc := &tokenService{
		secret: []byte(testSecret),
		ttl:    60 * time.Second,
		now:    func() time.Time { return issued },
	}

	streamURL := "https://ex.com/live/chan.m3u8"
	token, err := svc.Issue(streamURL, "acct-1", "device-1")
	require.NoError(t, err)

	// Still valid just inside the window
	svc.now = func() time.Time { return issued.Add(59 * time.Second) }
	_, _, err = svc.Verify(token, streamURL)
	require.NoError(t, err)

	// Rejected once the 60s lifetime has passed
	svc.now = func() time.Time { return issued.Add(61 * time.Second) }
	_, _, err = svc.Verify(token, streamURL)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestTokenService_MalformedToken(t *testing.T) {
	svc := newTestTokenService(60 * time.Second)

	_, _, err := svc.Verify("not-a-token", "https://ex.com/live/chan.m3u8")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestTokenService_WrongSecret(t *testing.T) {
	issuer := newTestTokenService(60 * time.Second)
	verifier := &tokenService{
		secret: []byte("a-different-secret"),
		ttl:    60 * time.Second,
		now:    time.Now,
	}

	streamURL := "https://ex.com/live/chan.m3u8"
	token, err := issuer.Issue(streamURL, "acct-1", "device-1")
	require.NoError(t, err)

	_, _, err = verifier.Verify(token, streamURL)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

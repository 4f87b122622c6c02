package services

import (
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

// PlaybackClaims is the signed payload of a playback token. The token is
// scoped to exactly one stream URL so that a token issued for one channel
// cannot be replayed against another channel's manifest or segments.
type PlaybackClaims struct {
	URL       string           `json:"url"`
	AccountID domain.AccountID `json:"account_id"`
	DeviceID  domain.DeviceID  `json:"device_id"`
	jwt.RegisteredClaims
}

type tokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a playback token service. The secret is held by
// reference for the process lifetime and never leaves the service.
func NewTokenService(secret string, ttl time.Duration) ports.TokenService {
	return &tokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *tokenService) Issue(streamURL string, accountID domain.AccountID, deviceID domain.DeviceID) (string, error) {
	now := s.now()
	claims := &PlaybackClaims{
		URL:       streamURL,
		AccountID: accountID,
		DeviceID:  deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *tokenService) Verify(tokenString, requestedURL string) (domain.AccountID, domain.DeviceID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &PlaybackClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrTokenInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))

	// Expiry, bad signature and malformed tokens are deliberately not
	// distinguished; a caller probing for valid-but-misscoped tokens learns
	// nothing from the response.
	if err != nil || !token.Valid {
		return "", "", domain.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*PlaybackClaims)
	if !ok {
		return "", "", domain.ErrTokenInvalid
	}

	if claims.URL != requestedURL {
		return "", "", domain.ErrTokenInvalid
	}

	return claims.AccountID, claims.DeviceID, nil
}

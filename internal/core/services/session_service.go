package services

import (
	"errors"
	"time"

	"streamgate/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSession = errors.New("invalid session token")
	ErrExpiredSession = errors.New("session token expired")
)

// SessionService authenticates accounts for the gateway's own endpoints.
// Playback tokens are a separate, shorter-lived credential issued by the
// TokenService; session tokens only identify the account.
type SessionService interface {
	GenerateToken(accountID domain.AccountID, username string) (string, error)
	GenerateRefreshToken(accountID domain.AccountID) (string, error)
	ValidateToken(tokenString string) (*SessionClaims, error)
	ValidateRefreshToken(tokenString string) (*SessionClaims, error)
}

type SessionClaims struct {
	AccountID domain.AccountID `json:"account_id"`
	Username  string           `json:"username"`
	jwt.RegisteredClaims
}

type sessionService struct {
	jwtSecret       []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

func NewSessionService(jwtSecret string, accessTokenTTL, refreshTokenTTL time.Duration) SessionService {
	return &sessionService{
		jwtSecret:       []byte(jwtSecret),
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
	}
}

func (s *sessionService) GenerateToken(accountID domain.AccountID, username string) (string, error) {
	claims := &SessionClaims{
		AccountID: accountID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *sessionService) GenerateRefreshToken(accountID domain.AccountID) (string, error) {
	claims := &SessionClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.refreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *sessionService) ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSession
		}
		return nil, ErrInvalidSession
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidSession
}

func (s *sessionService) ValidateRefreshToken(tokenString string) (*SessionClaims, error) {
	return s.ValidateToken(tokenString)
}

package http

import (
	"net/http"
	"strings"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/services"
	"streamgate/pkg/errors"
	"streamgate/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthHandler struct {
	sessions       services.SessionService
	accessTokenTTL time.Duration
}

// accountNamespace seeds name-based account ids. It must never change:
// device bindings are keyed by account id, so a username has to map to
// the same account across logins or the device quota resets.
var accountNamespace = uuid.MustParse("8f1c9d52-7b3e-4a06-b1df-52e8c4a97310")

func accountIDFor(username string) domain.AccountID {
	return domain.AccountID(uuid.NewSHA1(accountNamespace, []byte(username)).String())
}

func NewAuthHandler(sessions services.SessionService, accessTokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		sessions:       sessions,
		accessTokenTTL: accessTokenTTL,
	}
}

func (h *AuthHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/auth")
	{
		api.POST("/login", h.Login)
		api.POST("/refresh", h.RefreshToken)
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required,max=2048"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := validation.ValidateUsername(req.Username); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	// Credential checks live in the subscriber service; the gateway only
	// maps the username onto its stable account id.
	accountID := accountIDFor(req.Username)

	accessToken, err := h.sessions.GenerateToken(accountID, req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	refreshToken, err := h.sessions.GenerateRefreshToken(accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account_id":    accountID,
		"username":      req.Username,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(h.accessTokenTTL / time.Second),
	})
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := h.sessions.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	accessToken, err := h.sessions.GenerateToken(claims.AccountID, claims.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"expires_in":   int(h.accessTokenTTL / time.Second),
	})
}

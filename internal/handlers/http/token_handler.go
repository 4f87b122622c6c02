package http

import (
	"net/http"
	"strings"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/internal/infrastructure/monitoring"
	"streamgate/pkg/errors"
	"streamgate/pkg/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenHandler issues playback tokens. The caller must hold a valid session;
// the token binds the requested stream URL to that account and one device.
type TokenHandler struct {
	tokens      ports.TokenService
	guard       ports.DeviceGuard
	geo         ports.GeoResolver
	blocked     map[string]struct{}
	tokenTTL    time.Duration
	deviceLimit int
	metrics     *monitoring.PrometheusCollector
	logger      *zap.SugaredLogger
}

func NewTokenHandler(
	tokens ports.TokenService,
	guard ports.DeviceGuard,
	geo ports.GeoResolver,
	blockedCountries []string,
	tokenTTL time.Duration,
	deviceLimit int,
	metrics *monitoring.PrometheusCollector,
	logger *zap.SugaredLogger,
) *TokenHandler {
	blocked := make(map[string]struct{}, len(blockedCountries))
	for _, cc := range blockedCountries {
		blocked[strings.ToUpper(strings.TrimSpace(cc))] = struct{}{}
	}

	return &TokenHandler{
		tokens:      tokens,
		guard:       guard,
		geo:         geo,
		blocked:     blocked,
		tokenTTL:    tokenTTL,
		deviceLimit: deviceLimit,
		metrics:     metrics,
		logger:      logger,
	}
}

func (h *TokenHandler) SetupRoutes(router *gin.Engine, requireAuth gin.HandlerFunc) {
	api := router.Group("/api/v1/playback")
	api.Use(requireAuth)
	{
		api.POST("/token", h.IssueToken)
	}
}

type IssueTokenRequest struct {
	URL        string `json:"url" binding:"required"`
	DeviceID   string `json:"device_id" binding:"required"`
	DeviceName string `json:"device_name"`
}

func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req IssueTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	if err := validation.ValidateStreamURL(req.URL); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateFingerprint(req.DeviceID); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateDeviceName(req.DeviceName); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	accountID := c.MustGet("account_id").(domain.AccountID)
	deviceID := domain.DeviceID(req.DeviceID)

	if country := h.geo.Country(c.ClientIP()); h.isBlocked(country) {
		h.logger.Warnw("playback blocked by region",
			"account_id", accountID,
			"country", country,
		)
		c.Error(errors.NewForbiddenError("playback is not available in your region"))
		return
	}

	if err := h.guard.Authorize(c.Request.Context(), accountID, deviceID, req.DeviceName); err != nil {
		if err == domain.ErrDeviceLimitReached {
			h.metrics.RecordDeviceLimitHit()
			c.Error(errors.NewDeviceLimitError(h.deviceLimit))
			return
		}
		c.Error(errors.NewInternalError("failed to register device"))
		return
	}

	token, err := h.tokens.Issue(req.URL, accountID, deviceID)
	if err != nil {
		c.Error(errors.NewInternalError("failed to issue playback token"))
		return
	}

	h.metrics.RecordTokenIssued()

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(h.tokenTTL / time.Second),
	})
}

func (h *TokenHandler) isBlocked(country string) bool {
	_, ok := h.blocked[strings.ToUpper(country)]
	return ok
}

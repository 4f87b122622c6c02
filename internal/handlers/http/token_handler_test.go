package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/services"
	"streamgate/internal/infrastructure/geo"
	"streamgate/internal/infrastructure/middleware"
	"streamgate/internal/infrastructure/repositories/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testFingerprint = "a1b2c3d4e5f60718a1b2c3d4e5f60718"

// fakeAuth injects an authenticated account the way AuthMiddleware would.
func fakeAuth(accountID domain.AccountID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("account_id", accountID)
		c.Set("username", "tester")
		c.Next()
	}
}

func newTokenRouter(t *testing.T, limit int, geoRanges, blocked []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.NewMemoryAccountRepository()
	handler := NewTokenHandler(
		services.NewTokenService("playback-test-secret", 60*time.Second),
		services.NewDeviceGuard(repo, limit),
		geo.NewStaticResolver(geoRanges),
		blocked,
		60*time.Second,
		limit,
		testMetrics,
		zap.NewNop().Sugar(),
	)

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	handler.SetupRoutes(router, fakeAuth("acct-1"))
	return router
}

func issueRequest(router *gin.Engine, body map[string]interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/playback/token", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.7:4242"
	router.ServeHTTP(w, req)
	return w
}

func TestTokenHandler_IssuesToken(t *testing.T) {
	router := newTokenRouter(t, 3, nil, nil)

	w := issueRequest(router, map[string]interface{}{
		"url":         "https://origin.example.com/live/chan.m3u8",
		"device_id":   testFingerprint,
		"device_name": "Living Room TV",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 60, resp.ExpiresIn)
}

func TestTokenHandler_RejectsInvalidURL(t *testing.T) {
	router := newTokenRouter(t, 3, nil, nil)

	w := issueRequest(router, map[string]interface{}{
		"url":       "ftp://origin.example.com/live/chan.m3u8",
		"device_id": testFingerprint,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_INPUT")
}

func TestTokenHandler_RejectsMalformedFingerprint(t *testing.T) {
	router := newTokenRouter(t, 3, nil, nil)

	w := issueRequest(router, map[string]interface{}{
		"url":       "https://origin.example.com/live/chan.m3u8",
		"device_id": "not hex!",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTokenHandler_DeviceLimitSurfacesAsForbidden(t *testing.T) {
	router := newTokenRouter(t, 2, nil, nil)

	fingerprints := []string{
		"11111111111111111111111111111111",
		"22222222222222222222222222222222",
	}
	for _, fp := range fingerprints {
		w := issueRequest(router, map[string]interface{}{
			"url":       "https://origin.example.com/live/chan.m3u8",
			"device_id": fp,
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := issueRequest(router, map[string]interface{}{
		"url":       "https://origin.example.com/live/chan.m3u8",
		"device_id": "33333333333333333333333333333333",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "DEVICE_LIMIT_REACHED")
}

func TestTokenHandler_KnownDeviceAllowedAtLimit(t *testing.T) {
	router := newTokenRouter(t, 1, nil, nil)

	for i := 0; i < 2; i++ {
		w := issueRequest(router, map[string]interface{}{
			"url":       "https://origin.example.com/live/chan.m3u8",
			"device_id": testFingerprint,
		})
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}
}

func TestTokenHandler_GeoBlockedRegion(t *testing.T) {
	router := newTokenRouter(t, 3,
		[]string{"198.51.100.0/24=XX"},
		[]string{"XX"},
	)

	w := issueRequest(router, map[string]interface{}{
		"url":       "https://origin.example.com/live/chan.m3u8",
		"device_id": testFingerprint,
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
}

func TestTokenHandler_UnresolvedCountryFailsOpen(t *testing.T) {
	// Blocklist is active but the client IP matches no range
	router := newTokenRouter(t, 3, nil, []string{"XX"})

	w := issueRequest(router, map[string]interface{}{
		"url":       "https://origin.example.com/live/chan.m3u8",
		"device_id": testFingerprint,
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

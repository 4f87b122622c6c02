package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/internal/infrastructure/middleware"
	"streamgate/internal/infrastructure/repositories/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDeviceRouter(t *testing.T) (*gin.Engine, ports.AccountRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.NewMemoryAccountRepository()
	handler := NewDeviceHandler(repo)

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	handler.SetupRoutes(router, fakeAuth("acct-1"))
	return router, repo
}

func TestDeviceHandler_ListEmpty(t *testing.T) {
	router, _ := newDeviceRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"devices":[]}`, w.Body.String())
}

func TestDeviceHandler_ListAndRemove(t *testing.T) {
	router, repo := newDeviceRouter(t)

	binding := domain.DeviceBinding{ID: "device-1", Name: "TV", LastUsedAt: time.Now().UTC()}
	require.NoError(t, repo.BindDevice(context.Background(), "acct-1", binding, 3))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Devices []domain.DeviceBinding `json:"devices"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Devices, 1)
	assert.Equal(t, domain.DeviceID("device-1"), resp.Devices[0].ID)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodDelete, "/api/v1/devices/device-1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	devices, err := repo.ListDevices(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestDeviceHandler_RemoveUnknownDevice(t *testing.T) {
	router, _ := newDeviceRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/v1/devices/ghost", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

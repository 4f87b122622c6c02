package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"streamgate/internal/core/services"
	"streamgate/internal/infrastructure/middleware"
	"streamgate/internal/infrastructure/upstream"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProbeRouter(t *testing.T, maxURLs int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fetcher := upstream.NewClient(upstream.Options{
		Timeout:         2 * time.Second,
		UserAgent:       "probe-test",
		MaxIdleConns:    10,
		MaxConnsPerHost: 10,
	})
	prober := services.NewHealthProber(fetcher, 10, 2*time.Second, nil)
	handler := NewProbeHandler(prober, maxURLs, testMetrics, zap.NewNop().Sugar())

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	handler.SetupRoutes(router, fakeAuth("acct-1"))
	return router
}

func probeRequest(router *gin.Engine, urls []string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(map[string]interface{}{"urls": urls})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/health/probe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestProbeHandler_ClassifiesStreams(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/dead" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer origin.Close()

	router := newProbeRouter(t, 100)

	w := probeRequest(router, []string{origin.URL + "/live", origin.URL + "/dead"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total   int `json:"total"`
		Online  int `json:"online"`
		Offline int `json:"offline"`
		Results []struct {
			URL    string `json:"url"`
			Status string `json:"status"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Online)
	assert.Equal(t, 1, resp.Offline)
}

func TestProbeHandler_EmptyListRejected(t *testing.T) {
	router := newProbeRouter(t, 100)

	w := probeRequest(router, []string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProbeHandler_TooManyURLsRejected(t *testing.T) {
	router := newProbeRouter(t, 2)

	urls := make([]string, 3)
	for i := range urls {
		urls[i] = fmt.Sprintf("http://origin.example.com/chan-%d.m3u8", i)
	}

	w := probeRequest(router, urls)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "too many urls")
}

func TestProbeHandler_InvalidURLRejected(t *testing.T) {
	router := newProbeRouter(t, 100)

	w := probeRequest(router, []string{"file:///etc/passwd"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

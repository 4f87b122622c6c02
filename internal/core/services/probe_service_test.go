package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/internal/infrastructure/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T) ports.UpstreamFetcher {
	t.Helper()
	return upstream.NewClient(upstream.Options{
		Timeout:         5 * time.Second,
		UserAgent:       "probe-test",
		MaxIdleConns:    10,
		MaxConnsPerHost: 10,
	})
}

func TestProbeService_BatchesAndProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	urls := make([]string, 45)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/stream/%d", server.URL, i)
	}

	prober := NewHealthProber(newTestFetcher(t), 20, 2*time.Second, nil)

	var progress []domain.ProbeProgress
	results := prober.ProbeAll(context.Background(), urls, func(p domain.ProbeProgress) {
		progress = append(progress, p)
	})

	count := 0
	for result := range results {
		assert.Equal(t, domain.ProbeOnline, result.Status)
		count++
	}

	assert.Equal(t, 45, count)
	require.Len(t, progress, 3)
	assert.Equal(t, domain.ProbeProgress{Checked: 20, Total: 45}, progress[0])
	assert.Equal(t, domain.ProbeProgress{Checked: 40, Total: 45}, progress[1])
	assert.Equal(t, domain.ProbeProgress{Checked: 45, Total: 45}, progress[2])
}

func TestProbeService_StatusClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/no-content":
			w.WriteHeader(http.StatusNoContent)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	prober := NewHealthProber(newTestFetcher(t), 10, 2*time.Second, nil)

	urls := []string{
		server.URL + "/ok",
		server.URL + "/no-content",
		server.URL + "/missing",
		server.URL + "/broken",
	}
	expected := map[string]domain.ProbeStatus{
		server.URL + "/ok":         domain.ProbeOnline,
		server.URL + "/no-content": domain.ProbeOnline,
		server.URL + "/missing":    domain.ProbeOffline,
		server.URL + "/broken":     domain.ProbeOffline,
	}

	for result := range prober.ProbeAll(context.Background(), urls, nil) {
		assert.Equal(t, expected[result.URL], result.Status, result.URL)
	}
}

func TestProbeService_TimeoutBecomesOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	prober := NewHealthProber(newTestFetcher(t), 10, 50*time.Millisecond, nil)

	results := prober.ProbeAll(context.Background(), []string{server.URL}, nil)

	result, ok := <-results
	require.True(t, ok)
	assert.Equal(t, domain.ProbeOffline, result.Status)

	_, ok = <-results
	assert.False(t, ok, "channel must close after the last result")
}

func TestProbeService_ConnectionRefusedBecomesOffline(t *testing.T) {
	prober := NewHealthProber(newTestFetcher(t), 10, 500*time.Millisecond, nil)

	results := prober.ProbeAll(context.Background(), []string{"http://127.0.0.1:1/stream.m3u8"}, nil)

	result := <-results
	assert.Equal(t, domain.ProbeOffline, result.Status)
}

func TestProbeService_DuplicatesProbedOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prober := NewHealthProber(newTestFetcher(t), 10, 2*time.Second, nil)

	urls := []string{server.URL, server.URL, server.URL}

	var progress []domain.ProbeProgress
	results := prober.ProbeAll(context.Background(), urls, func(p domain.ProbeProgress) {
		progress = append(progress, p)
	})

	count := 0
	for range results {
		count++
	}

	assert.Equal(t, 1, count)
	require.Len(t, progress, 1)
	assert.Equal(t, domain.ProbeProgress{Checked: 1, Total: 1}, progress[0])
}

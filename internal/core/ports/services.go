package ports

import (
	"context"
	"net/http"

	"streamgate/internal/core/domain"
)

// TokenService issues and verifies playback tokens bound to one stream URL,
// account and device.
type TokenService interface {
	Issue(streamURL string, accountID domain.AccountID, deviceID domain.DeviceID) (string, error)

	// Verify fails closed: signature failure, expiry and URL mismatch all
	// collapse into domain.ErrTokenInvalid so callers cannot tell which
	// sub-check failed.
	Verify(token, requestedURL string) (domain.AccountID, domain.DeviceID, error)
}

// DeviceGuard enforces the per-account device quota before a token may be
// issued for a device.
type DeviceGuard interface {
	Authorize(ctx context.Context, accountID domain.AccountID, deviceID domain.DeviceID, deviceName string) error
}

// UpstreamFetcher performs outbound requests to origin stream servers. Proxy
// fetches and health probes share one implementation so connection pooling
// limits apply to both.
type UpstreamFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*http.Response, error)
	Head(ctx context.Context, rawURL string) (*http.Response, error)
}

// HealthProber classifies stream URLs as online/offline in bounded-concurrency
// batches. The returned channel yields exactly one result per deduplicated
// input URL, in batch-completion order, and is closed when all batches finish.
// onProgress, if non-nil, is called after each batch.
type HealthProber interface {
	ProbeAll(ctx context.Context, urls []string, onProgress func(domain.ProbeProgress)) <-chan domain.ProbeResult
}

// GeoResolver maps a client IP to an ISO country code, "Unknown" when the
// lookup fails. Constructed once at startup and injected.
type GeoResolver interface {
	Country(ip string) string
}

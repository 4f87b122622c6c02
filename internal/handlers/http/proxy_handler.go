package http

import (
	"io"
	"net/http"
	"strings"
	"time"

	"streamgate/internal/core/ports"
	"streamgate/internal/core/services"
	"streamgate/internal/infrastructure/monitoring"
	"streamgate/pkg/errors"
	"streamgate/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProxyHandler relays manifests and media segments from origin servers.
// Every request must carry a playback token scoped to the exact URL it names.
type ProxyHandler struct {
	tokens   ports.TokenService
	fetcher  ports.UpstreamFetcher
	rewriter *services.ManifestRewriter
	metrics  *monitoring.PrometheusCollector
	logger   *zap.SugaredLogger

	proxyPath string
}

func NewProxyHandler(
	tokens ports.TokenService,
	fetcher ports.UpstreamFetcher,
	rewriter *services.ManifestRewriter,
	proxyPath string,
	metrics *monitoring.PrometheusCollector,
	logger *zap.SugaredLogger,
) *ProxyHandler {
	return &ProxyHandler{
		tokens:    tokens,
		fetcher:   fetcher,
		rewriter:  rewriter,
		metrics:   metrics,
		logger:    logger,
		proxyPath: proxyPath,
	}
}

func (h *ProxyHandler) SetupRoutes(router *gin.Engine) {
	router.GET(h.proxyPath, h.Proxy)
}

func (h *ProxyHandler) Proxy(c *gin.Context) {
	// Browser HLS players fetch cross-origin; every response needs the
	// CORS header, error responses included.
	c.Header("Access-Control-Allow-Origin", "*")

	streamURL := c.Query("url")
	token := c.Query("token")
	if streamURL == "" || token == "" {
		c.Error(errors.NewInvalidInputError("url and token query parameters are required"))
		return
	}

	// Verification is undifferentiated: expired, forged and mismatched tokens
	// all look the same to the caller.
	accountID, deviceID, err := h.tokens.Verify(token, streamURL)
	if err != nil {
		h.metrics.RecordTokenRejected("verify_failed")
		h.metrics.RecordProxyRequest(contentKind(streamURL, ""), "denied")
		c.Error(errors.NewUnauthorizedError("invalid playback token"))
		return
	}

	ctx, span := tracing.TraceUpstreamFetch(c.Request.Context(), streamURL)
	defer span.End()

	fetchStart := time.Now()
	resp, err := h.fetcher.Fetch(ctx, streamURL)
	if err != nil {
		tracing.RecordError(ctx, err)
		h.metrics.RecordProxyRequest(contentKind(streamURL, ""), "upstream_error")
		h.logger.Warnw("upstream fetch failed",
			"url", streamURL,
			"account_id", accountID,
			"device_id", deviceID,
			"error", err,
		)
		c.Error(errors.NewUpstreamError(err))
		return
	}
	defer resp.Body.Close()
	h.metrics.RecordUpstreamFetch(time.Since(fetchStart))

	contentType := resp.Header.Get("Content-Type")
	kind := contentKind(streamURL, contentType)

	// Origin error bodies pass through untouched even for playlist URLs;
	// running an error page through the rewriter would mangle it.
	if kind == "manifest" && outcomeFor(resp.StatusCode) == "ok" {
		h.serveManifest(c, resp, streamURL, token)
		return
	}
	h.serveSegment(c, resp, contentType, kind)
}

// serveManifest buffers the playlist, rewrites every reference through the
// proxy and serves it uncacheable so expiring tokens are refreshed per fetch.
func (h *ProxyHandler) serveManifest(c *gin.Context, resp *http.Response, streamURL, token string) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		h.metrics.RecordProxyRequest("manifest", "upstream_error")
		c.Error(errors.NewUpstreamError(err))
		return
	}

	rewriteStart := time.Now()
	rewritten := h.rewriter.Rewrite(string(body), streamURL, token)
	h.metrics.RecordManifestRewrite(time.Since(rewriteStart))

	h.metrics.RecordProxyRequest("manifest", outcomeFor(resp.StatusCode))
	h.metrics.RecordProxyBytes(int64(len(rewritten)))

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	// Upstream status passes through verbatim so players see origin errors
	c.Data(resp.StatusCode, "application/vnd.apple.mpegurl", []byte(rewritten))
}

// serveSegment streams the body through without buffering. It also relays
// origin error responses verbatim, whatever the URL pointed at.
func (h *ProxyHandler) serveSegment(c *gin.Context, resp *http.Response, contentType, kind string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if outcomeFor(resp.StatusCode) == "ok" {
		c.Header("Cache-Control", "public, max-age=5")
	}
	c.Header("Content-Type", contentType)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		c.Header("Content-Length", cl)
	}
	c.Status(resp.StatusCode)

	written, err := io.Copy(c.Writer, resp.Body)
	h.metrics.RecordProxyBytes(written)
	if err != nil {
		// Status already sent; nothing to do but log the broken transfer
		h.metrics.RecordProxyRequest(kind, "upstream_error")
		h.logger.Debugw("segment relay interrupted", "error", err)
		return
	}
	h.metrics.RecordProxyRequest(kind, outcomeFor(resp.StatusCode))
}

// contentKind classifies a proxied resource. The URL extension is checked
// first because probe HEAD responses and some origins omit the content type.
func contentKind(rawURL, contentType string) string {
	if strings.Contains(rawURL, ".m3u8") || strings.Contains(strings.ToLower(contentType), "mpegurl") {
		return "manifest"
	}
	return "segment"
}

func outcomeFor(status int) string {
	if status >= 200 && status < 400 {
		return "ok"
	}
	return "upstream_error"
}

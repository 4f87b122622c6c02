package http

import (
	"net/http"
	"sync"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/internal/infrastructure/monitoring"
	"streamgate/pkg/errors"
	"streamgate/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var probeUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ProbeHandler exposes batch stream health checks, as a blocking JSON call
// and as a WebSocket that streams per-batch progress for large playlists.
type ProbeHandler struct {
	prober  ports.HealthProber
	maxURLs int
	metrics *monitoring.PrometheusCollector
	logger  *zap.SugaredLogger
}

func NewProbeHandler(prober ports.HealthProber, maxURLs int, metrics *monitoring.PrometheusCollector, logger *zap.SugaredLogger) *ProbeHandler {
	return &ProbeHandler{
		prober:  prober,
		maxURLs: maxURLs,
		metrics: metrics,
		logger:  logger,
	}
}

func (h *ProbeHandler) SetupRoutes(router *gin.Engine, requireAuth gin.HandlerFunc) {
	api := router.Group("/api/v1/health")
	api.Use(requireAuth)
	{
		api.POST("/probe", h.Probe)
		api.GET("/probe/ws", h.ProbeWS)
	}
}

type ProbeRequest struct {
	URLs []string `json:"urls" binding:"required"`
}

type probeResultPayload struct {
	URL       string `json:"url"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
}

func (h *ProbeHandler) validateRequest(req *ProbeRequest) error {
	if len(req.URLs) == 0 {
		return errors.NewInvalidInputError("urls must not be empty")
	}
	if len(req.URLs) > h.maxURLs {
		return errors.NewInvalidInputError("too many urls in one probe request").
			WithContext("max_urls", h.maxURLs)
	}
	for _, u := range req.URLs {
		if err := validation.ValidateStreamURL(u); err != nil {
			return errors.NewInvalidInputError(err.Error())
		}
	}
	return nil
}

// Probe runs the whole check and answers once with every result.
func (h *ProbeHandler) Probe(c *gin.Context) {
	var req ProbeRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}
	if err := h.validateRequest(&req); err != nil {
		c.Error(err)
		return
	}

	h.metrics.ProbeRunStarted()
	start := time.Now()

	online := 0
	var results []probeResultPayload
	for result := range h.prober.ProbeAll(c.Request.Context(), req.URLs, nil) {
		h.metrics.RecordProbeResult(result)
		if result.Reachable() {
			online++
		}
		results = append(results, probeResultPayload{
			URL:       result.URL,
			Status:    string(result.Status),
			LatencyMs: result.LatencyMs,
		})
	}

	h.metrics.ProbeRunFinished(time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
		"online":  online,
		"offline": len(results) - online,
	})
}

// ProbeWS streams results and per-batch progress over a WebSocket. The client
// sends one request message and receives result, progress and done frames.
func (h *ProbeHandler) ProbeWS(c *gin.Context) {
	conn, err := probeUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var req ProbeRequest
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	if err := conn.ReadJSON(&req); err != nil {
		h.writeWSError(conn, "invalid request message")
		return
	}
	if err := h.validateRequest(&req); err != nil {
		h.writeWSError(conn, errors.GetAppError(err).Message)
		return
	}

	h.metrics.ProbeRunStarted()
	start := time.Now()

	// Progress frames come from the prober's goroutine; result frames from
	// this one. The mutex keeps concurrent writes off the connection.
	var writeMu sync.Mutex
	writeJSON := func(v interface{}) {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(v); err != nil {
			h.logger.Debugw("websocket write failed", "error", err)
		}
	}

	online := 0
	total := 0
	results := h.prober.ProbeAll(c.Request.Context(), req.URLs, func(p domain.ProbeProgress) {
		writeJSON(gin.H{
			"type":    "progress",
			"checked": p.Checked,
			"total":   p.Total,
		})
	})

	for result := range results {
		h.metrics.RecordProbeResult(result)
		total++
		if result.Reachable() {
			online++
		}
		writeJSON(gin.H{
			"type":       "result",
			"url":        result.URL,
			"status":     string(result.Status),
			"latency_ms": result.LatencyMs,
		})
	}

	h.metrics.ProbeRunFinished(time.Since(start))

	writeJSON(gin.H{
		"type":    "done",
		"total":   total,
		"online":  online,
		"offline": total - online,
	})
}

func (h *ProbeHandler) writeWSError(conn *websocket.Conn, message string) {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(gin.H{"type": "error", "message": message}); err != nil {
		h.logger.Debugw("websocket write failed", "error", err)
	}
}

package domain

// ProbeStatus classifies the liveness of a stream URL.
type ProbeStatus string

const (
	ProbeOnline  ProbeStatus = "online"
	ProbeOffline ProbeStatus = "offline"
)

// ProbeResult is the outcome of one liveness check. Results are transient;
// nothing in the gateway persists them.
type ProbeResult struct {
	URL       string      `json:"url"`
	Status    ProbeStatus `json:"status"`
	LatencyMs int64       `json:"latency_ms"`
}

// Reachable reports whether the probe classified the URL as online.
func (r ProbeResult) Reachable() bool {
	return r.Status == ProbeOnline
}

// ProbeProgress is emitted after each completed batch.
type ProbeProgress struct {
	Checked int `json:"checked"`
	Total   int `json:"total"`
}

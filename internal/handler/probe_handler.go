package handler

import (
	"context"
	"log"
	"net/http"
	"time"
)

// Pinger checks upstream reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ProbeHandler struct {
	upstream Pinger
	timeout  time.Duration
}

func NewProbeHandler(upstream Pinger, timeout time.Duration) *ProbeHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ProbeHandler{upstream: upstream, timeout: timeout}
}

// Live always answers ok while the process is up.
func (p *ProbeHandler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready answers ok only when the health database accepts a request.
func (p *ProbeHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()

	if err := p.upstream.Ping(ctx); err != nil {
		log.Printf("[gateway] readiness check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

package handlers

import (
	"net/http"
	"time"

	"github.com/skillforge/api/internal/platform/httpx"
)

var startTime = time.Now()

// BuildInfo identifies the running binary on the health endpoint.
type BuildInfo struct {
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	StartedAt string `json:"startedAt,omitempty"`
}

// HealthHandlers serves liveness and readiness probes. Readiness checks the
// local store directory is usable.
type HealthHandlers struct {
	ping  func() error
	build BuildInfo
}

// HealthOption customises the probe handlers.
type HealthOption func(*HealthHandlers)

// WithHealthBuildInfo attaches build metadata to the liveness payload.
func WithHealthBuildInfo(build BuildInfo) HealthOption {
	return func(h *HealthHandlers) { h.build = build }
}

// NewHealthHandlers constructs the probe handlers; ping may be nil.
func NewHealthHandlers(ping func() error, opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{ping: ping}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":    "ok",
		"uptime":    time.Since(startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.build != (BuildInfo{}) {
		payload["build"] = h.build
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

// Readyz reports whether the service can persist state.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(); err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("store_unavailable", "local store is not writable", http.StatusServiceUnavailable))
			return
		}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"status": "ready"})
}

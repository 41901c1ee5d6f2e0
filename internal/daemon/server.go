package daemon

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
	"git.home.luguber.info/inful/staticboot/internal/server/middleware"
	"git.home.luguber.info/inful/staticboot/internal/version"
)

// HealthStatus is the overall state reported by /health.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// LastBatch summarizes the most recent batch.
type LastBatch struct {
	BatchID string    `json:"batch_id"`
	Outcome string    `json:"outcome"`
	Summary string    `json:"summary"`
	EndedAt time.Time `json:"ended_at"`
	Error   string    `json:"error,omitempty"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status    HealthStatus `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Uptime    string       `json:"uptime"`
	Version   string       `json:"version"`
	Running   bool         `json:"running"`
	Batches   int          `json:"batches"`
	LastBatch *LastBatch   `json:"last_batch,omitempty"`
}

// Handler returns the admin mux: health and readiness probes, batch history,
// a build trigger and the metrics path when a metrics handler is configured.
func (d *Daemon) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", d.handleHealth)
	mux.HandleFunc("/healthz", d.handleHealth) // Kubernetes-style alias
	mux.HandleFunc("/ready", d.handleReadiness)
	mux.HandleFunc("/readyz", d.handleReadiness)
	mux.HandleFunc("/batches", d.handleBatches)
	mux.HandleFunc("/api/build/trigger", d.handleTrigger)
	if d.opts.Metrics != nil {
		mux.Handle(d.opts.MetricsPath, d.opts.Metrics)
	}
	return middleware.Chain(d.logger)(mux)
}

// Health reports the daemon state. A daemon whose last batch wrote nothing
// is unhealthy; one with a partial batch is degraded.
func (d *Daemon) Health() *HealthResponse {
	d.mu.RLock()
	defer d.mu.RUnlock()

	resp := &HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now(),
		Version:   version.Version,
		Running:   d.running,
		Batches:   d.batches,
	}
	if !d.started.IsZero() {
		resp.Uptime = time.Since(d.started).Truncate(time.Second).String()
	}
	if d.last != nil {
		lb := &LastBatch{
			BatchID: d.last.BatchID,
			Outcome: string(d.last.Label()),
			Summary: d.last.Summary(),
			EndedAt: d.last.End,
		}
		if d.lastErr != nil {
			lb.Error = d.lastErr.Error()
		}
		resp.LastBatch = lb
		failed := len(d.last.Failures())
		switch {
		case failed > 0 && failed == len(d.last.Pages):
			resp.Status = HealthStatusUnhealthy
		case failed > 0:
			resp.Status = HealthStatusDegraded
		}
	}
	return resp
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := d.Health()
	code := http.StatusOK
	if resp.Status == HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// handleReadiness reports ready once a batch has written at least one page.
func (d *Daemon) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	d.mu.RLock()
	ready := d.last != nil && len(d.last.Written()) > 0
	d.mu.RUnlock()
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready: no pages written yet"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (d *Daemon) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		middleware.WriteError(w, http.StatusMethodNotAllowed, ferrors.ValidationError("use POST to trigger a build").Build())
		return
	}
	d.Trigger("api")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

func (d *Daemon) handleBatches(w http.ResponseWriter, r *http.Request) {
	if d.opts.History == nil {
		middleware.WriteError(w, http.StatusNotFound, ferrors.ConfigError("history is disabled").Build())
		return
	}
	history := d.opts.History.GetHistory()
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n >= 0 && n < len(history) {
		history = history[:n]
	}
	writeJSON(w, http.StatusOK, history)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/squeezy/pkg/httpx"
)

const readyTimeout = 2 * time.Second

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status      string            `json:"status"`
	Uptime      string            `json:"uptime"`
	Version     string            `json:"version"`
	Connections int               `json:"connections"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// ReadyCheck is an extra dependency the readiness probe pings, e.g. Redis.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func (r *Router) health(status string, checks map[string]string) HealthResponse {
	resp := HealthResponse{
		Status:  status,
		Uptime:  time.Since(r.startTime).Round(time.Second).String(),
		Version: r.buildVersion,
		Checks:  checks,
	}
	if r.Hub != nil {
		resp.Connections = r.Hub.Clients()
	}
	return resp
}

// HandleLivez godoc
//
//	@Summary		Liveness probe
//	@Description	Always 200 while the process is serving. Reports uptime, build version and open websocket connections.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/livez [get].
func (r *Router) HandleLivez(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, r.health("ok", nil))
}

// HandleReadyz godoc
//
//	@Summary		Readiness probe
//	@Description	Pings the database and, when configured, Redis. Any failing check turns the response into 503.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/readyz [get].
func (r *Router) HandleReadyz(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
	defer cancel()

	checks := append([]ReadyCheck{{Name: "database", Check: r.store.Ping}}, r.ReadyChecks...)
	results := make(map[string]string, len(checks))
	status, code := "ok", http.StatusOK
	for _, c := range checks {
		if err := c.Check(ctx); err != nil {
			results[c.Name] = "error: " + err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		results[c.Name] = "ok"
	}

	httpx.WriteJSON(w, code, r.health(status, results))
}

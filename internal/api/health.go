package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

type healthResponse struct {
	Status   string  `json:"status"`
	Database string  `json:"database"`
	Uptime   string  `json:"uptime"`
	MemUsed  float64 `json:"mem_used_percent,omitempty"`
}

// healthz reports store reachability; host memory is informational only.
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Database: "ok",
		Uptime:   time.Since(s.started).Round(time.Second).String(),
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		resp.MemUsed = vm.UsedPercent
	}

	status := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("health check: database unreachable")
		resp.Status = "degraded"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

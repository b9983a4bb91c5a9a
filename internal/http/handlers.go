package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"networth/internal/core"
	"networth/internal/log"
	"networth/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the templates and that the ledger can be loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if _, err := s.dashboard.Ledger(ctx); err != nil {
		checks["ledger"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["ledger"] = "ok"
	}

	writeJSON(w, r, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes request and security counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	tm := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	sec := s.detector.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", tm.TotalRequests)
	metric("http_response_time_avg_microseconds", "gauge", "Average response time", tm.AverageResponseTime)
	metric("rate_limit_hits_total", "counter", "Reload requests rejected by the rate limiter", rl.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rl.ClientCount)
	metric("suspicious_requests_total", "counter", "Requests flagged as scanner traffic", sec.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Process uptime in seconds", int64(time.Since(s.started).Seconds()))
}

// render executes a page template. Pages are fully buffered so a template
// error still produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		log.LogError(r.Context(), "Templates not loaded", errors.New("no templates"), log.ComponentHTTP, log.OpRender)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.LogError(r.Context(), "Template execution failed", err, log.ComponentHTTP, log.OpRender)
		http.Error(w, "failed rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

type pageData struct {
	Title      string
	AssetTypes []core.AssetType
	Currency   string
	Error      string
	Data       any
}

func (s *Server) page(title string, data any) pageData {
	return pageData{Title: title, AssetTypes: core.AssetTypes(), Currency: s.currency, Data: data}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ov, err := s.dashboard.Overview(r.Context())
	p := s.page("Net Worth", ov)
	status := http.StatusOK
	if err != nil {
		p.Error = err.Error()
		status = errorStatus(err)
	}
	s.render(w, r, status, "index.html", p)
}

func (s *Server) handleAssetTypePage(w http.ResponseWriter, r *http.Request) {
	var view services.AssetTypeView
	t, err := assetTypePath(r)
	if err == nil {
		view, err = s.dashboard.AssetType(r.Context(), t)
	}
	p := s.page(string(t), view)
	status := http.StatusOK
	if err != nil {
		p.Title = "Unavailable"
		p.Error = err.Error()
		status = errorStatus(err)
	}
	s.render(w, r, status, "asset_type.html", p)
}

func (s *Server) handleVehiclesPage(w http.ResponseWriter, r *http.Request) {
	fleet, err := s.dashboard.Fleet(r.Context())
	p := s.page("Vehicles", fleet)
	status := http.StatusOK
	if err != nil {
		p.Error = err.Error()
		status = errorStatus(err)
	}
	s.render(w, r, status, "vehicles.html", p)
}

// handleUIReload is the htmx counterpart of POST /api/reload.
func (s *Server) handleUIReload(w http.ResponseWriter, r *http.Request) {
	res := s.dashboard.Reload(r.Context())
	msg := fmt.Sprintf("Reloaded, %d cached loads cleared", res.Cleared)
	if res.RefreshID != "" {
		msg += ", re-import requested"
	}
	newFragment(http.StatusOK, `<span class="success">`+msg+`</span>`).
		reloaded(res.Cleared).
		notice(noticeSuccess, msg).
		write(w)
}

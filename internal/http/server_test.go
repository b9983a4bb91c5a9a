package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"networth/internal/core"
	"networth/internal/middleware/ratelimit"
	"networth/internal/services"
	"networth/internal/sheets/memory"
	"networth/internal/vehicle"
)

type brokenSource struct{ err error }

func (b brokenSource) ReadLedger(context.Context) ([]core.Entry, error) {
	return nil, b.err
}

func (b brokenSource) ReadCashflows(context.Context) ([]core.Cashflow, error) {
	return nil, b.err
}

func (b brokenSource) ReadVehicles(context.Context) (vehicle.Dataset, error) {
	return vehicle.Dataset{}, b.err
}

func newDemoServer(t *testing.T, opts Options) *Server {
	t.Helper()
	entries, flows := memory.DemoLedger()
	store := memory.New(entries, flows, memory.DemoVehicles())
	srv := NewServer(":0", services.NewDashboard(store, services.Options{}), opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv := newDemoServer(t, Options{})

	rr := do(srv, http.MethodGet, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Total net worth", "Pensions", "Classification", "Vehicles", "£"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if strings.Contains(body, "Section unavailable") {
		t.Error("demo overview has an unavailable section")
	}

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/static/app.css", "/asset-types/cash", "/vehicles"} {
		if rr := do(srv, http.MethodGet, path); rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", path, rr.Code)
		}
	}
}

func TestAPIRoutes(t *testing.T) {
	srv := newDemoServer(t, Options{})

	tests := []struct {
		target string
		status int
		key    string
	}{
		{"/api/overview", http.StatusOK, "allocation"},
		{"/api/asset-types/investments", http.StatusOK, "platforms"},
		{"/api/asset-types/Crypto", http.StatusNotFound, "error"},
		{"/api/allocation", http.StatusOK, "history"},
		{"/api/performance", http.StatusOK, "rows"},
		{"/api/performance?type=pensions", http.StatusOK, "rows"},
		{"/api/performance?type=bogus", http.StatusNotFound, "error"},
		{"/api/risk", http.StatusOK, "summary"},
		{"/api/pensions", http.StatusOK, "total"},
		{"/api/classification", http.StatusOK, "holdings"},
		{"/api/vehicles", http.StatusOK, "summary"},
		{"/api/vehicles/1", http.StatusOK, "forecast"},
		{"/api/vehicles/99", http.StatusNotFound, "error"},
		{"/api/vehicles/abc", http.StatusNotFound, "error"},
		{"/api/nope", http.StatusNotFound, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := do(srv, http.MethodGet, tt.target)
			if rr.Code != tt.status {
				t.Fatalf("status=%d, want %d: %s", rr.Code, tt.status, rr.Body.String())
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var got map[string]any
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if _, ok := got[tt.key]; !ok {
				t.Errorf("response missing %q: %s", tt.key, rr.Body.String())
			}
		})
	}
}

func TestUpstreamFailure(t *testing.T) {
	src := brokenSource{err: errors.New("sheet unavailable")}
	srv := NewServer(":0", services.NewDashboard(src, services.Options{}), Options{})
	defer srv.Shutdown(context.Background())

	rr := do(srv, http.MethodGet, "/api/allocation")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("allocation status=%d, want 502", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "sheet unavailable") {
		t.Errorf("error body = %s", rr.Body.String())
	}

	rr = do(srv, http.MethodGet, "/api/overview")
	if rr.Code != http.StatusOK {
		t.Fatalf("overview status=%d, want 200", rr.Code)
	}
	var ov struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &ov); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ov.Errors) != 6 {
		t.Errorf("overview errors = %v, want every section", ov.Errors)
	}

	rr = do(srv, http.MethodGet, "/")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Section unavailable") {
		t.Errorf("index status=%d, want degraded page", rr.Code)
	}

	if rr := do(srv, http.MethodGet, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status=%d, want 503", rr.Code)
	}
}

func TestNoDataIsNotFound(t *testing.T) {
	src := brokenSource{err: core.ErrNoData}
	srv := NewServer(":0", services.NewDashboard(src, services.Options{}), Options{})
	defer srv.Shutdown(context.Background())

	for _, target := range []string{"/api/allocation", "/api/vehicles"} {
		if rr := do(srv, http.MethodGet, target); rr.Code != http.StatusNotFound {
			t.Errorf("%s status=%d, want 404", target, rr.Code)
		}
	}
}

func TestReloadIsRateLimited(t *testing.T) {
	srv := newDemoServer(t, Options{ReloadLimit: ratelimit.Config{Requests: 1}})

	rr := do(srv, http.MethodPost, "/api/reload")
	if rr.Code != http.StatusOK {
		t.Fatalf("first reload status=%d", rr.Code)
	}
	var res services.ReloadResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.RefreshID != "" {
		t.Errorf("RefreshID = %q without a refresher", res.RefreshID)
	}

	rr = do(srv, http.MethodPost, "/api/reload")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second reload status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	if rr := do(srv, http.MethodGet, "/api/reload"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET reload status=%d, want 405", rr.Code)
	}
}

func TestUIReload(t *testing.T) {
	srv := newDemoServer(t, Options{})
	if rr := do(srv, http.MethodGet, "/api/overview"); rr.Code != http.StatusOK {
		t.Fatalf("warm-up status=%d", rr.Code)
	}

	rr := do(srv, http.MethodPost, "/ui/reload")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"dashboard:reloaded"`) || !strings.Contains(trigger, `"cleared":3`) {
		t.Errorf("HX-Trigger = %s", trigger)
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	srv := newDemoServer(t, Options{CORSOrigins: []string{"https://dash.example"}})

	rr := do(srv, http.MethodGet, "/api/risk")
	for _, name := range []string{"Content-Security-Policy", "X-Request-ID"} {
		if rr.Header().Get(name) == "" {
			t.Errorf("missing %s", name)
		}
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/overview", nil)
	req.Header.Set("Origin", "https://dash.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrUnknownAssetType, http.StatusNotFound},
		{vehicle.ErrCarNotFound, http.StatusNotFound},
		{context.Canceled, http.StatusServiceUnavailable},
		{core.ErrNoData, http.StatusNotFound},
		{fmt.Errorf("load vehicles: %w", core.ErrNoData), http.StatusNotFound},
		{errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

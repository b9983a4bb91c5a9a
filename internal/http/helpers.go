package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"networth/internal/core"
	"networth/internal/log"
	"networth/internal/services"
	"networth/internal/vehicle"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to encode response", log.FieldError, err.Error())
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Error: msg})
}

// errorStatus maps a service error to a response code. Unknown asset types
// and cars are 404, as is a source that holds no data yet. Other upstream
// sheet failures are 502.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrUnknownAssetType), errors.Is(err, vehicle.ErrCarNotFound),
		errors.Is(err, core.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case services.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err and writes it as JSON with the mapped status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op)
	}
	writeError(w, r, status, err.Error())
}

// assetTypeParam reads an optional asset type from the "type" query
// parameter. Empty means the whole ledger.
func assetTypeParam(r *http.Request) (core.AssetType, error) {
	v := strings.TrimSpace(r.URL.Query().Get("type"))
	if v == "" {
		return "", nil
	}
	return core.ParseAssetType(v)
}

func assetTypePath(r *http.Request) (core.AssetType, error) {
	return core.ParseAssetType(chi.URLParam(r, "type"))
}

func carIDPath(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", vehicle.ErrCarNotFound, raw)
	}
	return id, nil
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": func(v float64) string { return core.FormatFloat(v, s.currency) },
		"decimal": func(d decimal.Decimal) string {
			return core.FormatMoney(d, s.currency)
		},
		"optMoney": func(o core.Opt) string {
			v, ok := o.Get()
			if !ok {
				return "N/A"
			}
			return core.FormatFloat(v, s.currency)
		},
		"pct":   core.FormatPct,
		"share": func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
		"rate":  func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
		"trend": func(o core.Opt) string {
			v, ok := o.Get()
			switch {
			case !ok:
				return "flat"
			case v > 0:
				return "up"
			case v < 0:
				return "down"
			default:
				return "flat"
			}
		},
		"lower": strings.ToLower,
	}
}

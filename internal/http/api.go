package http

import (
	"net/http"

	"networth/internal/metrics"
)

// handleOverview always answers 200; failed sections are listed in "errors".
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.dashboard.Overview(r.Context())
	if err != nil {
		s.fail(w, r, "overview", err)
		return
	}
	writeJSON(w, r, http.StatusOK, ov)
}

func (s *Server) handleAssetType(w http.ResponseWriter, r *http.Request) {
	t, err := assetTypePath(r)
	if err != nil {
		s.fail(w, r, "asset_type", err)
		return
	}
	view, err := s.dashboard.AssetType(r.Context(), t)
	if err != nil {
		s.fail(w, r, "asset_type", err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

type allocationResponse struct {
	metrics.Allocation
	History []metrics.MonthBreakdown `json:"history"`
}

func (s *Server) handleAllocation(w http.ResponseWriter, r *http.Request) {
	a, history, err := s.dashboard.Allocation(r.Context())
	if err != nil {
		s.fail(w, r, "allocation", err)
		return
	}
	writeJSON(w, r, http.StatusOK, allocationResponse{Allocation: a, History: history})
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	t, err := assetTypeParam(r)
	if err != nil {
		s.fail(w, r, "performance", err)
		return
	}
	rows, err := s.dashboard.Performance(r.Context(), t)
	if err != nil {
		s.fail(w, r, "performance", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"asset_type": t, "rows": rows})
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	t, err := assetTypeParam(r)
	if err != nil {
		s.fail(w, r, "risk", err)
		return
	}
	profile, err := s.dashboard.Risk(r.Context(), t)
	if err != nil {
		s.fail(w, r, "risk", err)
		return
	}
	writeJSON(w, r, http.StatusOK, profile)
}

func (s *Server) handlePensions(w http.ResponseWriter, r *http.Request) {
	p, err := s.dashboard.Pensions(r.Context())
	if err != nil {
		s.fail(w, r, "pensions", err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleClassification(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard.Classification(r.Context())
	if err != nil {
		s.fail(w, r, "classification", err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	fleet, err := s.dashboard.Fleet(r.Context())
	if err != nil {
		s.fail(w, r, "vehicles", err)
		return
	}
	writeJSON(w, r, http.StatusOK, fleet)
}

func (s *Server) handleVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := carIDPath(r)
	if err != nil {
		s.fail(w, r, "vehicle", err)
		return
	}
	car, err := s.dashboard.Car(r.Context(), id)
	if err != nil {
		s.fail(w, r, "vehicle", err)
		return
	}
	writeJSON(w, r, http.StatusOK, car)
}

// handleReload clears the memoized loads; the next request reads the source again.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.dashboard.Reload(r.Context()))
}

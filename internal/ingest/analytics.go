package ingest

import (
	"encoding/json"
	"net/http"

	"recital/internal/analytics"
)

// analyticsEnvelope wraps every analytics response so clients can branch on
// success before reading the report.
type analyticsEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func (s *Server) decodeAnalyticsRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleAnalyzeLabs(w http.ResponseWriter, r *http.Request) {
	var req analytics.PanelRequest
	if !s.decodeAnalyticsRequest(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, analyticsEnvelope{Success: true, Data: analytics.AnalyzeLabs(req)})
}

func (s *Server) handleDetectOutliers(w http.ResponseWriter, r *http.Request) {
	var req analytics.PanelRequest
	if !s.decodeAnalyticsRequest(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, analyticsEnvelope{Success: true, Data: analytics.DetectOutliers(req.LabValues)})
}

func (s *Server) handleRiskAssessment(w http.ResponseWriter, r *http.Request) {
	var req analytics.PanelRequest
	if !s.decodeAnalyticsRequest(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, analyticsEnvelope{Success: true, Data: analytics.AssessRisk(req)})
}

func (s *Server) handleBiomarkerTrends(w http.ResponseWriter, r *http.Request) {
	var req analytics.TrendRequest
	if !s.decodeAnalyticsRequest(w, r, &req) {
		return
	}
	analysis, err := analytics.AnalyzeTrend(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, analyticsEnvelope{Success: true, Data: analysis})
}

func (s *Server) handleGenerateInsights(w http.ResponseWriter, r *http.Request) {
	var req analytics.PanelRequest
	if !s.decodeAnalyticsRequest(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, analyticsEnvelope{Success: true, Data: analytics.GenerateInsights(req)})
}

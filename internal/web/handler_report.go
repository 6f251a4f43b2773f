package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/applicheck/internal/domain"
)

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	headers, err := s.reports.List(r.Context(), identity(r), r.URL.Query().Get("appliance"))
	if err != nil {
		s.writeError(w, r, "list reports", err)
		return
	}
	if headers == nil {
		headers = []*domain.ReportHeader{}
	}
	writeJSON(w, http.StatusOK, headers)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.Get(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, "get report", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	rep, data, err := s.reports.PDF(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, "render report", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, reportFilename(rep)))
	if _, err := w.Write(data); err != nil {
		s.log(r).Error("write report failed", "report_id", rep.ID, "error", err)
	}
}

func reportFilename(rep *domain.Report) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '-'
	}, rep.ApplianceName)
	date := rep.Date
	if len(date) >= 10 {
		date = date[:10]
	}
	return fmt.Sprintf("check-%s-%s.pdf", name, date)
}

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/JPallas22/techgym/internal/metrics"
	"github.com/JPallas22/techgym/internal/models"
	"github.com/JPallas22/techgym/internal/report"
)

// handleReport returns the booking report filtered by any combination of
// weekday, time and age group. With format=xlsx the result is a workbook
// download instead of JSON.
func (s *HTTPServer) handleReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("report")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	filter := models.ReportFilter{
		Weekday:  q.Get("weekday"),
		Time:     q.Get("time"),
		AgeGroup: q.Get("age_group"),
	}
	if filter.Weekday != "" {
		if _, err := models.ParseWeekday(filter.Weekday); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	details, err := s.db.ListBookingsReport(r.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build booking report")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if q.Get("format") == "xlsx" {
		filename := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("2006-01-02"))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		if err := report.WriteBookings(details, w); err != nil {
			s.logger.Error().Err(err).Msg("Failed to render booking workbook")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(details),
		"bookings": details,
	})
}

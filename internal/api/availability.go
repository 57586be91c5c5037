package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/JPallas22/techgym/internal/metrics"
)

type availableDaysResponse struct {
	Year  int      `json:"year"`
	Month int      `json:"month"`
	Days  []string `json:"days"`
}

func (s *HTTPServer) handleAvailableDays(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("available_days")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	now := time.Now()
	year, month := now.Year(), int(now.Month())

	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1970 || n > 9999 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = n
	}
	if v := r.URL.Query().Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = n
	}

	if s.cache != nil {
		if payload, ok := s.cache.Get(r.Context(), year, month); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(payload)
			return
		}
	}

	resp := availableDaysResponse{
		Year:  year,
		Month: month,
		Days:  s.calendar.BookableDaysInMonth(year, month),
	}

	if s.cache != nil {
		if payload, err := json.Marshal(resp); err == nil {
			s.cache.Set(r.Context(), year, month, payload)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

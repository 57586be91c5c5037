package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JPallas22/techgym/internal/events"
	"github.com/JPallas22/techgym/internal/holidays"
	"github.com/JPallas22/techgym/internal/metrics"
)

type holidayRequest struct {
	Date string `json:"date"`
}

func (s *HTTPServer) handleHolidays(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("holidays")

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string][]string{"holidays": s.calendar.List()})

	case http.MethodPost:
		var req holidayRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil || req.Date == "" {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.calendar.Add(req.Date); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		metrics.IncHolidayMutation("add")
		s.publishCalendarUpdated()
		writeJSON(w, http.StatusCreated, map[string]string{"status": "added", "date": req.Date})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleHolidayByDate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("holidays")

	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := strings.TrimPrefix(r.URL.Path, "/api/holidays/")
	if date == "" {
		writeError(w, http.StatusBadRequest, "missing date")
		return
	}

	if err := s.calendar.Remove(date); err != nil {
		if errors.Is(err, holidays.ErrNotFound) {
			writeError(w, http.StatusNotFound, "date is not a holiday")
			return
		}
		s.logger.Error().Err(err).Str("date", date).Msg("Failed to remove holiday")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	metrics.IncHolidayMutation("remove")
	s.publishCalendarUpdated()
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed", "date": date})
}

func (s *HTTPServer) publishCalendarUpdated() {
	if s.bus != nil {
		_ = s.bus.PublishJSON(events.TypeCalendarUpdated, map[string][]string{"holidays": s.calendar.List()})
	}
}

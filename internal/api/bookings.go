package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/JPallas22/techgym/internal/admission"
	"github.com/JPallas22/techgym/internal/database"
	"github.com/JPallas22/techgym/internal/events"
	"github.com/JPallas22/techgym/internal/metrics"
)

type bookingRequest struct {
	StudentID int64  `json:"student_id"`
	Weekday   string `json:"weekday"`
	Time      string `json:"time"`
	AgeGroup  string `json:"age_group"`
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req bookingRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	booking, err := s.engine.Evaluate(r.Context(), admission.Request{
		StudentID: req.StudentID,
		Weekday:   req.Weekday,
		Time:      req.Time,
		AgeGroup:  req.AgeGroup,
	})
	if err != nil {
		var rerr *admission.RuleError
		if errors.As(err, &rerr) {
			writeJSON(w, ruleStatus(rerr), map[string]string{
				"error":  rerr.Message,
				"reason": rerr.Reason,
			})
			return
		}
		s.logger.Error().Err(err).Msg("Booking evaluation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

// ruleStatus maps an admission rejection to an HTTP status.
func ruleStatus(rerr *admission.RuleError) int {
	switch {
	case errors.Is(rerr, admission.ErrIncompleteRequest):
		return http.StatusBadRequest
	case errors.Is(rerr, admission.ErrStudentNotFound):
		return http.StatusNotFound
	case errors.Is(rerr, admission.ErrAlreadyBooked):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings")

	idStr := strings.TrimPrefix(r.URL.Path, "/api/bookings/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		booking, err := s.db.GetBooking(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "booking not found")
				return
			}
			s.logger.Error().Err(err).Int64("booking_id", id).Msg("Failed to load booking")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, booking)

	case http.MethodDelete:
		if err := s.db.DeleteBooking(r.Context(), id); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "booking not found")
				return
			}
			s.logger.Error().Err(err).Int64("booking_id", id).Msg("Failed to delete booking")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		metrics.IncBookingDeleted()
		if s.bus != nil {
			_ = s.bus.PublishJSON(events.TypeBookingDeleted, map[string]int64{"booking_id": id})
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

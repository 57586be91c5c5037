package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JPallas22/techgym/internal/database"
	"github.com/JPallas22/techgym/internal/events"
	"github.com/JPallas22/techgym/internal/metrics"
	"github.com/JPallas22/techgym/internal/models"
)

type slotRequest struct {
	Weekday  string `json:"weekday"`
	Time     string `json:"time"`
	AgeGroup string `json:"age_group"`
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var (
		slots []models.Slot
		err   error
	)
	if ageGroup := r.URL.Query().Get("age_group"); ageGroup != "" {
		slots, err = s.db.ListSlotsByAgeGroup(r.Context(), ageGroup)
	} else {
		slots, err = s.db.ListSlots(r.Context())
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list slots")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.Slot{"slots": slots})
}

// handleSlotGrid returns the configured weekly timetable, not the slots that
// happen to exist in the database.
func (s *HTTPServer) handleSlotGrid(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]map[string][]string{"grid": s.grid})
}

func (s *HTTPServer) handleSlotByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")

	idStr := strings.TrimPrefix(r.URL.Path, "/api/slots/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid slot id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		slot, err := s.db.GetSlot(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "slot not found")
				return
			}
			s.logger.Error().Err(err).Int64("slot_id", id).Msg("Failed to load slot")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, slot)

	case http.MethodPut:
		s.updateSlot(w, r, id)

	case http.MethodDelete:
		removed, err := s.db.DeleteSlot(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "slot not found")
				return
			}
			s.logger.Error().Err(err).Int64("slot_id", id).Msg("Failed to delete slot")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if s.bus != nil {
			_ = s.bus.PublishJSON(events.TypeSlotDeleted, map[string]any{
				"slot_id":          id,
				"removed_bookings": removed,
			})
		}
		if removed == nil {
			removed = []int64{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":           "deleted",
			"removed_bookings": removed,
		})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) updateSlot(w http.ResponseWriter, r *http.Request, id int64) {
	var req slotRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	weekday, err := models.ParseWeekday(req.Weekday)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		writeError(w, http.StatusBadRequest, "invalid time, expected HH:MM")
		return
	}
	if req.AgeGroup == "" {
		writeError(w, http.StatusBadRequest, "age group is required")
		return
	}

	if err := s.db.UpdateSlot(r.Context(), id, weekday, req.Time, req.AgeGroup); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "slot not found")
			return
		}
		s.logger.Error().Err(err).Int64("slot_id", id).Msg("Failed to update slot")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/JPallas22/techgym/internal/database"
	"github.com/JPallas22/techgym/internal/metrics"
	"github.com/JPallas22/techgym/internal/models"
)

func (s *HTTPServer) handleStudents(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("students")

	switch r.Method {
	case http.MethodGet:
		if enrollment := r.URL.Query().Get("enrollment"); enrollment != "" {
			student, err := s.db.GetStudentByEnrollment(r.Context(), enrollment)
			if err != nil {
				if errors.Is(err, database.ErrNotFound) {
					writeError(w, http.StatusNotFound, "student not found")
					return
				}
				s.logger.Error().Err(err).Msg("Failed to look up student by enrollment")
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			writeJSON(w, http.StatusOK, student)
			return
		}

		students, err := s.db.ListStudents(r.Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to list students")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string][]models.Student{"students": students})

	case http.MethodPost:
		var student models.Student
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&student); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if student.Name == "" || student.Number == "" {
			writeError(w, http.StatusBadRequest, "name and number are required")
			return
		}
		if err := s.db.CreateStudent(r.Context(), &student); err != nil {
			if errors.Is(err, database.ErrDuplicateNumber) {
				writeError(w, http.StatusConflict, "student number already registered")
				return
			}
			s.logger.Error().Err(err).Msg("Failed to create student")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, student)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleStudentByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("students")

	rest := strings.TrimPrefix(r.URL.Path, "/api/students/")
	idStr, sub, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid student id")
		return
	}

	if sub == "bookings" {
		s.handleStudentBookings(w, r, id)
		return
	}
	if sub != "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		student, err := s.db.GetStudent(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "student not found")
				return
			}
			s.logger.Error().Err(err).Int64("student_id", id).Msg("Failed to load student")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, student)

	case http.MethodPut:
		var student models.Student
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&student); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		student.ID = id
		if err := s.db.UpdateStudent(r.Context(), &student); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "student not found")
				return
			}
			s.logger.Error().Err(err).Int64("student_id", id).Msg("Failed to update student")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})

	case http.MethodDelete:
		if err := s.db.DeleteStudent(r.Context(), id); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "student not found")
				return
			}
			s.logger.Error().Err(err).Int64("student_id", id).Msg("Failed to delete student")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleStudentBookings(w http.ResponseWriter, r *http.Request, studentID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	bookings, err := s.db.ListBookingsByStudent(r.Context(), studentID)
	if err != nil {
		s.logger.Error().Err(err).Int64("student_id", studentID).Msg("Failed to list bookings")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.BookingDetail{"bookings": bookings})
}

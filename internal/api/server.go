// Package api exposes the booking core over a JSON HTTP API. It is the
// inbound boundary: authentication, rendering and form handling live outside.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/JPallas22/techgym/internal/admission"
	"github.com/JPallas22/techgym/internal/database"
	"github.com/JPallas22/techgym/internal/events"
	"github.com/JPallas22/techgym/internal/holidays"
)

// HTTPServer holds the handlers' dependencies.
type HTTPServer struct {
	db       *database.DB
	engine   *admission.Engine
	calendar *holidays.Calendar
	cache    *AvailabilityCache // nil disables caching
	bus      *events.EventBus
	grid     map[string][]string
	limiter  *clientLimiter
	logger   *zerolog.Logger
}

// NewHTTPServer wires the API. When cache is non-nil its entries are dropped
// whenever the holiday calendar changes.
func NewHTTPServer(
	db *database.DB,
	engine *admission.Engine,
	calendar *holidays.Calendar,
	cache *AvailabilityCache,
	bus *events.EventBus,
	grid map[string][]string,
	limiter *clientLimiter,
	logger *zerolog.Logger,
) *HTTPServer {
	s := &HTTPServer{
		db:       db,
		engine:   engine,
		calendar: calendar,
		cache:    cache,
		bus:      bus,
		grid:     grid,
		limiter:  limiter,
		logger:   logger,
	}

	if cache != nil && bus != nil {
		bus.Subscribe(events.TypeCalendarUpdated, func(events.Event) error {
			cache.Invalidate(context.Background())
			return nil
		})
	}

	return s
}

// Routes builds the request mux.
func (s *HTTPServer) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/bookings", s.withRateLimit(s.handleBookings))
	mux.HandleFunc("/api/bookings/", s.handleBookingByID)
	mux.HandleFunc("/api/available-days", s.handleAvailableDays)
	mux.HandleFunc("/api/holidays", s.handleHolidays)
	mux.HandleFunc("/api/holidays/", s.handleHolidayByDate)
	mux.HandleFunc("/api/slots", s.handleSlots)
	mux.HandleFunc("/api/slots/grid", s.handleSlotGrid)
	mux.HandleFunc("/api/slots/", s.handleSlotByID)
	mux.HandleFunc("/api/students", s.handleStudents)
	mux.HandleFunc("/api/students/", s.handleStudentByID)
	mux.HandleFunc("/api/report", s.handleReport)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Package admission decides whether a requested weekly class slot may be
// booked. It combines the current moment, the target weekday and the academy's
// policy constants, then delegates slot resolution and the duplicate check to
// the store.
package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/JPallas22/techgym/internal/clock"
	"github.com/JPallas22/techgym/internal/database"
	"github.com/JPallas22/techgym/internal/events"
	"github.com/JPallas22/techgym/internal/metrics"
	"github.com/JPallas22/techgym/internal/models"
)

// Rejection sentinels. Every rule failure is a value, never a panic; compare
// with errors.Is.
var (
	ErrIncompleteRequest    = errors.New("incomplete booking request")
	ErrCutoffExceeded       = errors.New("same-day booking cutoff exceeded")
	ErrSaturdayWindowClosed = errors.New("saturday booking window closed")
	ErrSundayExcluded       = errors.New("no classes on sunday")
	ErrTimeNotInGrid        = errors.New("time not offered on this weekday")
	ErrAlreadyBooked        = errors.New("student already booked this slot")
	ErrStudentNotFound      = errors.New("student not found")
)

// RuleError is a business-rule rejection with enough context to explain the
// rule to the student.
type RuleError struct {
	Reason  string // machine-readable code for the API layer
	Message string
	err     error
}

func (e *RuleError) Error() string { return e.Message }
func (e *RuleError) Unwrap() error { return e.err }

func reject(reason string, sentinel error, format string, args ...any) *RuleError {
	return &RuleError{Reason: reason, Message: fmt.Sprintf(format, args...), err: sentinel}
}

// Policy holds the admission rule constants. It is built once from config and
// never mutated; tests construct their own to vary the rules.
type Policy struct {
	// CutoffHour is the last hour (exclusive) at which a same-day booking
	// for a Monday-Friday slot is accepted.
	CutoffHour int
	// Saturday slots may only be booked on Friday within
	// [SaturdayOpenHour, SaturdayCloseHour).
	SaturdayOpenHour  int
	SaturdayCloseHour int
	// EnforceGrid rejects times missing from the weekday's grid instead of
	// trusting the caller to offer only valid combinations.
	EnforceGrid bool
	// TimeGrid maps weekday labels to their bookable class times.
	TimeGrid map[string][]string
}

// DefaultPolicy matches the academy's standing rules.
func DefaultPolicy() Policy {
	return Policy{
		CutoffHour:        14,
		SaturdayOpenHour:  16,
		SaturdayCloseHour: 20,
	}
}

// allowsTime reports whether the weekday's grid offers the time. An absent
// grid for the weekday means nothing is offered.
func (p Policy) allowsTime(weekday models.Weekday, timeOfDay string) bool {
	for _, t := range p.TimeGrid[weekday.String()] {
		if t == timeOfDay {
			return true
		}
	}
	return false
}

// SlotCatalog resolves slot triples to slot records, creating on first use.
type SlotCatalog interface {
	ResolveSlot(ctx context.Context, weekday models.Weekday, timeOfDay, ageGroup string) (*models.Slot, error)
}

// BookingLedger inserts bookings, enforcing one per (student, slot) pair.
type BookingLedger interface {
	TryInsertBooking(ctx context.Context, studentID, slotID int64) (*models.Booking, error)
}

// StudentDirectory is the read-only view of enrolled students.
type StudentDirectory interface {
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
}

// Request is a booking attempt as it arrives from the outer layer. Empty
// strings mean the field was not supplied.
type Request struct {
	StudentID int64
	Weekday   string
	Time      string
	AgeGroup  string
}

// Engine applies the admission rules.
type Engine struct {
	catalog  SlotCatalog
	ledger   BookingLedger
	students StudentDirectory
	policy   Policy
	clock    clock.Clock
	bus      *events.EventBus
	logger   *zerolog.Logger
}

func NewEngine(
	catalog SlotCatalog,
	ledger BookingLedger,
	students StudentDirectory,
	policy Policy,
	clk clock.Clock,
	bus *events.EventBus,
	logger *zerolog.Logger,
) *Engine {
	if clk == nil {
		clk = clock.System()
	}
	return &Engine{
		catalog:  catalog,
		ledger:   ledger,
		students: students,
		policy:   policy,
		clock:    clk,
		bus:      bus,
		logger:   logger,
	}
}

// Evaluate runs the admission rules in order, short-circuiting on the first
// failure, then resolves the slot and inserts the booking.
//
// The temporal rules are checked against "now", not against a target date: a
// slot is a standing weekly recurrence and the cutoff is about staff lead
// time relative to the current moment.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*models.Booking, error) {
	if req.Weekday == "" || req.Time == "" || req.AgeGroup == "" {
		return nil, e.rejected(reject("incomplete_request", ErrIncompleteRequest,
			"weekday, time and age group are all required"))
	}

	weekday, err := models.ParseWeekday(req.Weekday)
	if err != nil {
		return nil, e.rejected(reject("incomplete_request", ErrIncompleteRequest,
			"unknown weekday %q", req.Weekday))
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		return nil, e.rejected(reject("incomplete_request", ErrIncompleteRequest,
			"invalid time %q, expected HH:MM", req.Time))
	}

	// The academy holds no classes on Sundays.
	if weekday == models.Sunday {
		return nil, e.rejected(reject("sunday_excluded", ErrSundayExcluded,
			"there are no classes on Sunday"))
	}

	if _, err := e.students.GetStudent(ctx, req.StudentID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, e.rejected(reject("student_not_found", ErrStudentNotFound,
				"student %d is not enrolled", req.StudentID))
		}
		return nil, fmt.Errorf("look up student %d: %w", req.StudentID, err)
	}

	if e.policy.EnforceGrid && !e.policy.allowsTime(weekday, req.Time) {
		return nil, e.rejected(reject("time_not_in_grid", ErrTimeNotInGrid,
			"%s has no class at %s", weekday, req.Time))
	}

	now := e.clock.Now()
	today := models.WeekdayOf(now)

	// Same-day cutoff: Monday-Friday slots booked on their own weekday must
	// leave the staff lead time. Saturday is governed by its own window.
	if weekday == today && weekday != models.Saturday && now.Hour() >= e.policy.CutoffHour {
		return nil, e.rejected(reject("cutoff_exceeded", ErrCutoffExceeded,
			"same-day bookings close at %02d:00", e.policy.CutoffHour))
	}

	// Saturday slots are only bookable on the preceding Friday afternoon.
	if weekday == models.Saturday {
		open := today == models.Friday &&
			now.Hour() >= e.policy.SaturdayOpenHour &&
			now.Hour() < e.policy.SaturdayCloseHour
		if !open {
			return nil, e.rejected(reject("saturday_window_closed", ErrSaturdayWindowClosed,
				"saturday classes are booked on Friday between %02d:00 and %02d:00",
				e.policy.SaturdayOpenHour, e.policy.SaturdayCloseHour))
		}
	}

	slot, err := e.catalog.ResolveSlot(ctx, weekday, req.Time, req.AgeGroup)
	if err != nil {
		return nil, fmt.Errorf("resolve slot: %w", err)
	}

	booking, err := e.ledger.TryInsertBooking(ctx, req.StudentID, slot.ID)
	if err != nil {
		if errors.Is(err, database.ErrAlreadyBooked) {
			return nil, e.rejected(reject("already_booked", ErrAlreadyBooked,
				"student %d already holds a booking for %s %s", req.StudentID, weekday, req.Time))
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	metrics.IncAdmission("accepted")
	if e.bus != nil {
		_ = e.bus.PublishJSON(events.TypeBookingCreated, booking)
	}
	if e.logger != nil {
		e.logger.Info().
			Int64("student_id", req.StudentID).
			Int64("slot_id", slot.ID).
			Str("weekday", weekday.String()).
			Str("time", req.Time).
			Msg("Booking created")
	}
	return booking, nil
}

func (e *Engine) rejected(rerr *RuleError) error {
	metrics.IncAdmission(rerr.Reason)
	if e.logger != nil {
		e.logger.Debug().Str("reason", rerr.Reason).Msg("Booking rejected")
	}
	return rerr
}

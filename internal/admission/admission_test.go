package admission

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JPallas22/techgym/internal/clock"
	"github.com/JPallas22/techgym/internal/config"
	"github.com/JPallas22/techgym/internal/database"
	"github.com/JPallas22/techgym/internal/models"
)

// Reference week: Monday 2026-08-24 through Saturday 2026-08-29.
func at(day int, hour, min int) time.Time {
	return time.Date(2026, time.August, day, hour, min, 0, 0, time.Local)
}

type testEnv struct {
	db      *database.DB
	student *models.Student
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	student := &models.Student{Name: "Ana Souza", Number: "1001", Age: 27, AgeGroup: "Adulto"}
	require.NoError(t, db.CreateStudent(context.Background(), student))

	return &testEnv{db: db, student: student}
}

func (env *testEnv) engine(now time.Time, policy Policy) *Engine {
	logger := zerolog.New(io.Discard)
	return NewEngine(env.db, env.db, env.db, policy, clock.Fixed(now), nil, &logger)
}

func TestEvaluate_SameDayCutoff(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		now     time.Time
		weekday string
		wantErr error
	}{
		{"monday before cutoff", at(24, 13, 59), "Segunda", nil},
		{"monday at cutoff", at(24, 14, 0), "Segunda", ErrCutoffExceeded},
		{"monday after cutoff", at(24, 20, 0), "Segunda", ErrCutoffExceeded},
		{"tuesday booked monday evening", at(24, 20, 0), "Terça", nil},
		{"friday on friday before cutoff", at(28, 13, 59), "Sexta", nil},
		{"friday on friday at cutoff", at(28, 14, 0), "Sexta", ErrCutoffExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := env.engine(tt.now, DefaultPolicy())
			booking, err := engine.Evaluate(context.Background(), Request{
				StudentID: env.student.ID,
				Weekday:   tt.weekday,
				Time:      "19:00",
				AgeGroup:  "Adulto",
			})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, booking)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, booking)
			assert.NotEmpty(t, booking.Ref)
			require.NoError(t, env.db.DeleteBooking(context.Background(), booking.ID))
		})
	}
}

func TestEvaluate_SaturdayWindow(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		now     time.Time
		wantErr error
	}{
		{"friday before window", at(28, 15, 59), ErrSaturdayWindowClosed},
		{"friday at open", at(28, 16, 0), nil},
		{"friday mid window", at(28, 18, 30), nil},
		{"friday last minute", at(28, 19, 59), nil},
		{"friday at close", at(28, 20, 0), ErrSaturdayWindowClosed},
		{"monday", at(24, 17, 0), ErrSaturdayWindowClosed},
		{"saturday itself", at(29, 17, 0), ErrSaturdayWindowClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := env.engine(tt.now, DefaultPolicy())
			booking, err := engine.Evaluate(context.Background(), Request{
				StudentID: env.student.ID,
				Weekday:   "Sábado",
				Time:      "10:00",
				AgeGroup:  "Adulto",
			})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, env.db.DeleteBooking(context.Background(), booking.ID))
		})
	}
}

// The cutoff rule must not swallow Saturday requests made on a Saturday
// afternoon: they fail with the window reason, not the cutoff reason.
func TestEvaluate_SaturdayExemptFromCutoff(t *testing.T) {
	env := newTestEnv(t)
	engine := env.engine(at(29, 15, 0), DefaultPolicy())

	_, err := engine.Evaluate(context.Background(), Request{
		StudentID: env.student.ID,
		Weekday:   "Sábado",
		Time:      "10:00",
		AgeGroup:  "Adulto",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSaturdayWindowClosed)
	assert.NotErrorIs(t, err, ErrCutoffExceeded)
}

func TestEvaluate_IncompleteRequests(t *testing.T) {
	env := newTestEnv(t)
	engine := env.engine(at(24, 10, 0), DefaultPolicy())

	tests := []struct {
		name string
		req  Request
	}{
		{"missing weekday", Request{StudentID: env.student.ID, Time: "19:00", AgeGroup: "Adulto"}},
		{"missing time", Request{StudentID: env.student.ID, Weekday: "Terça", AgeGroup: "Adulto"}},
		{"missing age group", Request{StudentID: env.student.ID, Weekday: "Terça", Time: "19:00"}},
		{"unknown weekday", Request{StudentID: env.student.ID, Weekday: "Funday", Time: "19:00", AgeGroup: "Adulto"}},
		{"malformed time", Request{StudentID: env.student.ID, Weekday: "Terça", Time: "25:99", AgeGroup: "Adulto"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Evaluate(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrIncompleteRequest)
		})
	}
}

func TestEvaluate_SundayExcluded(t *testing.T) {
	env := newTestEnv(t)
	engine := env.engine(at(24, 10, 0), DefaultPolicy())

	_, err := engine.Evaluate(context.Background(), Request{
		StudentID: env.student.ID,
		Weekday:   "Domingo",
		Time:      "10:00",
		AgeGroup:  "Adulto",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSundayExcluded)
}

func TestEvaluate_UnknownStudent(t *testing.T) {
	env := newTestEnv(t)
	engine := env.engine(at(24, 10, 0), DefaultPolicy())

	_, err := engine.Evaluate(context.Background(), Request{
		StudentID: 9999,
		Weekday:   "Terça",
		Time:      "19:00",
		AgeGroup:  "Adulto",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStudentNotFound)

	var rerr *RuleError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "student_not_found", rerr.Reason)
}

func TestEvaluate_DuplicateBooking(t *testing.T) {
	env := newTestEnv(t)
	engine := env.engine(at(24, 10, 0), DefaultPolicy())

	req := Request{StudentID: env.student.ID, Weekday: "Quarta", Time: "18:00", AgeGroup: "Adulto"}

	first, err := engine.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = engine.Evaluate(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyBooked)
}

func TestEvaluate_SharedSlotAcrossStudents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	other := &models.Student{Name: "Bruno Lima", Number: "1002", Age: 31, AgeGroup: "Adulto"}
	require.NoError(t, env.db.CreateStudent(ctx, other))

	engine := env.engine(at(24, 10, 0), DefaultPolicy())
	req := Request{StudentID: env.student.ID, Weekday: "Quinta", Time: "19:00", AgeGroup: "Adulto"}

	first, err := engine.Evaluate(ctx, req)
	require.NoError(t, err)

	req.StudentID = other.ID
	second, err := engine.Evaluate(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.SlotID, second.SlotID)
	assert.NotEqual(t, first.Ref, second.Ref)
}

func TestEvaluate_GridEnforcement(t *testing.T) {
	env := newTestEnv(t)

	policy := DefaultPolicy()
	policy.EnforceGrid = true
	policy.TimeGrid = config.DefaultTimeGrid()

	engine := env.engine(at(24, 10, 0), policy)

	_, err := engine.Evaluate(context.Background(), Request{
		StudentID: env.student.ID,
		Weekday:   "Segunda",
		Time:      "10:15",
		AgeGroup:  "Adulto",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeNotInGrid)

	booking, err := engine.Evaluate(context.Background(), Request{
		StudentID: env.student.ID,
		Weekday:   "Terça",
		Time:      "09:30",
		AgeGroup:  "Adulto",
	})
	require.NoError(t, err)
	assert.NotNil(t, booking)
}

func TestRuleError_Message(t *testing.T) {
	env := newTestEnv(t)
	engine := env.engine(at(24, 14, 30), DefaultPolicy())

	_, err := engine.Evaluate(context.Background(), Request{
		StudentID: env.student.ID,
		Weekday:   "Segunda",
		Time:      "19:00",
		AgeGroup:  "Adulto",
	})
	require.Error(t, err)

	var rerr *RuleError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "cutoff_exceeded", rerr.Reason)
	assert.Contains(t, rerr.Message, "14:00")
}

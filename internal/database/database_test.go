package database

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JPallas22/techgym/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func addStudent(t *testing.T, db *DB, name, number string) *models.Student {
	t.Helper()
	s := &models.Student{Name: name, Number: number, Age: 25, AgeGroup: "Adulto"}
	require.NoError(t, db.CreateStudent(context.Background(), s))
	return s
}

func TestCreateStudent_EnrollmentSequence(t *testing.T) {
	db := newTestDB(t)

	first := addStudent(t, db, "Ana Souza", "1001")
	second := addStudent(t, db, "Bruno Lima", "1002")
	third := addStudent(t, db, "Clara Dias", "1003")

	assert.Equal(t, "001", first.Enrollment)
	assert.Equal(t, "002", second.Enrollment)
	assert.Equal(t, "003", third.Enrollment)
}

func TestCreateStudent_DuplicateNumber(t *testing.T) {
	db := newTestDB(t)
	addStudent(t, db, "Ana Souza", "1001")

	dup := &models.Student{Name: "Outra Ana", Number: "1001", AgeGroup: "Adulto"}
	err := db.CreateStudent(context.Background(), dup)
	assert.ErrorIs(t, err, ErrDuplicateNumber)
}

func TestGetStudentByEnrollment(t *testing.T) {
	db := newTestDB(t)
	created := addStudent(t, db, "Ana Souza", "1001")

	found, err := db.GetStudentByEnrollment(context.Background(), created.Enrollment)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Ana Souza", found.Name)

	_, err = db.GetStudentByEnrollment(context.Background(), "999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveSlot_Converges(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := db.ResolveSlot(ctx, models.Wednesday, "19:00", "Adulto")
	require.NoError(t, err)

	second, err := db.ResolveSlot(ctx, models.Wednesday, "19:00", "Adulto")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A different age group at the same weekday and time is its own slot.
	other, err := db.ResolveSlot(ctx, models.Wednesday, "19:00", "Infantil")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestResolveSlot_ConcurrentCallersShareOneSlot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	const workers = 8
	ids := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			slot, err := db.ResolveSlot(ctx, models.Friday, "18:00", "Adulto")
			if err == nil {
				ids[i] = slot.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestTryInsertBooking(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	student := addStudent(t, db, "Ana Souza", "1001")
	slot, err := db.ResolveSlot(ctx, models.Tuesday, "19:00", "Adulto")
	require.NoError(t, err)

	booking, err := db.TryInsertBooking(ctx, student.ID, slot.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, booking.Ref)
	assert.Equal(t, student.ID, booking.StudentID)
	assert.Equal(t, slot.ID, booking.SlotID)

	_, err = db.TryInsertBooking(ctx, student.ID, slot.ID)
	assert.ErrorIs(t, err, ErrAlreadyBooked)
}

func TestTryInsertBooking_UnknownReferences(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	student := addStudent(t, db, "Ana Souza", "1001")
	slot, err := db.ResolveSlot(ctx, models.Tuesday, "19:00", "Adulto")
	require.NoError(t, err)

	_, err = db.TryInsertBooking(ctx, 9999, slot.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.TryInsertBooking(ctx, student.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTryInsertBooking_ConcurrentDuplicates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	student := addStudent(t, db, "Ana Souza", "1001")
	slot, err := db.ResolveSlot(ctx, models.Monday, "20:00", "Adulto")
	require.NoError(t, err)

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.TryInsertBooking(ctx, student.ID, slot.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var accepted, rejected int
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case assert.ErrorIs(t, err, ErrAlreadyBooked):
			rejected++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, attempts-1, rejected)
}

func TestListBookingsByStudent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	student := addStudent(t, db, "Ana Souza", "1001")

	for _, triple := range []struct {
		day models.Weekday
		tm  string
	}{
		{models.Monday, "19:00"},
		{models.Wednesday, "19:00"},
	} {
		slot, err := db.ResolveSlot(ctx, triple.day, triple.tm, "Adulto")
		require.NoError(t, err)
		_, err = db.TryInsertBooking(ctx, student.ID, slot.ID)
		require.NoError(t, err)
	}

	details, err := db.ListBookingsByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "Ana Souza", details[0].StudentName)
	assert.Equal(t, models.Monday, details[0].Weekday)
	assert.Equal(t, models.Wednesday, details[1].Weekday)
}

func TestListBookingsReport_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ana := addStudent(t, db, "Ana Souza", "1001")
	bruno := addStudent(t, db, "Bruno Lima", "1002")

	monday, err := db.ResolveSlot(ctx, models.Monday, "19:00", "Adulto")
	require.NoError(t, err)
	saturday, err := db.ResolveSlot(ctx, models.Saturday, "10:00", "Infantil")
	require.NoError(t, err)

	_, err = db.TryInsertBooking(ctx, ana.ID, monday.ID)
	require.NoError(t, err)
	_, err = db.TryInsertBooking(ctx, bruno.ID, monday.ID)
	require.NoError(t, err)
	_, err = db.TryInsertBooking(ctx, bruno.ID, saturday.ID)
	require.NoError(t, err)

	all, err := db.ListBookingsReport(ctx, models.ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mondays, err := db.ListBookingsReport(ctx, models.ReportFilter{Weekday: "Segunda"})
	require.NoError(t, err)
	assert.Len(t, mondays, 2)

	kids, err := db.ListBookingsReport(ctx, models.ReportFilter{AgeGroup: "Infantil"})
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, "Bruno Lima", kids[0].StudentName)

	narrowed, err := db.ListBookingsReport(ctx, models.ReportFilter{Weekday: "Segunda", Time: "19:00", AgeGroup: "Adulto"})
	require.NoError(t, err)
	assert.Len(t, narrowed, 2)
}

func TestDeleteSlot_CascadesBookings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ana := addStudent(t, db, "Ana Souza", "1001")
	bruno := addStudent(t, db, "Bruno Lima", "1002")

	slot, err := db.ResolveSlot(ctx, models.Thursday, "20:00", "Adulto")
	require.NoError(t, err)

	b1, err := db.TryInsertBooking(ctx, ana.ID, slot.ID)
	require.NoError(t, err)
	b2, err := db.TryInsertBooking(ctx, bruno.ID, slot.ID)
	require.NoError(t, err)

	removed, err := db.DeleteSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{b1.ID, b2.ID}, removed)

	_, err = db.GetSlot(ctx, slot.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetBooking(ctx, b1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateSlot_NotFound(t *testing.T) {
	db := newTestDB(t)
	err := db.UpdateSlot(context.Background(), 42, models.Monday, "19:00", "Adulto")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteStudent_RemovesBookings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	student := addStudent(t, db, "Ana Souza", "1001")

	slot, err := db.ResolveSlot(ctx, models.Monday, "19:00", "Adulto")
	require.NoError(t, err)
	booking, err := db.TryInsertBooking(ctx, student.ID, slot.ID)
	require.NoError(t, err)

	require.NoError(t, db.DeleteStudent(ctx, student.ID))

	_, err = db.GetStudent(ctx, student.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetBooking(ctx, booking.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBookingsOlderThan(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	student := addStudent(t, db, "Ana Souza", "1001")
	slot, err := db.ResolveSlot(ctx, models.Monday, "19:00", "Adulto")
	require.NoError(t, err)
	booking, err := db.TryInsertBooking(ctx, student.ID, slot.ID)
	require.NoError(t, err)

	// Fresh bookings stay.
	deleted, err := db.DeleteBookingsOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	// Backdate and trim.
	_, err = db.ExecContext(ctx,
		`UPDATE bookings SET created_at = datetime('now', '-400 days') WHERE id = ?`, booking.ID)
	require.NoError(t, err)

	deleted, err = db.DeleteBookingsOlderThan(ctx, 365*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestAuditTableData(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	addStudent(t, db, "Ana Souza", "1001")

	names, err := db.GetTableNames(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "students")
	assert.Contains(t, names, "slots")
	assert.Contains(t, names, "bookings")

	rows, columns, err := db.GetTableData(ctx, "students")
	require.NoError(t, err)
	assert.Contains(t, columns, "name")
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana Souza", rows[0]["name"])

	_, _, err = db.GetTableData(ctx, "students; DROP TABLE students")
	assert.Error(t, err)
}

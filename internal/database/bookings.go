package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/JPallas22/techgym/internal/models"
)

// TryInsertBooking inserts a booking for (student, slot). The check and the
// insert are one atomic statement: idx_bookings_student_slot rejects a second
// live booking for the same pair regardless of interleaving.
func (db *DB) TryInsertBooking(ctx context.Context, studentID, slotID int64) (*models.Booking, error) {
	booking := &models.Booking{
		Ref:       uuid.NewString(),
		StudentID: studentID,
		SlotID:    slotID,
		CreatedAt: time.Now(),
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO bookings (ref, student_id, slot_id, created_at)
		VALUES (?, ?, ?, ?)`,
		booking.Ref, studentID, slotID, booking.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyBooked
		}
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	booking.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("booking id: %w", err)
	}
	return booking, nil
}

// GetBooking returns a booking by id.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var b models.Booking
	err := db.QueryRowContext(ctx, `
		SELECT id, ref, student_id, slot_id, created_at
		FROM bookings WHERE id = ?`, id,
	).Scan(&b.ID, &b.Ref, &b.StudentID, &b.SlotID, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBookingsByStudent returns a student's bookings in insertion order,
// joined with slot fields for display.
func (db *DB) ListBookingsByStudent(ctx context.Context, studentID int64) ([]models.BookingDetail, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT b.id, b.ref, b.student_id, st.name, st.enrollment,
		       b.slot_id, sl.weekday, sl.time, sl.age_group, b.created_at
		FROM bookings b
		JOIN students st ON st.id = b.student_id
		JOIN slots sl ON sl.id = b.slot_id
		WHERE b.student_id = ?
		ORDER BY b.id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookingDetails(rows)
}

// ListBookingsReport returns bookings joined with student and slot fields,
// narrowed by the report filter.
func (db *DB) ListBookingsReport(ctx context.Context, filter models.ReportFilter) ([]models.BookingDetail, error) {
	query := `
		SELECT b.id, b.ref, b.student_id, st.name, st.enrollment,
		       b.slot_id, sl.weekday, sl.time, sl.age_group, b.created_at
		FROM bookings b
		JOIN students st ON st.id = b.student_id
		JOIN slots sl ON sl.id = b.slot_id
		WHERE 1=1`
	var args []any
	if filter.Weekday != "" {
		query += " AND sl.weekday = ?"
		args = append(args, filter.Weekday)
	}
	if filter.Time != "" {
		query += " AND sl.time = ?"
		args = append(args, filter.Time)
	}
	if filter.AgeGroup != "" {
		query += " AND sl.age_group = ?"
		args = append(args, filter.AgeGroup)
	}
	query += " ORDER BY b.id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookingDetails(rows)
}

// DeleteBooking removes a booking by id.
func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBookingsOlderThan removes bookings created before the retention
// window. Used by the audit service after the monthly export.
func (db *DB) DeleteBookingsOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	// created_at is written by CURRENT_TIMESTAMP as a UTC text column, so the
	// cutoff must be compared in the same form.
	cutoff := time.Now().UTC().Add(-olderThan).Format("2006-01-02 15:04:05")
	res, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old bookings: %w", err)
	}
	return res.RowsAffected()
}

func scanBookingDetails(rows *sql.Rows) ([]models.BookingDetail, error) {
	var details []models.BookingDetail
	for rows.Next() {
		var d models.BookingDetail
		var weekday string
		if err := rows.Scan(
			&d.BookingID, &d.Ref, &d.StudentID, &d.StudentName, &d.Enrollment,
			&d.SlotID, &weekday, &d.Time, &d.AgeGroup, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		parsed, err := models.ParseWeekday(weekday)
		if err != nil {
			return nil, fmt.Errorf("booking %d: %w", d.BookingID, err)
		}
		d.Weekday = parsed
		details = append(details, d)
	}
	return details, rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/JPallas22/techgym/internal/models"
)

// ResolveSlot returns the slot matching the (weekday, time, age group) triple,
// creating it on first use. Concurrent callers converge on a single record:
// the INSERT OR IGNORE races against idx_slots_identity and the follow-up
// SELECT reads whichever row won.
func (db *DB) ResolveSlot(ctx context.Context, weekday models.Weekday, timeOfDay, ageGroup string) (*models.Slot, error) {
	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO slots (weekday, time, age_group, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		weekday.String(), timeOfDay, ageGroup, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert slot: %w", err)
	}

	return db.getSlotByTriple(ctx, weekday.String(), timeOfDay, ageGroup)
}

func (db *DB) getSlotByTriple(ctx context.Context, weekday, timeOfDay, ageGroup string) (*models.Slot, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, weekday, time, age_group, created_at, updated_at
		FROM slots
		WHERE weekday = ? AND time = ? AND age_group = ?`,
		weekday, timeOfDay, ageGroup,
	)
	return scanSlot(row)
}

// GetSlot returns a slot by id.
func (db *DB) GetSlot(ctx context.Context, id int64) (*models.Slot, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, weekday, time, age_group, created_at, updated_at
		FROM slots WHERE id = ?`, id,
	)
	return scanSlot(row)
}

// ListSlots returns all slots ordered by weekday, time, age group.
func (db *DB) ListSlots(ctx context.Context) ([]models.Slot, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, weekday, time, age_group, created_at, updated_at
		FROM slots ORDER BY weekday, time, age_group`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []models.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

// ListSlotsByAgeGroup returns the slots offered to one age group, the set a
// student picks from.
func (db *DB) ListSlotsByAgeGroup(ctx context.Context, ageGroup string) ([]models.Slot, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, weekday, time, age_group, created_at, updated_at
		FROM slots WHERE age_group = ? ORDER BY weekday, time`, ageGroup)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []models.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

// UpdateSlot rewrites a slot's identity fields. Existing bookings keep
// pointing at the record; the caller owns the consequences.
func (db *DB) UpdateSlot(ctx context.Context, id int64, weekday models.Weekday, timeOfDay, ageGroup string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE slots SET weekday = ?, time = ?, age_group = ?, updated_at = ?
		WHERE id = ?`,
		weekday.String(), timeOfDay, ageGroup, time.Now(), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("slot %s %s %s already exists: %w", weekday, timeOfDay, ageGroup, err)
		}
		return fmt.Errorf("update slot: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSlot removes a slot and all bookings referencing it, returning the
// IDs of the removed bookings so callers can report the cascade instead of
// losing it silently.
func (db *DB) DeleteSlot(ctx context.Context, id int64) ([]int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete slot: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM bookings WHERE slot_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list dependent bookings: %w", err)
	}
	var removed []int64
	for rows.Next() {
		var bid int64
		if err := rows.Scan(&bid); err != nil {
			rows.Close()
			return nil, err
		}
		removed = append(removed, bid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE slot_id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete dependent bookings: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM slots WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("delete slot: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete slot: %w", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*models.Slot, error) {
	var s models.Slot
	var weekday string
	err := row.Scan(&s.ID, &weekday, &s.Time, &s.AgeGroup, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Weekday, err = models.ParseWeekday(weekday)
	if err != nil {
		return nil, fmt.Errorf("slot %d: %w", s.ID, err)
	}
	return &s, nil
}

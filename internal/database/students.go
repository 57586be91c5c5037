package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/JPallas22/techgym/internal/models"
)

const studentColumns = `id, enrollment, number, name, age, address, district, city, state,
	postal_code, birth_date, phone, email, age_group, created_at, updated_at`

// CreateStudent registers a student, assigning the next enrollment number.
// Enrollment numbers are zero-padded and follow the highest numeric one on
// record; the first student gets "001".
func (db *DB) CreateStudent(ctx context.Context, s *models.Student) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create student: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM students WHERE number = ?`, s.Number,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check student number: %w", err)
	}
	if exists > 0 {
		return ErrDuplicateNumber
	}

	var last sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT enrollment FROM students ORDER BY id DESC LIMIT 1`,
	).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("last enrollment: %w", err)
	}
	s.Enrollment = nextEnrollment(last.String)

	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	res, err := tx.ExecContext(ctx, `
		INSERT INTO students (enrollment, number, name, age, address, district, city, state,
			postal_code, birth_date, phone, email, age_group, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Enrollment, s.Number, s.Name, s.Age, s.Address, s.District, s.City, s.State,
		s.PostalCode, s.BirthDate, s.Phone, s.Email, s.AgeGroup, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateNumber
		}
		return fmt.Errorf("insert student: %w", err)
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("student id: %w", err)
	}

	return tx.Commit()
}

// nextEnrollment increments a numeric enrollment keeping at least three
// digits; non-numeric history restarts the sequence.
func nextEnrollment(last string) string {
	n, err := strconv.Atoi(last)
	if err != nil || last == "" {
		return "001"
	}
	return fmt.Sprintf("%03d", n+1)
}

// GetStudent returns a student by id.
func (db *DB) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = ?`, id)
	return scanStudent(row)
}

// GetStudentByEnrollment returns a student by enrollment number.
func (db *DB) GetStudentByEnrollment(ctx context.Context, enrollment string) (*models.Student, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE enrollment = ?`, enrollment)
	return scanStudent(row)
}

// ListStudents returns all students ordered by enrollment.
func (db *DB) ListStudents(ctx context.Context) ([]models.Student, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY enrollment`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *s)
	}
	return students, rows.Err()
}

// UpdateStudent rewrites the mutable fields of a student record.
func (db *DB) UpdateStudent(ctx context.Context, s *models.Student) error {
	res, err := db.ExecContext(ctx, `
		UPDATE students SET name = ?, age = ?, address = ?, district = ?, city = ?,
			state = ?, postal_code = ?, birth_date = ?, phone = ?, email = ?,
			age_group = ?, updated_at = ?
		WHERE id = ?`,
		s.Name, s.Age, s.Address, s.District, s.City, s.State, s.PostalCode,
		s.BirthDate, s.Phone, s.Email, s.AgeGroup, time.Now(), s.ID,
	)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStudent removes a student and their bookings.
func (db *DB) DeleteStudent(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete student: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE student_id = ?`, id); err != nil {
		return fmt.Errorf("delete student bookings: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func scanStudent(row rowScanner) (*models.Student, error) {
	var s models.Student
	var address, district, city, state, postal, birth, phone, email sql.NullString
	err := row.Scan(
		&s.ID, &s.Enrollment, &s.Number, &s.Name, &s.Age, &address, &district,
		&city, &state, &postal, &birth, &phone, &email, &s.AgeGroup,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Address = address.String
	s.District = district.String
	s.City = city.String
	s.State = state.String
	s.PostalCode = postal.String
	s.BirthDate = birth.String
	s.Phone = phone.String
	s.Email = email.String
	return &s, nil
}

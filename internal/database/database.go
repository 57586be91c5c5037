package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the sqlite connection for the booking service.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	// ErrNotFound means the referenced student, slot or booking is absent.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyBooked means the student already holds a booking for the slot.
	ErrAlreadyBooked = errors.New("already booked")
	// ErrDuplicateNumber means the student number is already registered.
	ErrDuplicateNumber = errors.New("student number already registered")
)

// NewDB opens the database at path and creates tables if they don't exist.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL mode and a busy timeout keep concurrent request handlers from
	// tripping over each other on the single sqlite file.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS students (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			enrollment TEXT UNIQUE NOT NULL,
			number TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			age INTEGER NOT NULL DEFAULT 0,
			address TEXT,
			district TEXT,
			city TEXT,
			state TEXT,
			postal_code TEXT,
			birth_date TEXT,
			phone TEXT,
			email TEXT,
			age_group TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS slots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			weekday TEXT NOT NULL,
			time TEXT NOT NULL,
			age_group TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ref TEXT UNIQUE NOT NULL,
			student_id INTEGER NOT NULL,
			slot_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (student_id) REFERENCES students(id),
			FOREIGN KEY (slot_id) REFERENCES slots(id)
		)`,

		// Slot identity: one record per (weekday, time, age group) triple.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_slots_identity ON slots(weekday, time, age_group)`,

		// At most one live booking per (student, slot) pair.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_student_slot ON bookings(student_id, slot_id)`,

		`CREATE INDEX IF NOT EXISTS idx_students_age_group ON students(age_group)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(slot_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_student ON bookings(student_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}

	return db.ensureNewColumns()
}

// ensureNewColumns adds columns introduced after the initial schema.
func (db *DB) ensureNewColumns() error {
	migrations := []string{
		`ALTER TABLE students ADD COLUMN phone TEXT`,
		`ALTER TABLE students ADD COLUMN email TEXT`,
	}
	for _, m := range migrations {
		_, err := db.Exec(m)
		if err != nil && !strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			if db.logger != nil {
				db.logger.Debug().Err(err).Str("migration", m).Msg("Migration skipped")
			}
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// Ping checks the connection for readiness probes.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

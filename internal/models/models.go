package models

import "time"

// Student is an enrolled academy member. The admission path only ever reads
// students; the record itself is managed through the directory CRUD.
type Student struct {
	ID         int64     `json:"id"`
	Enrollment string    `json:"enrollment"` // auto-assigned, zero-padded
	Number     string    `json:"number"`     // academy-issued student number, unique
	Name       string    `json:"name"`
	Age        int       `json:"age"`
	Address    string    `json:"address,omitempty"`
	District   string    `json:"district,omitempty"`
	City       string    `json:"city,omitempty"`
	State      string    `json:"state,omitempty"`
	PostalCode string    `json:"postal_code,omitempty"`
	BirthDate  string    `json:"birth_date,omitempty"` // YYYY-MM-DD
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
	AgeGroup   string    `json:"age_group"` // faixa; case-sensitive label
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Slot is a recurring weekly class identified by (weekday, time, age group).
// Slots are created lazily on first resolve and never auto-deleted.
type Slot struct {
	ID        int64     `json:"id"`
	Weekday   Weekday   `json:"weekday"`
	Time      string    `json:"time"` // HH:MM, minute granularity
	AgeGroup  string    `json:"age_group"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Booking links one student to one slot. At most one live booking exists per
// (student, slot) pair; the ledger's unique index enforces it.
type Booking struct {
	ID        int64     `json:"id"`
	Ref       string    `json:"ref"` // public reference, uuid
	StudentID int64     `json:"student_id"`
	SlotID    int64     `json:"slot_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingDetail is a booking joined with its student and slot fields, used by
// listings and the admin report.
type BookingDetail struct {
	BookingID   int64     `json:"booking_id"`
	Ref         string    `json:"ref"`
	StudentID   int64     `json:"student_id"`
	StudentName string    `json:"student_name"`
	Enrollment  string    `json:"enrollment"`
	SlotID      int64     `json:"slot_id"`
	Weekday     Weekday   `json:"weekday"`
	Time        string    `json:"time"`
	AgeGroup    string    `json:"age_group"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportFilter narrows the booking report. Empty fields match everything.
type ReportFilter struct {
	Weekday  string
	Time     string
	AgeGroup string
}

package domain

import (
	"errors"
	"time"
)

// DateFormat is the calendar-day key under which attendance slots are stored.
const DateFormat = "2006-01-02"

var (
	ErrAlreadyCheckedIn  = errors.New("already checked in today")
	ErrNoCheckInFound    = errors.New("no check-in found for today")
	ErrAlreadyCheckedOut = errors.New("already checked out")
	ErrInvalidDate       = errors.New("invalid date")
)

// Attendance is the single record allowed per (user, date) slot. CheckInTime
// is set exactly once at creation, CheckOutTime exactly once afterwards; the
// record is never otherwise mutated.
type Attendance struct {
	ID           int64
	UserID       int64
	Date         string
	CheckInTime  *time.Time
	CheckOutTime *time.Time
	CreatedAt    time.Time
}

// AttendanceWithUser is an attendance row joined with the minimal identity
// fields the admin listing exposes.
type AttendanceWithUser struct {
	Attendance
	UserName  string
	UserEmail string
}

// AttendanceFilter narrows the admin listing. Zero values match everything.
type AttendanceFilter struct {
	UserID int64
	Date   string
}

func (f AttendanceFilter) Validate() error {
	if f.Date != "" {
		return ValidateDate(f.Date)
	}
	return nil
}

func ValidateDate(date string) error {
	if date == "" {
		return ErrInvalidDate
	}
	if _, err := time.Parse(DateFormat, date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

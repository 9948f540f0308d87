package ports

import (
	"context"
	"time"

	"github.com/dienynas/attendapi/internal/core/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	FindByID(ctx context.Context, id int64) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	// Update persists the mutable profile fields. It fails with
	// domain.ErrNotFound if the user was concurrently deleted.
	Update(ctx context.Context, user domain.User) (domain.User, error)
	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
}

type AttendanceRepository interface {
	// Create inserts the slot record. The existence check and insert are one
	// atomic unit: a concurrent insert for the same (user, date) slot makes
	// the loser fail with domain.ErrAlreadyCheckedIn.
	Create(ctx context.Context, rec domain.Attendance) (domain.Attendance, error)
	FindSlot(ctx context.Context, userID int64, date string) (domain.Attendance, error)
	// SetCheckOut closes the slot exactly once. It fails with
	// domain.ErrNoCheckInFound when no open record exists for the slot and
	// domain.ErrAlreadyCheckedOut when the record is already closed.
	SetCheckOut(ctx context.Context, userID int64, date string, at time.Time) (domain.Attendance, error)
	ListForUser(ctx context.Context, userID int64, from, to string) ([]domain.Attendance, error)
	ListWithUsers(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceWithUser, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	AppendDeadLetter(ctx context.Context, letter domain.AuditDeadLetter) error
	// ListRecent returns the newest entries first.
	ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

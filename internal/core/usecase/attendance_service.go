package usecase

import (
	"context"

	"github.com/dienynas/attendapi/internal/core/domain"
	"github.com/dienynas/attendapi/internal/core/ports"
)

// AttendanceService drives the per-day check-in/check-out state machine.
// The repository's uniqueness guarantees decide concurrent races; events are
// published only after the state change has committed and never awaited.
type AttendanceService struct {
	repo  ports.AttendanceRepository
	bus   ports.EventPublisher
	clock domain.Clock
}

func NewAttendanceService(repo ports.AttendanceRepository, bus ports.EventPublisher, clock domain.Clock) *AttendanceService {
	return &AttendanceService{repo: repo, bus: bus, clock: clock}
}

func (s *AttendanceService) CheckIn(ctx context.Context, userID int64) (domain.Attendance, error) {
	now := s.clock.Now()
	date := now.Format(domain.DateFormat)

	rec, err := s.repo.Create(ctx, domain.Attendance{
		UserID:      userID,
		Date:        date,
		CheckInTime: &now,
	})
	if err != nil {
		return domain.Attendance{}, err
	}

	s.bus.Publish(domain.EventCheckIn, map[string]any{"userId": userID, "date": date})
	return rec, nil
}

func (s *AttendanceService) CheckOut(ctx context.Context, userID int64) (domain.Attendance, error) {
	now := s.clock.Now()
	date := now.Format(domain.DateFormat)

	rec, err := s.repo.SetCheckOut(ctx, userID, date, now)
	if err != nil {
		return domain.Attendance{}, err
	}

	s.bus.Publish(domain.EventCheckOut, map[string]any{"userId": userID, "date": date})
	return rec, nil
}

// Today returns the caller's record for the current date, or
// domain.ErrNotFound before the first check-in of the day.
func (s *AttendanceService) Today(ctx context.Context, userID int64) (domain.Attendance, error) {
	date := s.clock.Now().Format(domain.DateFormat)
	return s.repo.FindSlot(ctx, userID, date)
}

// MyAttendance lists the caller's own records newest first, optionally
// bounded by an inclusive date range.
func (s *AttendanceService) MyAttendance(ctx context.Context, userID int64, from, to string) ([]domain.Attendance, error) {
	if from != "" {
		if err := domain.ValidateDate(from); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if err := domain.ValidateDate(to); err != nil {
			return nil, err
		}
	}
	return s.repo.ListForUser(ctx, userID, from, to)
}

// AdminList returns attendance rows joined with minimal user identity,
// filtered by optional exact date and user id.
func (s *AttendanceService) AdminList(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceWithUser, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListWithUsers(ctx, filter)
}

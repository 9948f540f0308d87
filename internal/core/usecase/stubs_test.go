package usecase

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/dienynas/attendapi/internal/core/domain"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time {
	return c.t
}

type publishedEvent struct {
	name    string
	payload map[string]any
}

type publisherStub struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *publisherStub) Publish(name string, payload map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{name: name, payload: payload})
}

func (p *publisherStub) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

type attendanceRepoStub struct {
	createFn        func(ctx context.Context, rec domain.Attendance) (domain.Attendance, error)
	findSlotFn      func(ctx context.Context, userID int64, date string) (domain.Attendance, error)
	setCheckOutFn   func(ctx context.Context, userID int64, date string, at time.Time) (domain.Attendance, error)
	listForUserFn   func(ctx context.Context, userID int64, from, to string) ([]domain.Attendance, error)
	listWithUsersFn func(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceWithUser, error)
}

func (s *attendanceRepoStub) Create(ctx context.Context, rec domain.Attendance) (domain.Attendance, error) {
	return s.createFn(ctx, rec)
}

func (s *attendanceRepoStub) FindSlot(ctx context.Context, userID int64, date string) (domain.Attendance, error) {
	return s.findSlotFn(ctx, userID, date)
}

func (s *attendanceRepoStub) SetCheckOut(ctx context.Context, userID int64, date string, at time.Time) (domain.Attendance, error) {
	return s.setCheckOutFn(ctx, userID, date, at)
}

func (s *attendanceRepoStub) ListForUser(ctx context.Context, userID int64, from, to string) ([]domain.Attendance, error) {
	return s.listForUserFn(ctx, userID, from, to)
}

func (s *attendanceRepoStub) ListWithUsers(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceWithUser, error) {
	return s.listWithUsersFn(ctx, filter)
}

type userRepoStub struct {
	createFn      func(ctx context.Context, user domain.User) (domain.User, error)
	findByIDFn    func(ctx context.Context, id int64) (domain.User, error)
	findByEmailFn func(ctx context.Context, email string) (domain.User, error)
	updateFn      func(ctx context.Context, user domain.User) (domain.User, error)
	listFn        func(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
}

func (s *userRepoStub) Create(ctx context.Context, user domain.User) (domain.User, error) {
	return s.createFn(ctx, user)
}

func (s *userRepoStub) FindByID(ctx context.Context, id int64) (domain.User, error) {
	return s.findByIDFn(ctx, id)
}

func (s *userRepoStub) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.findByEmailFn(ctx, email)
}

func (s *userRepoStub) Update(ctx context.Context, user domain.User) (domain.User, error) {
	return s.updateFn(ctx, user)
}

func (s *userRepoStub) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	return s.listFn(ctx, filter)
}

type auditRepoStub struct {
	appendFn           func(ctx context.Context, entry domain.AuditEntry) error
	appendDeadLetterFn func(ctx context.Context, letter domain.AuditDeadLetter) error
	listRecentFn       func(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

func (s *auditRepoStub) Append(ctx context.Context, entry domain.AuditEntry) error {
	return s.appendFn(ctx, entry)
}

func (s *auditRepoStub) AppendDeadLetter(ctx context.Context, letter domain.AuditDeadLetter) error {
	return s.appendDeadLetterFn(ctx, letter)
}

func (s *auditRepoStub) ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return s.listRecentFn(ctx, limit)
}

type photoStoreStub struct {
	saveFn   func(ctx context.Context, userID int64, filename string, data io.Reader) (string, error)
	removeFn func(ctx context.Context, ref string) error
}

func (s *photoStoreStub) Save(ctx context.Context, userID int64, filename string, data io.Reader) (string, error) {
	return s.saveFn(ctx, userID, filename, data)
}

func (s *photoStoreStub) Remove(ctx context.Context, ref string) error {
	return s.removeFn(ctx, ref)
}

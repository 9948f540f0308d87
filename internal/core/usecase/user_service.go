package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dienynas/attendapi/internal/core/domain"
	"github.com/dienynas/attendapi/internal/core/ports"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordPairRequired = errors.New("old password and new password are required")
	ErrPasswordMismatch     = errors.New("old password is incorrect")
)

// UpdateProfileInput carries the self-service profile mutation. Nil pointer
// fields are left untouched.
type UpdateProfileInput struct {
	PhoneNumber *string
	Position    *string
	OldPassword string
	NewPassword string
}

// AdminUpdateInput carries the admin-side profile mutation.
type AdminUpdateInput struct {
	Name        *string
	PhoneNumber *string
}

// UserService owns profile mutations. Every successful mutation publishes
// PROFILE_UPDATED so the audit trail records it.
type UserService struct {
	users  ports.UserRepository
	photos ports.PhotoStore
	bus    ports.EventPublisher
	clock  domain.Clock
}

func NewUserService(users ports.UserRepository, photos ports.PhotoStore, bus ports.EventPublisher, clock domain.Clock) *UserService {
	return &UserService{users: users, photos: photos, bus: bus, clock: clock}
}

func (s *UserService) Me(ctx context.Context, userID int64) (domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *UserService) UpdateMe(ctx context.Context, userID int64, in UpdateProfileInput) (domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	if in.PhoneNumber != nil {
		user.PhoneNumber = *in.PhoneNumber
	}
	if in.Position != nil {
		user.Position = *in.Position
	}

	if in.OldPassword != "" || in.NewPassword != "" {
		if in.OldPassword == "" || in.NewPassword == "" {
			return domain.User{}, ErrPasswordPairRequired
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.OldPassword)); err != nil {
			return domain.User{}, ErrPasswordMismatch
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return domain.User{}, err
	}

	s.publishProfileUpdated(updated.ID)
	return updated, nil
}

func (s *UserService) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, domain.ErrNotFound
	}
	return users, nil
}

func (s *UserService) AdminUpdate(ctx context.Context, userID int64, in AdminUpdateInput) (domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = *in.PhoneNumber
	}
	if err := user.Validate(); err != nil {
		return domain.User{}, err
	}

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return domain.User{}, err
	}

	s.publishProfileUpdated(updated.ID)
	return updated, nil
}

// SetPhoto stores a new profile photo and removes the previous one
// best-effort; a stale file is not worth failing the update over.
func (s *UserService) SetPhoto(ctx context.Context, userID int64, filename string, data io.Reader) (domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	ref, err := s.photos.Save(ctx, userID, filename, data)
	if err != nil {
		return domain.User{}, err
	}

	previous := user.Photo
	user.Photo = ref
	updated, err := s.users.Update(ctx, user)
	if err != nil {
		_ = s.photos.Remove(ctx, ref)
		return domain.User{}, err
	}

	if previous != "" {
		_ = s.photos.Remove(ctx, previous)
	}

	s.publishProfileUpdated(updated.ID)
	return updated, nil
}

func (s *UserService) RemovePhoto(ctx context.Context, userID int64) (domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.Photo == "" {
		return user, nil
	}

	previous := user.Photo
	user.Photo = ""
	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return domain.User{}, err
	}

	_ = s.photos.Remove(ctx, previous)

	s.publishProfileUpdated(updated.ID)
	return updated, nil
}

func (s *UserService) publishProfileUpdated(userID int64) {
	date := s.clock.Now().Format(domain.DateFormat)
	s.bus.Publish(domain.EventProfileUpdated, map[string]any{"userId": userID, "date": date})
}

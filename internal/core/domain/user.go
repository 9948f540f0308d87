package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidName      = errors.New("invalid name")
	ErrUnsupportedPhoto = errors.New("unsupported photo type")
)

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	PhoneNumber  string
	Photo        string
	Position     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrInvalidName
	}
	return ValidateEmail(u.Email)
}

func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

func ValidRole(role Role) bool {
	return role == RoleEmployee || role == RoleAdmin
}

type UserFilter struct {
	ID   int64
	Name string
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dienynas/attendapi/internal/core/domain"
	"github.com/dienynas/attendapi/internal/core/ports"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrUnauthorized = errors.New("unauthorized")

const defaultTokenTTL = 24 * time.Hour

// Identity is the trusted caller identity attached to every authenticated
// request. Downstream code performs no further verification.
type Identity struct {
	UserID int64
	Role   domain.Role
}

type AuthService struct {
	users  ports.UserRepository
	secret []byte
	ttl    time.Duration
	clock  domain.Clock
}

func NewAuthService(users ports.UserRepository, secret string, ttl time.Duration, clock domain.Clock) *AuthService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{users: users, secret: []byte(secret), ttl: ttl, clock: clock}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if err := domain.ValidateEmail(email); err != nil {
		return domain.User{}, err
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return domain.User{}, domain.ErrEmailTaken
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleEmployee,
	}
	if err := user.Validate(); err != nil {
		return domain.User{}, err
	}
	return s.users.Create(ctx, user)
}

// Login verifies the credentials and returns a signed access token alongside
// the authenticated user.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.User{}, ErrUnauthorized
		}
		return "", domain.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.User{}, ErrUnauthorized
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", domain.User{}, err
	}
	return token, user, nil
}

func (s *AuthService) issueToken(user domain.User) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(user.ID, 10),
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Authenticate parses and verifies a bearer token. Any parse, signature, or
// claim problem comes back as ErrUnauthorized.
func (s *AuthService) Authenticate(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrUnauthorized
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return Identity{}, ErrUnauthorized
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrUnauthorized
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}

	role, _ := claims["role"].(string)
	if !domain.ValidRole(domain.Role(role)) {
		return Identity{}, ErrUnauthorized
	}

	return Identity{UserID: userID, Role: domain.Role(role)}, nil
}

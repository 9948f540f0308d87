package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dienynas/attendapi/internal/adapters/sqlite/gormsqlite"
	"github.com/dienynas/attendapi/internal/core/domain"
	"gorm.io/gorm"
)

type userModel struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string         `gorm:"column:name;not null"`
	Email        string         `gorm:"column:email;not null"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         string         `gorm:"column:role;not null"`
	PhoneNumber  string         `gorm:"column:phone_number"`
	Photo        string         `gorm:"column:photo"`
	Position     string         `gorm:"column:position"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at"`
}

func (userModel) TableName() string {
	return "users"
}

type UserRepository struct {
	db *gormsqlite.DB
}

func NewUserRepository(db *gormsqlite.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	now := time.Now().UTC()
	model := userModel{
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
		PhoneNumber:  user.PhoneNumber,
		Photo:        user.Photo,
		Position:     user.Position,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		// The unique email index decides races that the service-level
		// pre-check cannot see.
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	return userToDomain(model), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (domain.User, error) {
	var model userModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return userToDomain(model), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	var model userModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("email = ?", email).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return userToDomain(model), nil
}

func (r *UserRepository) Update(ctx context.Context, user domain.User) (domain.User, error) {
	var updated userModel
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&userModel{}).
			Where("id = ?", user.ID).
			Updates(map[string]any{
				"name":          user.Name,
				"phone_number":  user.PhoneNumber,
				"photo":         user.Photo,
				"position":      user.Position,
				"password_hash": user.PasswordHash,
				"updated_at":    time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return tx.Where("id = ?", user.ID).First(&updated).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return userToDomain(updated), nil
}

func (r *UserRepository) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	var models []userModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		query := tx.Model(&userModel{})
		if filter.ID > 0 {
			query = query.Where("id = ?", filter.ID)
		}
		if filter.Name != "" {
			query = query.Where("name LIKE ?", "%"+filter.Name+"%")
		}
		return query.Order("id ASC").Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]domain.User, 0, len(models))
	for _, model := range models {
		users = append(users, userToDomain(model))
	}
	return users, nil
}

func userToDomain(model userModel) domain.User {
	return domain.User{
		ID:           model.ID,
		Name:         model.Name,
		Email:        model.Email,
		PasswordHash: model.PasswordHash,
		Role:         domain.Role(model.Role),
		PhoneNumber:  model.PhoneNumber,
		Photo:        model.Photo,
		Position:     model.Position,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

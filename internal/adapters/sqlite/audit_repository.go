package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/dienynas/attendapi/internal/adapters/sqlite/gormsqlite"
	"github.com/dienynas/attendapi/internal/core/domain"
	"gorm.io/gorm"
)

type auditModel struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement"`
	EventID     string         `gorm:"column:event_id;not null"`
	ActorUserID *int64         `gorm:"column:actor_user_id"`
	Action      string         `gorm:"column:action;not null"`
	Payload     string         `gorm:"column:payload;not null"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at"`
}

func (auditModel) TableName() string {
	return "audit_logs"
}

type auditDeadLetterModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Action    string    `gorm:"column:action;not null"`
	Payload   string    `gorm:"column:payload;not null"`
	Attempts  int       `gorm:"column:attempts;not null"`
	LastError string    `gorm:"column:last_error;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (auditDeadLetterModel) TableName() string {
	return "audit_dead_letters"
}

// AuditRepository is append-only: rows are written once by the audit
// consumer and never updated.
type AuditRepository struct {
	db *gormsqlite.DB
}

func NewAuditRepository(db *gormsqlite.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	model := auditModel{
		EventID:     entry.EventID,
		ActorUserID: entry.ActorUserID,
		Action:      entry.Action,
		Payload:     entry.Payload,
		CreatedAt:   time.Now().UTC(),
	}
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) AppendDeadLetter(ctx context.Context, letter domain.AuditDeadLetter) error {
	model := auditDeadLetterModel{
		Action:    letter.Action,
		Payload:   letter.Payload,
		Attempts:  letter.Attempts,
		LastError: letter.LastError,
		CreatedAt: time.Now().UTC(),
	}
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return fmt.Errorf("append audit dead letter: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	var models []auditModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Model(&auditModel{}).Order("id DESC").Limit(limit).Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	entries := make([]domain.AuditEntry, 0, len(models))
	for _, model := range models {
		entries = append(entries, domain.AuditEntry{
			ID:          model.ID,
			EventID:     model.EventID,
			ActorUserID: model.ActorUserID,
			Action:      model.Action,
			Payload:     model.Payload,
			CreatedAt:   model.CreatedAt,
		})
	}
	return entries, nil
}

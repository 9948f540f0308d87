package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dienynas/attendapi/internal/adapters/sqlite/gormsqlite"
	"github.com/dienynas/attendapi/internal/core/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type attendanceModel struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	UserID       int64          `gorm:"column:user_id;not null"`
	Date         string         `gorm:"column:date;not null"`
	CheckInTime  *time.Time     `gorm:"column:check_in_time"`
	CheckOutTime *time.Time     `gorm:"column:check_out_time"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at"`
}

func (attendanceModel) TableName() string {
	return "attendances"
}

type AttendanceRepository struct {
	db *gormsqlite.DB
}

func NewAttendanceRepository(db *gormsqlite.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts the slot record guarded by the unique (user_id, date)
// index. ON CONFLICT DO NOTHING turns the loser of a concurrent insert into
// zero affected rows, which is reported as domain.ErrAlreadyCheckedIn.
func (r *AttendanceRepository) Create(ctx context.Context, rec domain.Attendance) (domain.Attendance, error) {
	model := attendanceModel{
		UserID:       rec.UserID,
		Date:         rec.Date,
		CheckInTime:  rec.CheckInTime,
		CheckOutTime: rec.CheckOutTime,
		CreatedAt:    time.Now().UTC(),
	}

	var created attendanceModel
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoNothing: true,
		}).Create(&model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrAlreadyCheckedIn
		}
		return tx.Where("user_id = ? AND date = ?", rec.UserID, rec.Date).First(&created).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyCheckedIn) {
			return domain.Attendance{}, domain.ErrAlreadyCheckedIn
		}
		return domain.Attendance{}, fmt.Errorf("create attendance: %w", err)
	}

	return attendanceToDomain(created), nil
}

func (r *AttendanceRepository) FindSlot(ctx context.Context, userID int64, date string) (domain.Attendance, error) {
	var model attendanceModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("user_id = ? AND date = ?", userID, date).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Attendance{}, domain.ErrNotFound
		}
		return domain.Attendance{}, fmt.Errorf("find attendance slot: %w", err)
	}
	return attendanceToDomain(model), nil
}

// SetCheckOut closes the slot with a guarded UPDATE: the check_out_time IS
// NULL predicate makes the update and the already-closed check one atomic
// unit, so concurrent check-outs produce exactly one winner.
func (r *AttendanceRepository) SetCheckOut(ctx context.Context, userID int64, date string, at time.Time) (domain.Attendance, error) {
	var updated attendanceModel
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&attendanceModel{}).
			Where("user_id = ? AND date = ? AND check_out_time IS NULL", userID, date).
			Update("check_out_time", at)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Disambiguate inside the same transaction.
			var existing attendanceModel
			err := tx.Where("user_id = ? AND date = ?", userID, date).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNoCheckInFound
			}
			if err != nil {
				return err
			}
			return domain.ErrAlreadyCheckedOut
		}
		return tx.Where("user_id = ? AND date = ?", userID, date).First(&updated).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoCheckInFound) || errors.Is(err, domain.ErrAlreadyCheckedOut) {
			return domain.Attendance{}, err
		}
		return domain.Attendance{}, fmt.Errorf("set check-out: %w", err)
	}

	return attendanceToDomain(updated), nil
}

func (r *AttendanceRepository) ListForUser(ctx context.Context, userID int64, from, to string) ([]domain.Attendance, error) {
	var models []attendanceModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		query := tx.Model(&attendanceModel{}).Where("user_id = ?", userID)
		if from != "" {
			query = query.Where("date >= ?", from)
		}
		if to != "" {
			query = query.Where("date <= ?", to)
		}
		return query.Order("date DESC").Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list attendance for user: %w", err)
	}

	records := make([]domain.Attendance, 0, len(models))
	for _, model := range models {
		records = append(records, attendanceToDomain(model))
	}
	return records, nil
}

type attendanceUserRow struct {
	ID           int64      `gorm:"column:id"`
	UserID       int64      `gorm:"column:user_id"`
	Date         string     `gorm:"column:date"`
	CheckInTime  *time.Time `gorm:"column:check_in_time"`
	CheckOutTime *time.Time `gorm:"column:check_out_time"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UserName     string     `gorm:"column:user_name"`
	UserEmail    string     `gorm:"column:user_email"`
}

func (r *AttendanceRepository) ListWithUsers(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceWithUser, error) {
	var rows []attendanceUserRow
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		query := tx.Table("attendances").
			Select("attendances.id, attendances.user_id, attendances.date, attendances.check_in_time, attendances.check_out_time, attendances.created_at, users.name AS user_name, users.email AS user_email").
			Joins("JOIN users ON users.id = attendances.user_id AND users.deleted_at IS NULL").
			Where("attendances.deleted_at IS NULL")
		if filter.UserID > 0 {
			query = query.Where("attendances.user_id = ?", filter.UserID)
		}
		if filter.Date != "" {
			query = query.Where("attendances.date = ?", filter.Date)
		}
		return query.Order("attendances.date DESC, attendances.user_id ASC").Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list attendance with users: %w", err)
	}

	result := make([]domain.AttendanceWithUser, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.AttendanceWithUser{
			Attendance: domain.Attendance{
				ID:           row.ID,
				UserID:       row.UserID,
				Date:         row.Date,
				CheckInTime:  row.CheckInTime,
				CheckOutTime: row.CheckOutTime,
				CreatedAt:    row.CreatedAt,
			},
			UserName:  row.UserName,
			UserEmail: row.UserEmail,
		})
	}
	return result, nil
}

func attendanceToDomain(model attendanceModel) domain.Attendance {
	return domain.Attendance{
		ID:           model.ID,
		UserID:       model.UserID,
		Date:         model.Date,
		CheckInTime:  model.CheckInTime,
		CheckOutTime: model.CheckOutTime,
		CreatedAt:    model.CreatedAt,
	}
}

package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dienynas/attendapi/internal/adapters/sqlite/gormsqlite"
	"github.com/dienynas/attendapi/internal/core/domain"
	"github.com/dienynas/attendapi/migrations"
)

func newTestDB(t *testing.T) *gormsqlite.DB {
	t.Helper()

	db, err := gormsqlite.Open(filepath.Join(t.TempDir(), "attend.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	sqlDB, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("write sql db: %v", err)
	}
	if err := migrations.Up(context.Background(), sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gormsqlite.DB, email string) domain.User {
	t.Helper()
	user, err := NewUserRepository(db).Create(context.Background(), domain.User{
		Name:         "Jonas",
		Email:        email,
		PasswordHash: "x",
		Role:         domain.RoleEmployee,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return user
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("write sql db: %v", err)
	}
	if err := migrations.Up(context.Background(), sqlDB); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUserEmailUniqueness(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "jonas@example.com")

	_, err := repo.Create(ctx, domain.User{
		Name:         "Other",
		Email:        "jonas@example.com",
		PasswordHash: "y",
		Role:         domain.RoleEmployee,
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserFindAndUpdate(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "jonas@example.com")

	found, err := repo.FindByEmail(ctx, "jonas@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if found.ID != user.ID {
		t.Fatalf("unexpected user %+v", found)
	}

	found.PhoneNumber = "+37060000000"
	found.Position = "Engineer"
	updated, err := repo.Update(ctx, found)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.PhoneNumber != "+37060000000" || updated.Position != "Engineer" {
		t.Fatalf("update not applied: %+v", updated)
	}

	if _, err := repo.FindByID(ctx, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	missing := updated
	missing.ID = 9999
	if _, err := repo.Update(ctx, missing); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update of missing user, got %v", err)
	}
}

func TestUserListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := seedUser(t, db, "jonas@example.com")
	seedUser(t, db, "ona@example.com")

	all, err := repo.List(ctx, domain.UserFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 users, got %d", len(all))
	}

	byID, err := repo.List(ctx, domain.UserFilter{ID: first.ID})
	if err != nil {
		t.Fatalf("List by id: %v", err)
	}
	if len(byID) != 1 || byID[0].ID != first.ID {
		t.Fatalf("unexpected result %+v", byID)
	}
}

func TestAttendanceSlotConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttendanceRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "jonas@example.com")

	now := time.Now().UTC()
	rec := domain.Attendance{UserID: user.ID, Date: "2024-03-01", CheckInTime: &now}

	created, err := repo.Create(ctx, rec)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 || created.CheckInTime == nil {
		t.Fatalf("unexpected record %+v", created)
	}

	if _, err := repo.Create(ctx, rec); !errors.Is(err, domain.ErrAlreadyCheckedIn) {
		t.Fatalf("expected ErrAlreadyCheckedIn, got %v", err)
	}

	found, err := repo.FindSlot(ctx, user.ID, "2024-03-01")
	if err != nil {
		t.Fatalf("FindSlot: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("unexpected slot %+v", found)
	}

	if _, err := repo.FindSlot(ctx, user.ID, "2024-03-02"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentCheckInsHaveOneWinner(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttendanceRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "jonas@example.com")

	const workers = 8
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			now := time.Now().UTC()
			_, err := repo.Create(ctx, domain.Attendance{UserID: user.ID, Date: "2024-03-01", CheckInTime: &now})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrAlreadyCheckedIn):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != workers-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d/%d", workers-1, wins, conflicts)
	}
}

func TestSetCheckOutLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttendanceRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "jonas@example.com")

	checkOut := time.Now().UTC().Truncate(time.Second)

	if _, err := repo.SetCheckOut(ctx, user.ID, "2024-03-01", checkOut); !errors.Is(err, domain.ErrNoCheckInFound) {
		t.Fatalf("expected ErrNoCheckInFound, got %v", err)
	}

	checkIn := checkOut.Add(-8 * time.Hour)
	if _, err := repo.Create(ctx, domain.Attendance{UserID: user.ID, Date: "2024-03-01", CheckInTime: &checkIn}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	closed, err := repo.SetCheckOut(ctx, user.ID, "2024-03-01", checkOut)
	if err != nil {
		t.Fatalf("SetCheckOut: %v", err)
	}
	if closed.CheckOutTime == nil || !closed.CheckOutTime.Equal(checkOut) {
		t.Fatalf("check-out time not set: %+v", closed)
	}

	if _, err := repo.SetCheckOut(ctx, user.ID, "2024-03-01", checkOut); !errors.Is(err, domain.ErrAlreadyCheckedOut) {
		t.Fatalf("expected ErrAlreadyCheckedOut, got %v", err)
	}
}

func TestListForUserRange(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttendanceRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "jonas@example.com")

	for _, date := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		now := time.Now().UTC()
		if _, err := repo.Create(ctx, domain.Attendance{UserID: user.ID, Date: date, CheckInTime: &now}); err != nil {
			t.Fatalf("Create %s: %v", date, err)
		}
	}

	records, err := repo.ListForUser(ctx, user.ID, "2024-03-02", "2024-03-03")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Newest first.
	if records[0].Date != "2024-03-03" || records[1].Date != "2024-03-02" {
		t.Fatalf("unexpected order: %s, %s", records[0].Date, records[1].Date)
	}
}

func TestListWithUsersJoin(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttendanceRepository(db)
	ctx := context.Background()

	jonas := seedUser(t, db, "jonas@example.com")
	ona := seedUser(t, db, "ona@example.com")

	for _, rec := range []struct {
		userID int64
		date   string
	}{
		{jonas.ID, "2024-03-01"},
		{ona.ID, "2024-03-01"},
		{jonas.ID, "2024-03-02"},
	} {
		now := time.Now().UTC()
		if _, err := repo.Create(ctx, domain.Attendance{UserID: rec.userID, Date: rec.date, CheckInTime: &now}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := repo.ListWithUsers(ctx, domain.AttendanceFilter{})
	if err != nil {
		t.Fatalf("ListWithUsers: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}
	if all[0].UserName == "" || all[0].UserEmail == "" {
		t.Fatalf("user identity not joined: %+v", all[0])
	}

	filtered, err := repo.ListWithUsers(ctx, domain.AttendanceFilter{UserID: jonas.ID, Date: "2024-03-01"})
	if err != nil {
		t.Fatalf("ListWithUsers filtered: %v", err)
	}
	if len(filtered) != 1 {
		t.Fatalf("expected 1 row, got %d", len(filtered))
	}
	if filtered[0].UserID != jonas.ID || filtered[0].UserEmail != "jonas@example.com" {
		t.Fatalf("unexpected row %+v", filtered[0])
	}
}

func TestAuditAppendAndListRecent(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	actor := int64(42)
	for i := 0; i < 3; i++ {
		entry := domain.AuditEntry{
			EventID:     fmt.Sprintf("evt-%d", i),
			ActorUserID: &actor,
			Action:      domain.EventCheckIn,
			Payload:     `{"userId":42}`,
		}
		if err := repo.Append(ctx, entry); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].EventID != "evt-2" || entries[1].EventID != "evt-1" {
		t.Fatalf("unexpected order: %s, %s", entries[0].EventID, entries[1].EventID)
	}
	if entries[0].ActorUserID == nil || *entries[0].ActorUserID != 42 {
		t.Fatalf("actor not persisted: %+v", entries[0])
	}
}

func TestAuditDeadLetterAppend(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuditRepository(db)

	err := repo.AppendDeadLetter(context.Background(), domain.AuditDeadLetter{
		Action:    domain.EventCheckOut,
		Payload:   `{"userId":42}`,
		Attempts:  3,
		LastError: "db locked",
	})
	if err != nil {
		t.Fatalf("AppendDeadLetter: %v", err)
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/dienynas/attendapi/internal/adapters/events"
	"github.com/dienynas/attendapi/internal/adapters/httpapi"
	"github.com/dienynas/attendapi/internal/adapters/photostore"
	sqliteadapter "github.com/dienynas/attendapi/internal/adapters/sqlite"
	"github.com/dienynas/attendapi/internal/adapters/sqlite/gormsqlite"
	"github.com/dienynas/attendapi/internal/core/domain"
	"github.com/dienynas/attendapi/internal/core/ports"
	"github.com/dienynas/attendapi/internal/core/usecase"
	"github.com/dienynas/attendapi/migrations"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Addr     string
	DBPath   string
	PhotoDir string

	JWTSecret string
	JWTTTL    time.Duration
	Timezone  string

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
	BootstrapAdminName     string

	WebhookURL    string
	WebhookSecret string
}

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func NewServer(ctx context.Context, cfg Config) (*http.Server, io.Closer, error) {
	if cfg.JWTSecret == "" {
		return nil, nil, errors.New("jwt secret is required")
	}

	loc := time.UTC
	if cfg.Timezone != "" {
		parsed, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
		loc = parsed
	}
	clock := domain.NewSystemClock(loc)

	db, err := gormsqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(migrateCtx, writeSQLDB); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	userRepo := sqliteadapter.NewUserRepository(db)
	attendanceRepo := sqliteadapter.NewAttendanceRepository(db)
	auditRepo := sqliteadapter.NewAuditRepository(db)

	photos, err := photostore.NewLocal(cfg.PhotoDir)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	// The bus is a single instance shared by reference; all subscriptions
	// happen here, before the server accepts its first request.
	bus := events.NewBus()

	auditConsumer := usecase.NewAuditConsumer(auditRepo)
	auditConsumer.Register(bus)

	if cfg.WebhookURL != "" {
		sink := events.NewWebhookSink(cfg.WebhookURL, cfg.WebhookSecret, 0)
		for _, name := range domain.AuditedEvents {
			bus.Subscribe(name, sink.Handle)
		}
	}

	attendanceService := usecase.NewAttendanceService(attendanceRepo, bus, clock)
	userService := usecase.NewUserService(userRepo, photos, bus, clock)
	authService := usecase.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL, clock)
	auditService := usecase.NewAuditService(auditRepo)

	if cfg.BootstrapAdminEmail != "" && cfg.BootstrapAdminPassword != "" {
		bootstrapCtx, bootstrapCancel := context.WithTimeout(ctx, 5*time.Second)
		err := bootstrapAdmin(bootstrapCtx, userRepo, cfg)
		bootstrapCancel()
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	handler, err := httpapi.NewHandler(attendanceService, userService, authService, auditService)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Close the bus before the database so in-flight audit writes land.
	return server, resourceCloser{closers: []io.Closer{bus, db}}, nil
}

func bootstrapAdmin(ctx context.Context, users ports.UserRepository, cfg Config) error {
	existing, err := users.FindByEmail(ctx, cfg.BootstrapAdminEmail)
	if err == nil {
		log.Printf("bootstrap admin %s already exists (id=%d)", existing.Email, existing.ID)
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	name := cfg.BootstrapAdminName
	if name == "" {
		name = "Administrator"
	}

	created, err := users.Create(ctx, domain.User{
		Name:         name,
		Email:        cfg.BootstrapAdminEmail,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	})
	if err != nil {
		return err
	}

	log.Printf("bootstrap admin %s created (id=%d)", created.Email, created.ID)
	return nil
}

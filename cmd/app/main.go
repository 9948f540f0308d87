package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dienynas/attendapi/internal/app"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "attendapi",
		Usage: "Employee attendance API with an audited event trail",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: ":8080",
				Usage: "HTTP listen address",
			},
			&cli.StringFlag{
				Name:  "db-path",
				Value: "./attendapi.sqlite",
				Usage: "SQLite file path",
			},
			&cli.StringFlag{
				Name:  "photo-dir",
				Value: "./photos",
				Usage: "Directory for profile photo storage",
			},
			&cli.StringFlag{
				Name:    "jwt-secret",
				Sources: cli.EnvVars("ATTENDAPI_JWT_SECRET"),
				Usage:   "HMAC secret for access tokens (required)",
			},
			&cli.DurationFlag{
				Name:    "jwt-ttl",
				Value:   24 * time.Hour,
				Sources: cli.EnvVars("ATTENDAPI_JWT_TTL"),
				Usage:   "Access token lifetime",
			},
			&cli.StringFlag{
				Name:    "timezone",
				Sources: cli.EnvVars("ATTENDAPI_TIMEZONE"),
				Usage:   "IANA timezone for attendance day boundaries (default UTC)",
			},
			&cli.StringFlag{
				Name:    "bootstrap-admin-email",
				Sources: cli.EnvVars("ATTENDAPI_BOOTSTRAP_ADMIN_EMAIL"),
				Usage:   "Optional admin account to seed at startup",
			},
			&cli.StringFlag{
				Name:    "bootstrap-admin-password",
				Sources: cli.EnvVars("ATTENDAPI_BOOTSTRAP_ADMIN_PASSWORD"),
				Usage:   "Password for the seeded admin account",
			},
			&cli.StringFlag{
				Name:    "bootstrap-admin-name",
				Value:   "Administrator",
				Sources: cli.EnvVars("ATTENDAPI_BOOTSTRAP_ADMIN_NAME"),
				Usage:   "Display name for the seeded admin account",
			},
			&cli.StringFlag{
				Name:    "webhook-url",
				Sources: cli.EnvVars("ATTENDAPI_WEBHOOK_URL"),
				Usage:   "Optional webhook target for domain events",
			},
			&cli.StringFlag{
				Name:    "webhook-secret",
				Sources: cli.EnvVars("ATTENDAPI_WEBHOOK_SECRET"),
				Usage:   "HMAC-SHA256 signing secret for outbound webhook requests",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := app.Config{
				Addr:                   c.String("addr"),
				DBPath:                 c.String("db-path"),
				PhotoDir:               c.String("photo-dir"),
				JWTSecret:              c.String("jwt-secret"),
				JWTTTL:                 c.Duration("jwt-ttl"),
				Timezone:               c.String("timezone"),
				BootstrapAdminEmail:    c.String("bootstrap-admin-email"),
				BootstrapAdminPassword: c.String("bootstrap-admin-password"),
				BootstrapAdminName:     c.String("bootstrap-admin-name"),
				WebhookURL:             c.String("webhook-url"),
				WebhookSecret:          c.String("webhook-secret"),
			}

			server, closer, err := app.NewServer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer func() {
				if closeErr := closer.Close(); closeErr != nil {
					log.Printf("close resources: %v", closeErr)
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s", cfg.Addr)
				errCh <- server.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case sig := <-sigCh:
				log.Printf("received signal %s", sig)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

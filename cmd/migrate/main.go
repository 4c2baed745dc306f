// Command migrate manages the database schema and bootstrap data.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"realtyhub/internal/config"
	"realtyhub/internal/log"
	"realtyhub/internal/migrate"
	"realtyhub/internal/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := log.New(cfg.Environment, cfg.Logging.Level)

	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "migrate",
		Usage: "Manage the realtyhub schema, permission catalog and admin accounts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dsn", Value: cfg.Postgres.DSN, Usage: "postgres connection string"},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply pending migrations",
				Action: withManager(logger, func(ctx context.Context, m *migrate.Manager, _ *cli.Command) error {
					return m.Up(ctx)
				}),
			},
			{
				Name:  "down",
				Usage: "Roll back the latest migration",
				Action: withManager(logger, func(ctx context.Context, m *migrate.Manager, _ *cli.Command) error {
					version, err := m.Down(ctx)
					if errors.Is(err, migrate.ErrNothingToRollback) {
						logger.Info().Msg("nothing to roll back")
						return nil
					}
					if err != nil {
						return err
					}
					logger.Info().Int64("version", version).Msg("rolled back")
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "Show applied and pending migrations",
				Action: withManager(logger, func(ctx context.Context, m *migrate.Manager, _ *cli.Command) error {
					return m.Status(ctx)
				}),
			},
			{
				Name:  "seed",
				Usage: "Upsert the permission catalog",
				Action: withManager(logger, func(ctx context.Context, m *migrate.Manager, _ *cli.Command) error {
					n, err := m.SeedPermissions(ctx)
					if err != nil {
						return err
					}
					logger.Info().Int("permissions", n).Msg("permission catalog seeded")
					return nil
				}),
			},
			createAdminCommand(logger),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		logger.Error().Err(err).Msg("migrate failed")
		os.Exit(1)
	}
}

// withManager opens the database named by --dsn for the length of one command.
func withManager(logger zerolog.Logger, fn func(ctx context.Context, m *migrate.Manager, c *cli.Command) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		dsn := c.String("dsn")
		if dsn == "" {
			return errors.New("postgres dsn is required (postgres.dsn or --dsn)")
		}
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		return fn(ctx, migrate.New(db, migrate.WithLogger(logger)), c)
	}
}

func createAdminCommand(logger zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "Create an admin account, or reset the password and role of an existing one",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "name", Value: "Administrator"},
			&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("REALTYHUB_ADMIN_PASSWORD")},
			&cli.StringFlag{Name: "role", Value: string(models.RoleSuperAdmin)},
		},
		Action: withManager(logger, func(ctx context.Context, m *migrate.Manager, c *cli.Command) error {
			id, created, err := m.EnsureAdmin(ctx, migrate.AdminSpec{
				Name:     c.String("name"),
				Email:    c.String("email"),
				Password: c.String("password"),
				Role:     models.UserRole(c.String("role")),
			})
			if err != nil {
				return err
			}
			msg := "admin updated"
			if created {
				msg = "admin created"
			}
			logger.Info().Str("user_id", id).Str("email", c.String("email")).Str("role", c.String("role")).Msg(msg)
			return nil
		}),
	}
}

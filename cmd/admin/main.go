// Package main implements lingua-admin, the operator CLI for the Lingua server.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/DukeRupert/lingua/internal"
	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/DukeRupert/lingua/internal/repository"
	"github.com/DukeRupert/lingua/internal/service"
	"github.com/DukeRupert/lingua/internal/session"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lingua-admin",
	Short: "Operator commands for the Lingua server",
	Long: `lingua-admin runs maintenance tasks against the Lingua database and
exercises the session API the way the browser client does.

Database commands read DATABASE_URL (and a .env file when present).`,
	SilenceUsage: true,
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "admin email address (required)")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password (required)")
	createAdminCmd.Flags().StringVar(&adminName, "name", "Administrator", "admin display name")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")

	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "print the state of every migration instead of applying")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
}

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, logger, err := openDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		if migrateStatus {
			return internal.MigrationStatus(db)
		}

		if err := internal.RunMigrations(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations applied")
		return nil
	},
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account or promote an existing one",
	Long: `Create an admin account, or give the admin role to the account that
already uses the email.

Examples:
  lingua-admin create-admin --email ops@example.com --password 'change-me-now'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, logger, err := openDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := internal.RunMigrations(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		repo := repository.New(db)
		users := service.NewUserService(repo, session.NewPostgresStore(repo), service.UserServiceConfig{
			SessionDuration: cfg.SessionDuration,
			AdminEmails:     cfg.AdminEmails,
		}, logger)

		user, created, err := users.EnsureAdmin(cmd.Context(), domain.RegisterParams{
			FullName: adminName,
			Email:    adminEmail,
			Password: adminPassword,
		})
		if err != nil {
			return fmt.Errorf("%s", domain.ErrorMessage(err))
		}

		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", user.Email, user.ID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Promoted %s (%s) to admin\n", user.Email, user.ID)
		}
		return nil
	},
}

func openDatabase(ctx context.Context) (*internal.Config, *sql.DB, *slog.Logger, error) {
	cfg, err := internal.NewConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config initialization failed: %w", err)
	}
	logger := internal.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)

	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("database ping failed: %w", err)
	}
	return cfg, db, logger, nil
}

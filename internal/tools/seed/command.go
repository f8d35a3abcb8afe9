// Package seed provides developer tooling for populating a local database
// with a verified demo account and sample ledger data.
package seed

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/myfinance/backend/internal/config"
	"github.com/myfinance/backend/internal/database"
	"github.com/myfinance/backend/internal/domain"
	"github.com/myfinance/backend/internal/repository"
	"github.com/myfinance/backend/internal/security"
	"github.com/myfinance/backend/internal/service"
)

type options struct {
	envFile string
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Database seed tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.AddCommand(newApplyCommand(opts), newVerifyEmailCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	var (
		email    string
		username string
		password string
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create a verified demo user with sample records",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			_, db, cleanup, err := loadConfigDB(ctx, opts.envFile)
			if err != nil {
				return err
			}
			defer cleanup()

			users := repository.NewUserRepository(db)
			if _, err := users.FindByEmail(ctx, email); err == nil {
				fmt.Printf("user already exists: %s\n", email)
				return nil
			}

			hash, err := security.HashSecret(password)
			if err != nil {
				return err
			}
			user := &domain.User{
				Username:     username,
				Email:        strings.ToLower(email),
				PasswordHash: hash,
				Verified:     true,
			}
			if err := users.Create(ctx, user); err != nil {
				return err
			}

			expenses := service.NewExpenseService(repository.NewExpenseRepository(db))
			incomes := service.NewIncomeService(repository.NewIncomeRepository(db))
			today := time.Now().Format("2006-01-02")
			samples := []struct {
				svc *service.LedgerService
				in  service.EntryInput
			}{
				{expenses, service.EntryInput{Title: "Groceries", Amount: 54.20, Category: "food", Date: today}},
				{expenses, service.EntryInput{Title: "Monthly rent", Amount: 1200, Category: "rent", Date: today}},
				{expenses, service.EntryInput{Title: "Bus pass", Amount: 49.90, Category: "transport", Date: today}},
				{incomes, service.EntryInput{Title: "Salary", Amount: 4200, Category: "salary", Date: today}},
				{incomes, service.EntryInput{Title: "Side project", Amount: 350, Category: "freelance", Date: today}},
			}
			for _, s := range samples {
				if _, err := s.svc.Create(ctx, user.ID, s.in); err != nil {
					return err
				}
			}

			fmt.Printf("seeded user %s with %d sample records\n", email, len(samples))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "demo@finance-tracker.local", "demo user email")
	cmd.Flags().StringVar(&username, "username", "demo", "demo user username")
	cmd.Flags().StringVar(&password, "password", "demo-password", "demo user password")
	return cmd
}

func newVerifyEmailCommand(opts *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "verify-email",
		Short: "Mark a user's email as verified",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("email is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			_, db, cleanup, err := loadConfigDB(ctx, opts.envFile)
			if err != nil {
				return err
			}
			defer cleanup()

			users := repository.NewUserRepository(db)
			user, err := users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
			if err != nil {
				return err
			}
			if err := users.MarkVerified(ctx, user.ID); err != nil {
				return err
			}
			fmt.Printf("marked email verified: %s\n", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email to mark verified")
	return cmd
}

func loadConfigDB(ctx context.Context, envFile string) (*config.Config, *mongo.Database, func(), error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}
	db := client.Database(cfg.MongoDatabase)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return cfg, db, cleanup, nil
}

// loadEnvFile sets KEY=VALUE pairs from a file without overriding variables
// already present in the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if key == "" || os.Getenv(key) != "" {
			continue
		}
		os.Setenv(key, value)
	}
	return scanner.Err()
}

// Command create-admin creates the admin account, or resets its password
// when the account already exists.
//
//	create-admin -email admin@example.com
//
// The password is read from ADMIN_PASSWORD or, when unset, from the first
// line of stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/msomdec/portfolio-api/internal/config"
	"github.com/msomdec/portfolio-api/internal/repository/sqlite"
	"github.com/msomdec/portfolio-api/internal/service"
)

func main() {
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin e-mail address")
	flag.Parse()

	if err := run(context.Background(), *email); err != nil {
		slog.Error("create admin", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, email string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if email == "" {
		return errors.New("-email or ADMIN_EMAIL is required")
	}
	password, err := readPassword()
	if err != nil {
		return err
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	auth := service.NewAuthService(db.Users(), cfg.JWTSecret, cfg.BcryptCost, cfg.AccessTokenTTL)
	user, created, err := auth.EnsureAdmin(ctx, email, password)
	if err != nil {
		return err
	}
	if created {
		slog.Info("admin created", "user_id", user.ID, "email", user.Email)
	} else {
		slog.Info("admin password reset", "user_id", user.ID, "email", user.Email)
	}
	return nil
}

func readPassword() (string, error) {
	if pw := os.Getenv("ADMIN_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

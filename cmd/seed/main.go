// seed inserts a known active user into the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/emberhollow/auth-service/internal/infrastructure/postgres"
	"golang.org/x/crypto/bcrypt"
)

const (
	seedEmail    = "seed@test.local"
	seedPassword = "seed-password-123"
)

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set — run: direnv allow")
	}

	if err := postgres.RunMigrations(dbURL); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	// Upsert so re-runs are idempotent.
	var userID string
	err = pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = NOW()
		RETURNING id`,
		seedEmail, string(hash),
	).Scan(&userID)
	if err != nil {
		log.Fatalf("upsert user: %v", err)
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  User:     %s\n", seedEmail)
	fmt.Printf("  Password: %s\n", seedPassword)
	fmt.Printf("  ID:       %s\n", userID)
}

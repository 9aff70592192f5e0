package repository

import (
	"context"
	"time"

	"github.com/emberhollow/auth-service/internal/domain"
)

type MagicLinkRepository interface {
	// Create generates a fresh unpredictable token and persists the link.
	Create(ctx context.Context, userID string, expiresAt time.Time) (*domain.MagicLink, error)

	// Find is an exact-match lookup by token, used or not.
	Find(ctx context.Context, rawToken string) (*domain.MagicLink, error)

	// Redeem atomically claims an unused, unexpired link and returns it.
	// At most one concurrent caller can win; losers get ErrLinkInvalid
	// (or ErrLinkNotFound if no such token exists at all).
	Redeem(ctx context.Context, rawToken string) (*domain.MagicLink, error)

	// PurgeExpired deletes links whose expiry is before the cutoff and
	// returns how many were removed.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

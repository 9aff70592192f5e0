package postgres

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emberhollow/auth-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	linkColumns = `id, user_id, token, expires_at, used_at, created_at`

	// 32 bytes of entropy, URL-safe. Collisions are cryptographically
	// negligible but the unique constraint backstops them anyway.
	tokenBytes = 32

	maxTokenAttempts = 3
)

type MagicLinkRepository struct {
	pool *pgxpool.Pool
}

func NewMagicLinkRepository(pool *pgxpool.Pool) *MagicLinkRepository {
	return &MagicLinkRepository{pool: pool}
}

func newLinkToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (r *MagicLinkRepository) Create(ctx context.Context, userID string, expiresAt time.Time) (*domain.MagicLink, error) {
	query := `
		INSERT INTO magic_links (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING ` + linkColumns

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := newLinkToken()
		if err != nil {
			return nil, err
		}

		row := r.pool.QueryRow(ctx, query, userID, token, expiresAt)
		link, err := scanMagicLink(row)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "magic_links_token_key" {
				continue
			}
			return nil, err
		}
		return link, nil
	}
	return nil, fmt.Errorf("magic link token collision after %d attempts", maxTokenAttempts)
}

func (r *MagicLinkRepository) Find(ctx context.Context, rawToken string) (*domain.MagicLink, error) {
	query := `SELECT ` + linkColumns + ` FROM magic_links WHERE token = $1`
	return scanMagicLink(r.pool.QueryRow(ctx, query, rawToken))
}

// Redeem claims the link with a single conditional UPDATE. The used_at
// guard makes redemption exactly-once across every process sharing the
// database; no other locking is involved.
func (r *MagicLinkRepository) Redeem(ctx context.Context, rawToken string) (*domain.MagicLink, error) {
	query := `
		UPDATE magic_links
		SET    used_at = NOW()
		WHERE  token      = $1
		  AND  used_at    IS NULL
		  AND  expires_at > NOW()
		RETURNING ` + linkColumns

	link, err := scanMagicLink(r.pool.QueryRow(ctx, query, rawToken))
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, domain.ErrLinkNotFound) {
		return nil, err
	}

	// Nothing claimed: tell absent apart from used/expired so callers can
	// log the difference. Both collapse to one error at the API boundary.
	if _, findErr := r.Find(ctx, rawToken); findErr != nil {
		return nil, findErr
	}
	return nil, domain.ErrLinkInvalid
}

func (r *MagicLinkRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM magic_links WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge magic links: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanMagicLink(row rowScanner) (*domain.MagicLink, error) {
	var m domain.MagicLink
	err := row.Scan(&m.ID, &m.UserID, &m.Token, &m.ExpiresAt, &m.UsedAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, fmt.Errorf("scan magic link: %w", err)
	}
	return &m, nil
}

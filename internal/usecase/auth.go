package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emberhollow/auth-service/internal/domain"
	"github.com/emberhollow/auth-service/internal/email"
	"github.com/emberhollow/auth-service/internal/metrics"
	"github.com/emberhollow/auth-service/internal/repository"
	"github.com/emberhollow/auth-service/internal/token"
	"golang.org/x/crypto/bcrypt"
)

// AuthUsecase is the authentication gate: password login, magic-link
// lifecycle, and bearer-token authentication all flow through it. It is
// stateless between calls; the stores carry all shared state.
type AuthUsecase struct {
	users         repository.UserRepository
	links         repository.MagicLinkRepository
	codec         *token.Codec
	email         email.Sender
	linkTTL       time.Duration
	defaultOrigin string
}

func NewAuthUsecase(
	users repository.UserRepository,
	links repository.MagicLinkRepository,
	codec *token.Codec,
	emailSender email.Sender,
	linkTTL time.Duration,
	defaultOrigin string,
) *AuthUsecase {
	return &AuthUsecase{
		users:         users,
		links:         links,
		codec:         codec,
		email:         emailSender,
		linkTTL:       linkTTL,
		defaultOrigin: defaultOrigin,
	}
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Register creates an account and logs it in. Duplicate emails (case
// insensitive) return domain.ErrEmailTaken.
func (u *AuthUsecase) Register(ctx context.Context, emailAddr, password string) (string, *domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := u.users.Create(ctx, normalizeEmail(emailAddr), string(hash))
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return "", nil, domain.ErrEmailTaken
		}
		return "", nil, fmt.Errorf("create user: %w", err)
	}

	signed, err := u.issue(user)
	if err != nil {
		return "", nil, err
	}
	metrics.RegistrationsTotal.Inc()
	return signed, user, nil
}

// Login checks the password. Unknown email, wrong password, and inactive
// account all return domain.ErrInvalidCredentials so failures reveal
// nothing about which accounts exist.
func (u *AuthUsecase) Login(ctx context.Context, emailAddr, password string) (string, *domain.User, error) {
	user, err := u.users.FindByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("password", "failure").Inc()
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil || !user.IsActive {
		metrics.LoginsTotal.WithLabelValues("password", "failure").Inc()
		return "", nil, domain.ErrInvalidCredentials
	}

	signed, err := u.issue(user)
	if err != nil {
		return "", nil, err
	}
	metrics.LoginsTotal.WithLabelValues("password", "success").Inc()
	return signed, user, nil
}

// RequestMagicLink creates a single-use login link for an active account
// and emails it. The login URL points at the caller-supplied origin, or
// the configured default when the request carried none.
//
// Unknown emails return domain.ErrUserNotFound, which the transport maps
// to a distinct 404. That reveals account existence; kept deliberately
// to preserve the API contract (see DESIGN.md).
func (u *AuthUsecase) RequestMagicLink(ctx context.Context, emailAddr, origin string) error {
	user, err := u.users.FindByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return domain.ErrUserNotFound
	}

	link, err := u.links.Create(ctx, user.ID, time.Now().Add(u.linkTTL))
	if err != nil {
		return fmt.Errorf("create magic link: %w", err)
	}

	if origin == "" {
		origin = u.defaultOrigin
	}
	loginURL := origin + "/auth/verify?token=" + link.Token
	minutes := int(u.linkTTL.Minutes())

	subject := "Your login link"
	body := fmt.Sprintf(
		`<p>Hello %s,</p>
<p>Click the link below to log in to your account:</p>
<p><a href="%s">%s</a></p>
<p>This link will expire in %d minutes.</p>
<p>If you didn't request this link, please ignore this email.</p>`,
		user.Email, loginURL, loginURL, minutes,
	)

	// Sent synchronously: success here means the provider accepted the
	// message, not that it was delivered.
	if err := u.email.Send(ctx, user.Email, subject, body); err != nil {
		return fmt.Errorf("send magic link: %w", err)
	}

	metrics.MagicLinksIssuedTotal.Inc()
	return nil
}

// VerifyMagicLink redeems a link token and logs its owner in. Absent,
// expired, and already-used links are indistinguishable to the caller:
// all return domain.ErrLinkInvalid.
func (u *AuthUsecase) VerifyMagicLink(ctx context.Context, rawToken string) (string, *domain.User, error) {
	link, err := u.links.Redeem(ctx, rawToken)
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) || errors.Is(err, domain.ErrLinkInvalid) {
			metrics.MagicLinkRedemptionsTotal.WithLabelValues("invalid").Inc()
			return "", nil, domain.ErrLinkInvalid
		}
		return "", nil, fmt.Errorf("redeem magic link: %w", err)
	}

	user, err := u.users.FindByID(ctx, link.UserID)
	if err != nil {
		return "", nil, fmt.Errorf("find user: %w", err)
	}

	signed, err := u.issue(user)
	if err != nil {
		return "", nil, err
	}
	metrics.MagicLinkRedemptionsTotal.WithLabelValues("success").Inc()
	metrics.LoginsTotal.WithLabelValues("magic_link", "success").Inc()
	return signed, user, nil
}

// Authenticate resolves a bearer token to its current user. The store,
// not the signature, is the authority: a cryptographically valid token
// for a deactivated or deleted account is rejected.
func (u *AuthUsecase) Authenticate(ctx context.Context, rawToken string) (*domain.User, error) {
	claims, err := u.codec.Verify(rawToken)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	user, err := u.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}

func (u *AuthUsecase) issue(user *domain.User) (string, error) {
	signed, err := u.codec.Issue(user)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	metrics.TokensIssuedTotal.Inc()
	return signed, nil
}

package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/emberhollow/auth-service/internal/domain"
	"github.com/emberhollow/auth-service/internal/transport/http/handler"
	"github.com/emberhollow/auth-service/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAuthUsecase implements the unexported authUsecaser interface via method matching.
type fakeAuthUsecase struct {
	register         func(ctx context.Context, email, password string) (string, *domain.User, error)
	login            func(ctx context.Context, email, password string) (string, *domain.User, error)
	requestMagicLink func(ctx context.Context, email, origin string) error
	verifyMagicLink  func(ctx context.Context, rawToken string) (string, *domain.User, error)
}

func (f *fakeAuthUsecase) Register(ctx context.Context, email, password string) (string, *domain.User, error) {
	return f.register(ctx, email, password)
}

func (f *fakeAuthUsecase) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return f.login(ctx, email, password)
}

func (f *fakeAuthUsecase) RequestMagicLink(ctx context.Context, email, origin string) error {
	return f.requestMagicLink(ctx, email, origin)
}

func (f *fakeAuthUsecase) VerifyMagicLink(ctx context.Context, rawToken string) (string, *domain.User, error) {
	return f.verifyMagicLink(ctx, rawToken)
}

type fakeVerifier struct {
	authenticate func(ctx context.Context, rawToken string) (*domain.User, error)
}

func (f *fakeVerifier) Authenticate(ctx context.Context, rawToken string) (*domain.User, error) {
	return f.authenticate(ctx, rawToken)
}

var testUser = &domain.User{
	ID:        "user-1",
	Email:     "bob@x.com",
	IsActive:  true,
	CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
}

func newTestEngine(uc *fakeAuthUsecase, verifier *fakeVerifier) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	h := handler.NewAuthHandler(uc, logger)

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/magic-link/request", h.RequestMagicLink)
	r.POST("/auth/magic-link/verify", h.VerifyMagicLink)
	r.GET("/auth/me", middleware.Auth(verifier), h.Me)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// ---- Register ----

func TestRegister_InvalidJSON_Returns400(t *testing.T) {
	w := doJSON(t, newTestEngine(&fakeAuthUsecase{}, &fakeVerifier{}),
		http.MethodPost, "/auth/register", `{bad json}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRegister_ShortPassword_Returns400(t *testing.T) {
	w := doJSON(t, newTestEngine(&fakeAuthUsecase{}, &fakeVerifier{}),
		http.MethodPost, "/auth/register", `{"email":"bob@x.com","password":"short"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRegister_DuplicateEmail_Returns400(t *testing.T) {
	uc := &fakeAuthUsecase{
		register: func(_ context.Context, _, _ string) (string, *domain.User, error) {
			return "", nil, domain.ErrEmailTaken
		},
	}
	w := doJSON(t, newTestEngine(uc, &fakeVerifier{}),
		http.MethodPost, "/auth/register", `{"email":"bob@x.com","password":"secret123"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "already exists") {
		t.Errorf("body %q lacks duplicate-email message", w.Body.String())
	}
}

func TestRegister_Success_Returns201WithEnvelope(t *testing.T) {
	uc := &fakeAuthUsecase{
		register: func(_ context.Context, _, _ string) (string, *domain.User, error) {
			return "signed-jwt", testUser, nil
		},
	}
	w := doJSON(t, newTestEngine(uc, &fakeVerifier{}),
		http.MethodPost, "/auth/register", `{"email":"bob@x.com","password":"secret123"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}

	var envelope struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		User        struct {
			ID       string `json:"id"`
			Email    string `json:"email"`
			IsActive bool   `json:"is_active"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.AccessToken != "signed-jwt" {
		t.Errorf("access_token = %q, want %q", envelope.AccessToken, "signed-jwt")
	}
	if envelope.TokenType != "bearer" {
		t.Errorf("token_type = %q, want bearer", envelope.TokenType)
	}
	if envelope.User.Email != testUser.Email || !envelope.User.IsActive {
		t.Errorf("user view = %+v, want active %s", envelope.User, testUser.Email)
	}
	if !strings.Contains(w.Body.String(), "date_joined") {
		t.Error("user view lacks date_joined")
	}
}

// ---- Login ----

func TestLogin_InvalidCredentials_Returns401(t *testing.T) {
	uc := &fakeAuthUsecase{
		login: func(_ context.Context, _, _ string) (string, *domain.User, error) {
			return "", nil, domain.ErrInvalidCredentials
		},
	}
	w := doJSON(t, newTestEngine(uc, &fakeVerifier{}),
		http.MethodPost, "/auth/login", `{"email":"bob@x.com","password":"wrongpass1"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLogin_Success_Returns200(t *testing.T) {
	uc := &fakeAuthUsecase{
		login: func(_ context.Context, _, _ string) (string, *domain.User, error) {
			return "signed-jwt", testUser, nil
		},
	}
	w := doJSON(t, newTestEngine(uc, &fakeVerifier{}),
		http.MethodPost, "/auth/login", `{"email":"bob@x.com","password":"secret123"}`)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "signed-jwt") {
		t.Errorf("body %q lacks access token", w.Body.String())
	}
}

// ---- RequestMagicLink ----

func TestRequestMagicLink_UnknownEmail_Returns404(t *testing.T) {
	uc := &fakeAuthUsecase{
		requestMagicLink: func(_ context.Context, _, _ string) error {
			return domain.ErrUserNotFound
		},
	}
	w := doJSON(t, newTestEngine(uc, &fakeVerifier{}),
		http.MethodPost, "/auth/magic-link/request", `{"email":"nobody@x.com"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRequestMagicLink_PassesOriginHeader(t *testing.T) {
	var capturedOrigin string
	uc := &fakeAuthUsecase{
		requestMagicLink: func(_ context.Context, _, origin string) error {
			capturedOrigin = origin
			return nil
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/magic-link/request",
		strings.NewReader(`{"email":"bob@x.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://app.example.com")
	newTestEngine(uc, &fakeVerifier{}).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if capturedOrigin != "https://app.example.com" {
		t.Errorf("origin = %q, want caller's Origin header", capturedOrigin)
	}
}

func TestRequestMagicLink_InternalError_Returns500(t *testing.T) {
	uc := &fakeAuthUsecase{
		requestMagicLink: func(_ context.Context, _, _ string) error {
			return errors.New("smtp down")
		},
	}
	w := doJSON(t, newTestEngine(uc, &fakeVerifier{}),
		http.MethodPost, "/auth/magic-link/request", `{"email":"bob@x.com"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ---- VerifyMagicLink ----

func TestVerifyMagicLink_MissingToken_Returns400(t *testing.T) {
	w := doJSON(t, newTestEngine(&fakeAuthUsecase{}, &fakeVerifier{}),
		http.MethodPost, "/auth/magic-link/verify", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestVerifyMagicLink_InvalidLink_Returns400(t *testing.T) {
	uc := &fakeAuthUsecase{
		verifyMagicLink: func(_ context.Context, _ string) (string, *domain.User, error) {
			return "", nil, domain.ErrLinkInvalid
		},
	}
	w := doJSON(t, newTestEngine(uc, &fakeVerifier{}),
		http.MethodPost, "/auth/magic-link/verify", `{"token":"dead-token"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestVerifyMagicLink_Success_Returns200WithEnvelope(t *testing.T) {
	uc := &fakeAuthUsecase{
		verifyMagicLink: func(_ context.Context, rawToken string) (string, *domain.User, error) {
			if rawToken != "good-token" {
				return "", nil, domain.ErrLinkInvalid
			}
			return "signed-jwt", testUser, nil
		},
	}
	w := doJSON(t, newTestEngine(uc, &fakeVerifier{}),
		http.MethodPost, "/auth/magic-link/verify", `{"token":"good-token"}`)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "signed-jwt") {
		t.Errorf("body %q lacks access token", w.Body.String())
	}
}

// ---- Me ----

func TestMe_MissingHeader_Returns401(t *testing.T) {
	verifier := &fakeVerifier{}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	newTestEngine(&fakeAuthUsecase{}, verifier).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestMe_ValidToken_ReturnsUserView(t *testing.T) {
	verifier := &fakeVerifier{
		authenticate: func(_ context.Context, rawToken string) (*domain.User, error) {
			if rawToken != "valid-token" {
				return nil, domain.ErrUnauthorized
			}
			return testUser, nil
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	newTestEngine(&fakeAuthUsecase{}, verifier).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), testUser.Email) {
		t.Errorf("body %q lacks user email", w.Body.String())
	}
}

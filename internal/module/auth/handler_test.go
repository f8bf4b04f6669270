package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/itemhub/internal/middleware"
	"github.com/simp-lee/itemhub/internal/token"
)

type testEnv struct {
	router *gin.Engine
	repo   *fakeUserRepo
	tokens *token.Service
}

func setupAuthRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := token.NewService(token.Options{Secret: "handler-test-secret-0123456789abcdef", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	if err != nil {
		t.Fatalf("token.NewService: %v", err)
	}
	repo := newFakeUserRepo()
	svc := NewService(repo, tokens, bcrypt.MinCost)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := gin.New()
	api := r.Group("/api/v1", middleware.ErrorHandler(logger))
	protected := api.Group("", middleware.RequireAuth(tokens, svc))
	NewModule(NewHandler(svc)).RegisterRoutes(api, protected)

	return &testEnv{router: r, repo: repo, tokens: tokens}
}

type envelope struct {
	Success      bool            `json:"success"`
	ResponseCode int             `json:"response_code"`
	Message      string          `json:"message"`
	Data         json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, body, bearer string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid envelope %q: %v", w.Body.String(), err)
	}
	return w, env
}

func decodePair(t *testing.T, raw json.RawMessage) token.Pair {
	t.Helper()
	var pair token.Pair
	if err := json.Unmarshal(raw, &pair); err != nil {
		t.Fatalf("decode token pair: %v", err)
	}
	return pair
}

func TestRegister_Success(t *testing.T) {
	env := setupAuthRouter(t)

	w, resp := env.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"alice@example.com","password":"secret1234"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; want 201 (%s)", w.Code, w.Body.String())
	}
	if !resp.Success || resp.ResponseCode != 201 || resp.Message != "User registered successfully" {
		t.Errorf("unexpected envelope %+v", resp)
	}
	pair := decodePair(t, resp.Data)
	if pair.TokenType != "bearer" || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Errorf("unexpected pair %+v", pair)
	}
	if _, err := env.tokens.DecodeAs(pair.AccessToken, token.Access); err != nil {
		t.Errorf("access token does not verify: %v", err)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("hashed_password")) || bytes.Contains(w.Body.Bytes(), []byte("secret1234")) {
		t.Error("response must not expose credentials")
	}
}

func TestRegister_ShortPasswordAccepted(t *testing.T) {
	env := setupAuthRouter(t)

	w, _ := env.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"short@example.com","password":"a"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; want 201 (%s)", w.Code, w.Body.String())
	}
	w, _ = env.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"short@example.com","password":"a"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d; want 200 (%s)", w.Code, w.Body.String())
	}
}

func TestRegister_Duplicate(t *testing.T) {
	env := setupAuthRouter(t)
	body := `{"email":"dup@example.com","password":"secret1234"}`
	env.do(t, http.MethodPost, "/api/v1/auth/register", body, "")

	w, resp := env.do(t, http.MethodPost, "/api/v1/auth/register", body, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d; want 409", w.Code)
	}
	if resp.Success || resp.Message != "Email already registered" {
		t.Errorf("unexpected envelope %+v", resp)
	}
}

func TestRegister_Validation(t *testing.T) {
	env := setupAuthRouter(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bad email", `{"email":"not-an-email","password":"secret1234"}`, "email"},
		{"missing password", `{"email":"a@example.com"}`, "password"},
		{"empty password", `{"email":"a@example.com","password":""}`, "password"},
		{"long password", `{"email":"a@example.com","password":"` + strings.Repeat("x", 73) + `"}`, "password"},
		{"missing email", `{"password":"secret1234"}`, "email"},
		{"malformed", `{"email":`, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := env.do(t, http.MethodPost, "/api/v1/auth/register", tt.body, "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d; want 400 (%s)", w.Code, w.Body.String())
			}
			var details map[string]string
			if err := json.Unmarshal(resp.Data, &details); err != nil {
				t.Fatalf("details: %v", err)
			}
			if _, ok := details[tt.field]; !ok {
				t.Errorf("details %v missing %q", details, tt.field)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	env := setupAuthRouter(t)
	env.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"bob@example.com","password":"secret1234"}`, "")

	w, resp := env.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"bob@example.com","password":"secret1234"}`, "")
	if w.Code != http.StatusOK || resp.Message != "Login successful" {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}
	if pair := decodePair(t, resp.Data); pair.AccessToken == "" {
		t.Error("missing access token")
	}

	for name, body := range map[string]string{
		"wrong password": `{"email":"bob@example.com","password":"wrong-password"}`,
		"unknown email":  `{"email":"nobody@example.com","password":"secret1234"}`,
	} {
		w, resp := env.do(t, http.MethodPost, "/api/v1/auth/login", body, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d; want 401", name, w.Code)
		}
		if resp.Message != "Invalid email or password" {
			t.Errorf("%s: message = %q", name, resp.Message)
		}
	}
}

func TestRefresh(t *testing.T) {
	env := setupAuthRouter(t)
	_, reg := env.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"carol@example.com","password":"secret1234"}`, "")
	pair := decodePair(t, reg.Data)

	w, resp := env.do(t, http.MethodPost, "/api/v1/auth/refresh", `{"refresh_token":"`+pair.RefreshToken+`"}`, "")
	if w.Code != http.StatusOK || resp.Message != "Token refreshed successfully" {
		t.Fatalf("refresh failed: %d %s", w.Code, w.Body.String())
	}
	refreshed := decodePair(t, resp.Data)
	if refreshed.RefreshToken != pair.RefreshToken {
		t.Error("refresh token should be returned unchanged")
	}
	if _, err := env.tokens.DecodeAs(refreshed.AccessToken, token.Access); err != nil {
		t.Errorf("new access token does not verify: %v", err)
	}

	w, resp = env.do(t, http.MethodPost, "/api/v1/auth/refresh", `{"refresh_token":"`+pair.AccessToken+`"}`, "")
	if w.Code != http.StatusUnauthorized || resp.Message != "Invalid or expired refresh token" {
		t.Errorf("access token as refresh: %d %s", w.Code, w.Body.String())
	}

	w, _ = env.do(t, http.MethodPost, "/api/v1/auth/refresh", `{}`, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing refresh_token: status = %d; want 400", w.Code)
	}
}

func TestMe(t *testing.T) {
	env := setupAuthRouter(t)
	_, reg := env.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"dave@example.com","password":"secret1234"}`, "")
	pair := decodePair(t, reg.Data)

	w, resp := env.do(t, http.MethodGet, "/api/v1/auth/me", "", pair.AccessToken)
	if w.Code != http.StatusOK || resp.Message != "User data retrieved successfully" {
		t.Fatalf("me failed: %d %s", w.Code, w.Body.String())
	}
	var user UserResponse
	if err := json.Unmarshal(resp.Data, &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.Email != "dave@example.com" || !user.IsActive || user.ID == 0 {
		t.Errorf("unexpected user %+v", user)
	}

	w, _ = env.do(t, http.MethodGet, "/api/v1/auth/me", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d; want 401", w.Code)
	}

	w, _ = env.do(t, http.MethodGet, "/api/v1/auth/me", "", pair.RefreshToken)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("refresh token: status = %d; want 401", w.Code)
	}

	env.repo.byEmail["dave@example.com"].IsActive = false
	w, resp = env.do(t, http.MethodGet, "/api/v1/auth/me", "", pair.AccessToken)
	if w.Code != http.StatusUnauthorized || resp.Message != "User not found or inactive" {
		t.Errorf("inactive user: %d %s", w.Code, w.Body.String())
	}
}

func TestMe_WithoutAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := gin.New()
	r.Use(middleware.ErrorHandler(logger))
	r.GET("/me", NewHandler(nil).Me)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", w.Code)
	}
}

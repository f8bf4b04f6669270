package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/itemhub/internal/domain"
	"github.com/simp-lee/itemhub/internal/middleware"
	"github.com/simp-lee/itemhub/internal/pkg"
)

// AuthHandler handles REST API requests for authentication.
type AuthHandler struct {
	svc Service
}

// NewHandler creates a new AuthHandler with the given service.
func NewHandler(svc Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		pkg.Fail(c, err)
		return
	}

	pair, err := h.svc.IssueTokens(user.ID)
	if err != nil {
		pkg.Fail(c, err)
		return
	}

	pkg.Success(c, http.StatusCreated, "User registered successfully", pair)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		pkg.Fail(c, err)
		return
	}

	pair, err := h.svc.IssueTokens(user.ID)
	if err != nil {
		pkg.Fail(c, err)
		return
	}

	pkg.Success(c, http.StatusOK, "Login successful", pair)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	pair, err := h.svc.RefreshTokens(req.RefreshToken)
	if err != nil {
		pkg.Fail(c, err)
		return
	}

	pkg.Success(c, http.StatusOK, "Token refreshed successfully", pair)
}

// Me handles GET /auth/me. It must sit behind middleware.RequireAuth.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		pkg.Fail(c, domain.ErrUnauthorized)
		return
	}

	pkg.Success(c, http.StatusOK, "User data retrieved successfully", UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		IsActive: user.IsActive,
	})
}

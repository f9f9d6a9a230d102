package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/recykl/fleet-registry/internal/config"
	"github.com/recykl/fleet-registry/internal/middleware"
	"github.com/recykl/fleet-registry/internal/model"
	"github.com/recykl/fleet-registry/internal/repository"
	"github.com/recykl/fleet-registry/internal/utils"
)

// UserStore is the slice of the user repository the auth endpoints need.
type UserStore interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users UserStore
	Log   *zap.SugaredLogger
}

func NewAuthHandler(cfg config.Config, users UserStore, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // admin | user
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an operator account.  The password is hashed by the
// store; the plaintext never leaves this request and is never echoed back.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": false, "message": "Missing credentials"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"status": false, "message": "email already exists"})
		}
		h.Log.Errorw("user registration failed", "email", req.Email, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": false, "message": "Internal server error"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"status":  true,
		"message": "User registered",
		"userId":  uid,
	})
}

// Login verifies credentials and, on success, issues a session token set
// as an HTTP-only cookie.  Unknown email and wrong password both answer
// 401; the messages mirror the public API this service reproduces.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Missing credentials"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid email"})
		}
		h.Log.Errorw("login query failed", "email", req.Email, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Internal server error"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid password"})
	}

	ttl := time.Duration(h.Cfg.SessionTTLMin) * time.Minute
	tok, _, err := utils.IssueSessionToken(h.Cfg.JWTSecret, u.ID, u.Role, ttl)
	if err != nil {
		h.Log.Errorw("token issue failed", "user_id", u.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Internal server error"})
	}

	// The session travels as an HTTP-only cookie, not an Authorization
	// header; client-side scripts never see the token.
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Cfg.Env == "prod",
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl / time.Second),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"email":   u.Email,
		"role":    u.Role,
		"token":   tok,
		"success": true,
	})
}

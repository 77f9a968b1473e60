package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gemini-chat-api/internal/auth"
	"github.com/iliyamo/gemini-chat-api/internal/middleware"
	"github.com/iliyamo/gemini-chat-api/internal/repository"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Gate *auth.Service
}

func NewAuthHandler(gate *auth.Service) *AuthHandler {
	return &AuthHandler{Gate: gate}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}
type pairResp struct {
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func clientMeta(c echo.Context) auth.ClientMeta {
	return auth.ClientMeta{
		UserAgent: c.Request().UserAgent(),
		IPAddress: c.RealIP(),
	}
}

func tokenParts(p auth.TokenPair) (tokenPart, tokenPart) {
	return tokenPart{Token: p.Access, Expires: p.AccessExp},
		tokenPart{Token: p.Refresh, Expires: p.RefreshExp}
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, pair, err := h.Gate.Register(ctx, req.Email, req.Password, clientMeta(c))
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	access, refresh := tokenParts(pair)
	return c.JSON(http.StatusCreated, authResp{
		User:    userPart{ID: u.ID.String(), Email: u.Email, CreatedAt: u.CreatedAt},
		Access:  access,
		Refresh: refresh,
	})
}

// Login: verify credentials and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, pair, err := h.Gate.Login(ctx, req.Email, req.Password, clientMeta(c))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		case errors.Is(err, auth.ErrAccountDisabled):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	access, refresh := tokenParts(pair)
	return c.JSON(http.StatusOK, authResp{
		User:    userPart{ID: u.ID.String(), Email: u.Email, CreatedAt: u.CreatedAt},
		Access:  access,
		Refresh: refresh,
	})
}

// Refresh: rotate the presented refresh token and return a new pair.
// A token that was already rotated, revoked or expired is rejected with 401.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Gate.Refresh(ctx, strings.TrimSpace(req.RefreshToken), clientMeta(c))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrUnauthorized):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		case errors.Is(err, auth.ErrAccountDisabled):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	access, refresh := tokenParts(pair)
	return c.JSON(http.StatusOK, pairResp{Access: access, Refresh: refresh})
}

// Logout: revoke the session behind the presented refresh token.
// Revoking a token that is already dead still returns 204.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Gate.Logout(ctx, strings.TrimSpace(req.RefreshToken)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: return the authenticated account (protected).
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentAccount(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID.String(), Email: u.Email, CreatedAt: u.CreatedAt})
}

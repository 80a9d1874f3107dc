package handler

import (
	"context"  // provides context with cancellation for identity calls
	"errors"   // matching identity sentinel errors
	"net/http" // HTTP status codes and primitives
	"time"     // timeouts for identity calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing
	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-explorer/internal/identity"
	"github.com/iliyamo/movie-explorer/internal/middleware"
	"github.com/iliyamo/movie-explorer/internal/model"
	"github.com/iliyamo/movie-explorer/internal/session"
)

// Identity is the account service behind the auth endpoints.
type Identity interface {
	CreateEmailToken(ctx context.Context, email string) (model.Token, error)
	CreateSession(ctx context.Context, userID, code string) (model.Session, error)
	CreateMagicURLSession(ctx context.Context, userID, secret string) (model.Session, error)
	DeleteSession(ctx context.Context, accessToken string) error
	DeleteSessions(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (model.Session, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Identity Identity
	Log      zerolog.Logger
}

func NewAuthHandler(id Identity, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{Identity: id, Log: log}
}

// ----- DTOs -----

type emailTokenReq struct {
	Email string `json:"email"`
}
type sessionReq struct {
	UserID string `json:"userId"`
	Secret string `json:"secret"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// CreateEmailToken sends a one-time code and magic link to the address,
// creating the account on first use.
func (h *AuthHandler) CreateEmailToken(c echo.Context) error {
	var req emailTokenReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tok, err := h.Identity.CreateEmailToken(ctx, req.Email)
	if errors.Is(err, identity.ErrInvalidEmail) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("create email token")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to send code"})
	}
	return c.JSON(http.StatusCreated, tok)
}

// CreateSession exchanges the emailed code for a session.
func (h *AuthHandler) CreateSession(c echo.Context) error {
	return h.exchange(c, h.Identity.CreateSession)
}

// CreateMagicURLSession exchanges the secret of a magic link for a session.
func (h *AuthHandler) CreateMagicURLSession(c echo.Context) error {
	return h.exchange(c, h.Identity.CreateMagicURLSession)
}

func (h *AuthHandler) exchange(c echo.Context, fn func(ctx context.Context, userID, secret string) (model.Session, error)) error {
	var req sessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID == "" || req.Secret == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userId/secret required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := fn(ctx, req.UserID, req.Secret)
	if errors.Is(err, identity.ErrInvalidToken) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid code. Please try again."})
	}
	if err != nil {
		h.Log.Error().Err(err).Str("user_id", req.UserID).Msg("create session")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to create session"})
	}
	return c.JSON(http.StatusCreated, sess)
}

// Refresh rotates the refresh token and returns a new session.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Identity.Refresh(ctx, req.RefreshToken)
	if errors.Is(err, identity.ErrUnauthorized) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("refresh session")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to refresh session"})
	}
	return c.JSON(http.StatusOK, sess)
}

// Account returns the signed-in user.  401 means logged out; 503 means the
// session could not be checked.
func (h *AuthHandler) Account(c echo.Context) error {
	l := middleware.Lookup(c)
	switch l.State {
	case session.Authenticated:
		return c.JSON(http.StatusOK, l.User)
	case session.Unavailable:
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session service unavailable"})
	default:
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
}

// Logout revokes the current session.  A missing or already invalid token
// still answers 204.
func (h *AuthHandler) Logout(c echo.Context) error {
	return h.revoke(c, h.Identity.DeleteSession)
}

// LogoutAll revokes every session of the current user.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	return h.revoke(c, h.Identity.DeleteSessions)
}

func (h *AuthHandler) revoke(c echo.Context, fn func(ctx context.Context, token string) error) error {
	raw := middleware.BearerToken(c)
	if raw == "" {
		return c.NoContent(http.StatusNoContent)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := fn(ctx, raw)
	if err != nil && !errors.Is(err, identity.ErrUnauthorized) {
		h.Log.Error().Err(err).Msg("logout")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

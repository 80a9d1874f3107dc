package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // HTTP status codes for responses
	"strings"  // prefix checking and trimming of the Authorization header

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/movie-explorer/internal/model"
	"github.com/iliyamo/movie-explorer/internal/session"
)

// Context keys set by Session.
const (
	ctxLookup = "session"
	ctxUserID = "user_id"
	ctxToken  = "access_token"
)

// Session resolves the bearer token of every request and stores the lookup
// in the context.  It never rejects a request by itself; wrap protected
// routes with RequireSession as well.
func Session(acc *session.Accessor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := BearerToken(c)
			// No header means anonymous; skip the lookup entirely.
			if raw == "" {
				c.Set(ctxLookup, session.Lookup{State: session.Anonymous})
				return next(c)
			}
			l := acc.Lookup(c.Request().Context(), raw)
			c.Set(ctxLookup, l)
			c.Set(ctxToken, raw)
			if l.User != nil {
				c.Set(ctxUserID, l.User.ID)
			}
			return next(c)
		}
	}
}

// RequireSession aborts with 401 for anonymous callers and 503 when the
// session could not be checked.
func RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch Lookup(c).State {
			case session.Authenticated:
				return next(c)
			case session.Unavailable:
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session service unavailable"})
			default:
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
		}
	}
}

// BearerToken returns the raw token of an "Authorization: Bearer" header.
func BearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// Lookup returns the lookup stored by Session, or an anonymous one when the
// middleware did not run.
func Lookup(c echo.Context) session.Lookup {
	if l, ok := c.Get(ctxLookup).(session.Lookup); ok {
		return l
	}
	return session.Lookup{State: session.Anonymous}
}

// Principal returns the signed-in user or nil.
func Principal(c echo.Context) *model.User {
	return Lookup(c).User
}

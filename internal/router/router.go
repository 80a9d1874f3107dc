package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // the Echo web framework handles routing

	"github.com/iliyamo/movie-explorer/internal/handler"    // handlers implementing each endpoint
	"github.com/iliyamo/movie-explorer/internal/middleware" // session, cache and rate limit middleware
)

// RegisterRoutes registers routes that need no dependencies.  /healthz is a
// liveness probe; /readyz also checks the backing stores.
func RegisterRoutes(e *echo.Echo, checks map[string]handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(checks))
}

// RegisterMovies registers the metadata proxy.  Both routes sit behind the
// response cache since TMDB answers change slowly.
func RegisterMovies(e *echo.Echo, m *handler.MovieHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/movies", cache)
	g.GET("", m.Search)
	g.GET("/:id", m.Details)
}

// RegisterTrending registers the trending read and the search counter write.
func RegisterTrending(e *echo.Echo, t *handler.TrendingHandler) {
	e.GET("/v1/trending", t.List)
	e.POST("/v1/search-counts", t.RecordSearch)
}

// RegisterAuth registers the passwordless account routes.  emailLimit
// guards the only endpoint that sends mail.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, emailLimit echo.MiddlewareFunc) {
	g := e.Group("/v1/account")
	// Request a one-time code and magic link for an email address.
	g.POST("/tokens/email", a.CreateEmailToken, emailLimit)
	// Exchange the code, or the magic link secret, for a session.
	g.POST("/sessions/token", a.CreateSession)
	g.POST("/sessions/magic-url", a.CreateMagicURLSession)
	// Rotate the refresh token.
	g.POST("/sessions/refresh", a.Refresh)
	// Current user; 401 when logged out, 503 when the session cannot be checked.
	g.GET("", a.Account)
	// Logout of this device, or of every device.
	g.DELETE("/sessions/current", a.Logout)
	g.DELETE("/sessions", a.LogoutAll, middleware.RequireSession())
}

// RegisterSaved registers the saved movie routes.  Handlers resolve the
// principal themselves so toggles from anonymous callers answer with the
// NotAuthenticated result rather than a bare 401.
func RegisterSaved(e *echo.Echo, s *handler.SavedHandler) {
	g := e.Group("/v1/saved")
	g.GET("", s.List)
	g.GET("/:id/status", s.Status)
	g.POST("/toggle", s.Toggle)
	g.POST("", s.Save)
	g.DELETE("/:id", s.Unsave)
}

package middleware

import "github.com/labstack/echo/v4"

// userID returns the id of the signed-in user for rate limit and log keys,
// or "anon".
func userID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}

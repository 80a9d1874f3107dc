package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-explorer/internal/config"
	"github.com/iliyamo/movie-explorer/internal/identity"
	"github.com/iliyamo/movie-explorer/internal/model"
	"github.com/iliyamo/movie-explorer/internal/session"
)

type fakeIdentity map[string]error

func (f fakeIdentity) Get(_ context.Context, token string) (model.User, error) {
	if err, ok := f[token]; ok {
		if err != nil {
			return model.User{}, err
		}
		return model.User{ID: "u-" + token, Email: token + "@example.com"}, nil
	}
	return model.User{}, identity.ErrUnauthorized
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func do(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSessionAndRequireSession(t *testing.T) {
	acc := session.NewAccessor(fakeIdentity{"good": nil, "flaky": errors.New("db timeout")}, zerolog.Nop())
	e := echo.New()
	e.Use(Session(acc))
	e.GET("/open", func(c echo.Context) error {
		return c.String(http.StatusOK, Lookup(c).State.String())
	})
	e.GET("/closed", func(c echo.Context) error {
		return c.String(http.StatusOK, Principal(c).Email)
	}, RequireSession())

	cases := []struct {
		token      string
		openBody   string
		closedCode int
	}{
		{"", "anonymous", http.StatusUnauthorized},
		{"expired", "anonymous", http.StatusUnauthorized},
		{"good", "authenticated", http.StatusOK},
		{"flaky", "unavailable", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.openBody+"/"+tc.token, func(t *testing.T) {
			rec := do(e, http.MethodGet, "/open", tc.token)
			assert.Equal(t, tc.openBody, rec.Body.String())

			rec = do(e, http.MethodGet, "/closed", tc.token)
			assert.Equal(t, tc.closedCode, rec.Code)
		})
	}
}

func TestTokenBucket(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1,
		RefillInterval: time.Hour, TTL: time.Hour, KeyStrategy: "ip_route", Prefix: "rl",
	}
	e := echo.New()
	e.GET("/limited", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(cfg, rdb, zerolog.Nop()))

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "/limited", "").Code)
	rec := do(e, http.MethodGet, "/limited", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do(e, http.MethodGet, "/limited", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimitDisabledWithoutRedis(t *testing.T) {
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, zerolog.Nop())
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/", "").Code)
	}
}

func TestRedisCache(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true},
		TTL: time.Minute, KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 20,
	}
	calls := 0
	e := echo.New()
	e.GET("/v1/movies", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"query": c.QueryParam("query")})
	}, NewRedisCache(cfg, rdb, zerolog.Nop()))

	first := do(e, http.MethodGet, "/v1/movies?query=alien", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := do(e, http.MethodGet, "/v1/movies?query=alien", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))

	other := do(e, http.MethodGet, "/v1/movies?query=heat", "")
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)

	req := httptest.NewRequest(http.MethodGet, "/v1/movies?query=alien", nil)
	req.Header.Set("Cache-Control", "no-cache")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestCacheSkipsErrors(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache"}
	e := echo.New()
	e.GET("/fail", func(c echo.Context) error {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "upstream"})
	}, NewRedisCache(cfg, rdb, zerolog.Nop()))

	do(e, http.MethodGet, "/fail", "")
	rec := do(e, http.MethodGet, "/fail", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestRequestLoggerAssignsID(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestLogger(zerolog.New(&buf)))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, RequestID(c)) })

	rec := do(e, http.MethodGet, "/ping", "")
	id := rec.Header().Get(echo.HeaderXRequestID)
	require.NotEmpty(t, id)
	assert.Equal(t, id, rec.Body.String())
	assert.Contains(t, buf.String(), `"request_id":"`+id+`"`)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderXRequestID, "given")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "given", rec.Body.String())
}

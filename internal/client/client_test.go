package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-explorer/internal/model"
	"github.com/iliyamo/movie-explorer/internal/saved"
	"github.com/iliyamo/movie-explorer/internal/session"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLookupStates(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			writeJSON(w, http.StatusOK, model.User{ID: "u1", Email: "u1@example.com"})
		case "Bearer down":
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session service unavailable"})
		default:
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
	})

	cases := map[string]session.State{
		"":        session.Anonymous,
		"good":    session.Authenticated,
		"expired": session.Anonymous,
		"down":    session.Unavailable,
	}
	for token, want := range cases {
		c := New(srv.URL, zerolog.Nop(), WithSession(model.Session{AccessToken: token}))
		l := c.Lookup(context.Background())
		assert.Equal(t, want, l.State, "token %q", token)
		if want == session.Authenticated {
			require.NotNil(t, l.User)
			assert.Equal(t, "u1", c.CurrentUser(context.Background()).ID)
		} else {
			assert.Nil(t, c.CurrentUser(context.Background()))
		}
	}
}

func TestLookupUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(srv.URL, zerolog.Nop(), WithSession(model.Session{AccessToken: "tok"}))
	l := c.Lookup(context.Background())
	assert.Equal(t, session.Unavailable, l.State)
	assert.Error(t, l.Err)
}

func TestAnonymousSavedCallsStayLocal(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) { hits.Add(1) })
	c := New(srv.URL, zerolog.Nop())
	ctx := context.Background()

	ok, err := c.IsSaved(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	res := c.ToggleSave(ctx, model.SaveRequest{ID: 1})
	assert.Equal(t, saved.OutcomeNotAuthenticated, res.Outcome)
	assert.Equal(t, saved.OutcomeNotAuthenticated, c.Unsave(ctx, "doc").Outcome)
	assert.Zero(t, hits.Load())
}

func TestSavedResultMapping(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/saved/toggle":
			writeJSON(w, http.StatusOK, saved.Result{Outcome: saved.OutcomeSaved, Saved: true})
		case r.Method == http.MethodPost && r.URL.Path == "/v1/saved":
			writeJSON(w, http.StatusConflict, saved.Result{Outcome: saved.OutcomeAlreadyExists, Saved: true, Message: "Movie already saved"})
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session service unavailable"})
		}
	})
	c := New(srv.URL, zerolog.Nop(), WithSession(model.Session{AccessToken: "tok"}))
	ctx := context.Background()

	assert.Equal(t, saved.Result{Outcome: saved.OutcomeSaved, Saved: true}, c.ToggleSave(ctx, model.SaveRequest{ID: 7}))

	res := c.Save(ctx, model.SaveRequest{ID: 7})
	assert.Equal(t, saved.OutcomeAlreadyExists, res.Outcome)
	assert.Equal(t, "Movie already saved", res.Message)

	assert.Equal(t, saved.OutcomeUnsaved, c.Unsave(ctx, "doc-1").Outcome)

	_, err := c.SavedMovies(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}

func TestRefreshOnUnauthorized(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/account/sessions/refresh":
			writeJSON(w, http.StatusOK, model.Session{ID: "s2", AccessToken: "fresh", RefreshToken: "r2"})
		case "/v1/account":
			if r.Header.Get("Authorization") != "Bearer fresh" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			writeJSON(w, http.StatusOK, model.User{ID: "u1"})
		}
	})

	var persisted []model.Session
	c := New(srv.URL, zerolog.Nop(),
		WithSession(model.Session{AccessToken: "stale", RefreshToken: "r1"}),
		OnSessionChange(func(s model.Session) { persisted = append(persisted, s) }),
	)

	l := c.Lookup(context.Background())
	assert.Equal(t, session.Authenticated, l.State)
	assert.Equal(t, "fresh", c.Session().AccessToken)
	require.Len(t, persisted, 1)
	assert.Equal(t, "r2", persisted[0].RefreshToken)
}

func TestLogoutClearsSession(t *testing.T) {
	var deleted atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && r.URL.Path == "/v1/account/sessions/current" {
			deleted.Add(1)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	c := New(srv.URL, zerolog.Nop(), WithSession(model.Session{AccessToken: "tok"}))

	require.NoError(t, c.Logout(context.Background()))
	assert.EqualValues(t, 1, deleted.Load())
	assert.Empty(t, c.Session().AccessToken)
	require.NoError(t, c.Logout(context.Background()))
	assert.EqualValues(t, 1, deleted.Load())
}

func TestTrendingFailureIsNil(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	assert.Nil(t, New(srv.URL, zerolog.Nop()).Trending(context.Background()))
}

func TestParseCallback(t *testing.T) {
	cases := []struct {
		raw          string
		user, secret string
		ok           bool
	}{
		{"movies://auth?userId=U1&secret=S1", "U1", "S1", true},
		{"https://movies.example.com/?userId=U1&secret=S1", "U1", "S1", true},
		{"https://movies.example.com/#userId=U1&secret=S1", "U1", "S1", true},
		{"movies://auth?userId=U1", "", "", false},
		{"::not a url", "", "", false},
	}
	for _, tc := range cases {
		u, s, err := ParseCallback(tc.raw)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrBadCallback, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.user, u)
		assert.Equal(t, tc.secret, s)
	}
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

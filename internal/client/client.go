// Package client is the SDK used by front ends of the movie explorer API.
// It carries the client-side behaviour: the login state machine, magic link
// completion, the debounced search screen model and the home screen loader.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-explorer/internal/model"
	"github.com/iliyamo/movie-explorer/internal/saved"
	"github.com/iliyamo/movie-explorer/internal/session"
)

var (
	// ErrUnauthorized is returned when the server rejects the session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCode means the one-time code or link secret was rejected.
	// The user may try again with another code.
	ErrInvalidCode = errors.New("invalid code")
)

// APIError is a non-2xx answer carrying the server's error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api status %d", e.Status)
	}
	return e.Message
}

// Client talks to the API server.  It holds the current session and is safe
// for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	log       zerolog.Logger
	onSession func(model.Session)

	mu   sync.RWMutex
	sess model.Session
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithSession seeds a previously persisted session.
func WithSession(s model.Session) Option { return func(c *Client) { c.sess = s } }

// OnSessionChange is called whenever the session is replaced or cleared, so
// callers can persist it.
func OnSessionChange(fn func(model.Session)) Option { return func(c *Client) { c.onSession = fn } }

func New(baseURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 20 * time.Second},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the current session; the zero value when signed out.
func (c *Client) Session() model.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess
}

func (c *Client) setSession(s model.Session) {
	c.mu.Lock()
	c.sess = s
	c.mu.Unlock()
	if c.onSession != nil {
		c.onSession(s)
	}
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.AccessToken
}

// ----- metadata -----

// SearchMovies searches by title; an empty query lists popular movies.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]model.Movie, error) {
	var out struct {
		Results []model.Movie `json:"results"`
	}
	path := "/v1/movies?" + url.Values{"query": {query}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *Client) MovieDetails(ctx context.Context, id int64) (model.MovieDetails, error) {
	var out model.MovieDetails
	err := c.do(ctx, http.MethodGet, "/v1/movies/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

// Trending returns the top searches.  Failures are logged and yield nil.
func (c *Client) Trending(ctx context.Context) []model.TrendingMovie {
	var out struct {
		Results []model.TrendingMovie `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/trending", nil, &out); err != nil {
		c.log.Error().Err(err).Msg("load trending movies")
		return nil
	}
	return out.Results
}

// RecordSearch counts a search whose first result is movie.
func (c *Client) RecordSearch(ctx context.Context, query string, movie model.Movie) error {
	body := map[string]any{"query": query, "movie": movie}
	return c.do(ctx, http.MethodPost, "/v1/search-counts", body, nil)
}

// ----- account -----

// CreateEmailToken asks the server to email a code and magic link.
func (c *Client) CreateEmailToken(ctx context.Context, email string) (model.Token, error) {
	var out model.Token
	err := c.do(ctx, http.MethodPost, "/v1/account/tokens/email", map[string]string{"email": email}, &out)
	return out, err
}

// CreateSession exchanges a one-time code for a session and keeps it.
func (c *Client) CreateSession(ctx context.Context, userID, code string) (model.Session, error) {
	return c.exchange(ctx, "/v1/account/sessions/token", userID, code)
}

// CreateMagicURLSession exchanges a magic link secret for a session.
func (c *Client) CreateMagicURLSession(ctx context.Context, userID, secret string) (model.Session, error) {
	return c.exchange(ctx, "/v1/account/sessions/magic-url", userID, secret)
}

func (c *Client) exchange(ctx context.Context, path, userID, secret string) (model.Session, error) {
	var out model.Session
	err := c.do(ctx, http.MethodPost, path, map[string]string{"userId": userID, "secret": secret}, &out)
	if errors.Is(err, ErrUnauthorized) {
		return out, ErrInvalidCode
	}
	if err != nil {
		return out, err
	}
	c.setSession(out)
	return out, nil
}

// Refresh rotates the refresh token of the current session.
func (c *Client) Refresh(ctx context.Context) error {
	raw := c.Session().RefreshToken
	if raw == "" {
		return ErrUnauthorized
	}
	var out model.Session
	if err := c.send(ctx, http.MethodPost, "/v1/account/sessions/refresh", map[string]string{"refresh_token": raw}, &out, ""); err != nil {
		return err
	}
	c.setSession(out)
	return nil
}

// Lookup resolves the current principal.  A missing or rejected session is
// Anonymous; a transport failure or 5xx is Unavailable.
func (c *Client) Lookup(ctx context.Context) session.Lookup {
	if c.token() == "" {
		return session.Lookup{State: session.Anonymous}
	}
	var u model.User
	err := c.do(ctx, http.MethodGet, "/v1/account", nil, &u)
	switch {
	case err == nil:
		return session.Lookup{User: &u, State: session.Authenticated}
	case errors.Is(err, ErrUnauthorized):
		return session.Lookup{State: session.Anonymous}
	default:
		c.log.Error().Err(err).Msg("get current user")
		return session.Lookup{State: session.Unavailable, Err: err}
	}
}

// CurrentUser returns the principal or nil for both logged out and
// unreachable.
func (c *Client) CurrentUser(ctx context.Context) *model.User {
	return c.Lookup(ctx).User
}

// Logout deletes the current session on the server and forgets it locally.
// The local session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	if c.token() == "" {
		return nil
	}
	err := c.send(ctx, http.MethodDelete, "/v1/account/sessions/current", nil, nil, c.token())
	c.setSession(model.Session{})
	if errors.Is(err, ErrUnauthorized) {
		return nil
	}
	return err
}

// ----- saved movies -----

func (c *Client) SavedMovies(ctx context.Context) ([]model.SavedMovie, error) {
	if c.token() == "" {
		return nil, ErrUnauthorized
	}
	var out struct {
		Results []model.SavedMovie `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/saved", nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// IsSaved reports whether movieID is saved.  Without a session it answers
// false without calling the server.
func (c *Client) IsSaved(ctx context.Context, movieID int64) (bool, error) {
	if c.token() == "" {
		return false, nil
	}
	var out struct {
		Saved bool `json:"saved"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/saved/"+strconv.FormatInt(movieID, 10)+"/status", nil, &out)
	return out.Saved, err
}

func (c *Client) ToggleSave(ctx context.Context, item model.SaveRequest) saved.Result {
	return c.savedResult(ctx, http.MethodPost, "/v1/saved/toggle", item)
}

func (c *Client) Save(ctx context.Context, item model.SaveRequest) saved.Result {
	return c.savedResult(ctx, http.MethodPost, "/v1/saved", item)
}

func (c *Client) Unsave(ctx context.Context, docID string) saved.Result {
	return c.savedResult(ctx, http.MethodDelete, "/v1/saved/"+url.PathEscape(docID), nil)
}

// savedResult maps any answer, including transport failures, onto a Result.
func (c *Client) savedResult(ctx context.Context, method, path string, body any) saved.Result {
	if c.token() == "" {
		return saved.Result{Outcome: saved.OutcomeNotAuthenticated, Message: saved.MsgLoginRequired}
	}
	var res saved.Result
	err := c.do(ctx, method, path, body, &res)
	var apiErr *APIError
	switch {
	case err == nil:
		if res.Outcome == "" {
			res.Outcome = saved.OutcomeUnsaved // 204 from DELETE
		}
		return res
	case errors.Is(err, ErrUnauthorized):
		return saved.Result{Outcome: saved.OutcomeNotAuthenticated, Message: saved.MsgLoginRequired}
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict:
		return saved.Result{Outcome: saved.OutcomeAlreadyExists, Saved: true, Message: apiErr.Message}
	default:
		c.log.Error().Err(err).Str("path", path).Msg("saved movie request")
		return saved.Result{Outcome: saved.OutcomeFailed, Message: err.Error()}
	}
}

// ----- transport -----

// do sends an authenticated request.  A 401 with a refresh token on hand
// triggers one refresh and one retry.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	tok := c.token()
	err := c.send(ctx, method, path, body, out, tok)
	if !errors.Is(err, ErrUnauthorized) || tok == "" || c.Session().RefreshToken == "" {
		return err
	}
	if rerr := c.Refresh(ctx); rerr != nil {
		return err
	}
	return c.send(ctx, method, path, body, out, c.token())
}

func (c *Client) send(ctx context.Context, method, path string, body, out any, token string) error {
	var rd io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &e)
		msg := e.Error
		if msg == "" {
			msg = e.Message
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

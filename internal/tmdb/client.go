// Package tmdb is a small client for the TMDB v3 movie endpoints the app
// proxies: search, popular discover and details.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-explorer/internal/model"
)

const DefaultBaseURL = "https://api.themoviedb.org/3"

// ErrNotFound is returned by Details for an unknown movie id.
var ErrNotFound = errors.New("tmdb: movie not found")

// StatusError is a non-2xx answer from TMDB.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb status %d: %s", e.Code, e.Body)
}

type Client struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
	Log     zerolog.Logger
	// Attempts bounds retries of transient failures; zero means 3.
	Attempts uint
	// RetryDelay is the base backoff between attempts; zero means 200ms.
	RetryDelay time.Duration
}

func New(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
		Log:     log,
	}
}

type listResp struct {
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Results    []model.Movie `json:"results"`
}

// Search returns movies whose title matches query.  An empty query returns
// the popular discover list instead.
func (c *Client) Search(ctx context.Context, query string) ([]model.Movie, error) {
	query = strings.TrimSpace(query)
	q := url.Values{}
	endpoint := "/discover/movie"
	if query != "" {
		endpoint = "/search/movie"
		q.Set("query", query)
	} else {
		q.Set("sort_by", "popularity.desc")
	}

	var out listResp
	if err := c.get(ctx, endpoint, q, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []model.Movie{}
	}
	return out.Results, nil
}

// Details loads the full record for one movie.
func (c *Client) Details(ctx context.Context, id int64) (model.MovieDetails, error) {
	var out model.MovieDetails
	err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), nil, &out)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return out, ErrNotFound
	}
	return out, err
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, dst any) error {
	if c.APIKey == "" {
		return fmt.Errorf("missing TMDB API key")
	}
	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/") + endpoint)
	if err != nil {
		return err
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	bearer := isReadAccessToken(c.APIKey)
	if !bearer {
		q.Set("api_key", c.APIKey)
	}
	u.RawQuery = q.Encode()

	attempts := c.Attempts
	if attempts == 0 {
		attempts = 3
	}
	delay := c.RetryDelay
	if delay == 0 {
		delay = 200 * time.Millisecond
	}

	body, err := retry.DoWithData(
		func() ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
			if err != nil {
				return nil, retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")
			if bearer {
				req.Header.Set("Authorization", "Bearer "+c.APIKey)
			}
			return c.do(req)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(transient),
		retry.OnRetry(func(n uint, err error) {
			c.Log.Debug().Err(err).Uint("attempt", n+1).Str("endpoint", endpoint).Msg("tmdb request retry")
		}),
	)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode tmdb response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tmdb response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

// transient reports whether err is worth another attempt: network errors,
// 429 and 5xx.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}

// TMDB v4 read access tokens are JWTs; v3 keys are plain hex.
func isReadAccessToken(key string) bool {
	return strings.Count(key, ".") == 2
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

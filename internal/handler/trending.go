package handler

import (
	"context"
	"net/http"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-explorer/internal/middleware"
	"github.com/iliyamo/movie-explorer/internal/model"
	"github.com/iliyamo/movie-explorer/internal/trending"
)

type Trending interface {
	Trending(ctx context.Context) []model.TrendingMovie
	Record(ctx context.Context, query string, movie model.Movie, correlationID string) error
}

type TrendingHandler struct {
	Svc Trending
	Log zerolog.Logger
}

func NewTrendingHandler(svc Trending, log zerolog.Logger) *TrendingHandler {
	return &TrendingHandler{Svc: svc, Log: log}
}

type searchCountReq struct {
	Query string      `json:"query"`
	Movie model.Movie `json:"movie"`
}

// List handles GET /v1/trending.  Failures surface as an empty list.
func (h *TrendingHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows := h.Svc.Trending(ctx)
	if rows == nil {
		rows = []model.TrendingMovie{}
	}
	return c.JSON(http.StatusOK, echo.Map{"results": rows})
}

// RecordSearch handles POST /v1/search-counts.
func (h *TrendingHandler) RecordSearch(c echo.Context) error {
	var req searchCountReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Query) == "" || req.Movie.ID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "query and movie.id required"})
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Query)) > trending.MaxTermLength {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "query too long"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Svc.Record(ctx, req.Query, req.Movie, middleware.RequestID(c))
	if errors.Is(err, trending.ErrTermTooLong) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "query too long"})
	}
	if err != nil {
		h.Log.Error().Err(err).Str("query", req.Query).Msg("record search")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to record search"})
	}
	return c.NoContent(http.StatusAccepted)
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-explorer/internal/model"
	"github.com/iliyamo/movie-explorer/internal/tmdb"
)

// Catalog is the movie metadata source.
type Catalog interface {
	Search(ctx context.Context, query string) ([]model.Movie, error)
	Details(ctx context.Context, id int64) (model.MovieDetails, error)
}

type MovieHandler struct {
	Catalog Catalog
	Log     zerolog.Logger
}

func NewMovieHandler(cat Catalog, log zerolog.Logger) *MovieHandler {
	return &MovieHandler{Catalog: cat, Log: log}
}

// Search handles GET /v1/movies?query=.  An empty query lists popular movies.
func (h *MovieHandler) Search(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	movies, err := h.Catalog.Search(ctx, c.QueryParam("query"))
	if err != nil {
		h.Log.Error().Err(err).Str("query", c.QueryParam("query")).Msg("search movies")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to fetch movies"})
	}
	return c.JSON(http.StatusOK, echo.Map{"results": movies})
}

// Details handles GET /v1/movies/:id.
func (h *MovieHandler) Details(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	d, err := h.Catalog.Details(ctx, id)
	if errors.Is(err, tmdb.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
	}
	if err != nil {
		h.Log.Error().Err(err).Int64("movie_id", id).Msg("movie details")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to fetch movie details"})
	}
	return c.JSON(http.StatusOK, d)
}

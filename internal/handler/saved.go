package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-explorer/internal/middleware"
	"github.com/iliyamo/movie-explorer/internal/model"
	"github.com/iliyamo/movie-explorer/internal/saved"
	"github.com/iliyamo/movie-explorer/internal/session"
)

type Saved interface {
	IsSaved(ctx context.Context, principal *model.User, movieID int64) (bool, error)
	List(ctx context.Context, principal *model.User) ([]model.SavedMovie, error)
	Toggle(ctx context.Context, principal *model.User, item model.SaveRequest) saved.Result
	Save(ctx context.Context, principal *model.User, item model.SaveRequest) saved.Result
	Unsave(ctx context.Context, principal *model.User, docID string) saved.Result
}

type SavedHandler struct {
	Svc Saved
	Log zerolog.Logger
}

func NewSavedHandler(svc Saved, log zerolog.Logger) *SavedHandler {
	return &SavedHandler{Svc: svc, Log: log}
}

// unavailable reports whether the caller's session could not be checked.
func unavailable(c echo.Context) bool {
	return middleware.Lookup(c).State == session.Unavailable
}

// List handles GET /v1/saved.
func (h *SavedHandler) List(c echo.Context) error {
	if unavailable(c) {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session service unavailable"})
	}
	principal := middleware.Principal(c)
	if principal == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": saved.MsgLoginRequired})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Svc.List(ctx, principal)
	if err != nil {
		h.Log.Error().Err(err).Str("user_id", principal.ID).Msg("list saved movies")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to load saved movies"})
	}
	if rows == nil {
		rows = []model.SavedMovie{}
	}
	return c.JSON(http.StatusOK, echo.Map{"results": rows})
}

// Status handles GET /v1/saved/:id/status.  Anonymous callers get
// {"saved": false}.
func (h *SavedHandler) Status(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Svc.IsSaved(ctx, middleware.Principal(c), id)
	if err != nil {
		h.Log.Error().Err(err).Int64("movie_id", id).Msg("check saved")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to check saved status"})
	}
	return c.JSON(http.StatusOK, echo.Map{"saved": ok})
}

// Toggle handles POST /v1/saved/toggle.
func (h *SavedHandler) Toggle(c echo.Context) error {
	return h.mutate(c, h.Svc.Toggle, http.StatusOK)
}

// Save handles POST /v1/saved.  An existing record answers 409.
func (h *SavedHandler) Save(c echo.Context) error {
	return h.mutate(c, h.Svc.Save, http.StatusCreated)
}

func (h *SavedHandler) mutate(c echo.Context, fn func(context.Context, *model.User, model.SaveRequest) saved.Result, okStatus int) error {
	if unavailable(c) {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session service unavailable"})
	}
	var req model.SaveRequest
	if err := c.Bind(&req); err != nil || req.ID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res := fn(ctx, middleware.Principal(c), req)
	status := resultStatus(res, okStatus)
	// toggle reports a lost insert race as saved, not as a conflict
	if res.Outcome == saved.OutcomeAlreadyExists && okStatus == http.StatusOK {
		status = http.StatusOK
	}
	return c.JSON(status, res)
}

// Unsave handles DELETE /v1/saved/:id.  Deleting a missing record
// answers 204.
func (h *SavedHandler) Unsave(c echo.Context) error {
	if unavailable(c) {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session service unavailable"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res := h.Svc.Unsave(ctx, middleware.Principal(c), c.Param("id"))
	if res.Outcome == saved.OutcomeUnsaved {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(resultStatus(res, http.StatusOK), res)
}

func resultStatus(res saved.Result, okStatus int) int {
	switch res.Outcome {
	case saved.OutcomeNotAuthenticated:
		return http.StatusUnauthorized
	case saved.OutcomeAlreadyExists:
		return http.StatusConflict
	case saved.OutcomeFailed:
		return http.StatusServiceUnavailable
	default:
		return okStatus
	}
}

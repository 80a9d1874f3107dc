// Package saved coordinates a user's saved movies: membership checks and
// save/unsave toggles against the store.  Every entry point reports its
// outcome as a Result instead of mixing returned and thrown conditions.
package saved

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/movie-explorer/internal/model"
	"github.com/iliyamo/movie-explorer/internal/repository"
)

// MsgLoginRequired is the user-facing text for NotAuthenticated.
const MsgLoginRequired = "You must be logged in to save movies"

// Outcome classifies a reconciler call.
type Outcome string

const (
	OutcomeSaved            Outcome = "saved"
	OutcomeUnsaved          Outcome = "unsaved"
	OutcomeAlreadyExists    Outcome = "already_exists"
	OutcomeNotAuthenticated Outcome = "not_authenticated"
	OutcomeFailed           Outcome = "failed"
)

// Result is returned by every mutating call.  Saved is the save state after
// the call as far as the reconciler knows it.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Saved   bool    `json:"isSaved"`
	Message string  `json:"error,omitempty"`
}

// Store is the persistence the reconciler needs.  Create must report a
// duplicate (user, movie) pair as repository.ErrConflict; Delete of a missing
// record must succeed.
type Store interface {
	ListByUser(ctx context.Context, userID string) ([]model.SavedMovie, error)
	FindByUserAndMovie(ctx context.Context, userID string, movieID int64) (model.SavedMovie, error)
	Create(ctx context.Context, m model.SavedMovie) error
	Delete(ctx context.Context, userID, id string) error
}

// ToggleTimeout bounds a shared toggle.  It runs detached from the caller
// that started it so other callers waiting on it are not cut short.
const ToggleTimeout = 10 * time.Second

// Reconciler serializes toggles per (user, movie) within this process and
// relies on the store's unique key across processes.
type Reconciler struct {
	store    Store
	log      zerolog.Logger
	inflight singleflight.Group
	now      func() time.Time
	timeout  time.Duration
}

func NewReconciler(store Store, log zerolog.Logger) *Reconciler {
	if store == nil {
		panic("nil store passed to saved.NewReconciler")
	}
	return &Reconciler{store: store, log: log, now: time.Now, timeout: ToggleTimeout}
}

// IsSaved reports whether principal has saved movieID.  An anonymous caller
// gets false and the store is not consulted.
func (r *Reconciler) IsSaved(ctx context.Context, principal *model.User, movieID int64) (bool, error) {
	if principal == nil {
		return false, nil
	}
	_, err := r.store.FindByUserAndMovie(ctx, principal.ID, movieID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns principal's saved movies, newest first.  Anonymous callers get
// an empty list.
func (r *Reconciler) List(ctx context.Context, principal *model.User) ([]model.SavedMovie, error) {
	if principal == nil {
		return []model.SavedMovie{}, nil
	}
	return r.store.ListByUser(ctx, principal.ID)
}

// Toggle flips the saved state of item for principal.  The current state is
// re-read right before mutating.  Concurrent toggles of the same pair in this
// process share one execution and one Result.  A caller whose ctx ends
// first gets Failed while the shared execution carries on for the others.
func (r *Reconciler) Toggle(ctx context.Context, principal *model.User, item model.SaveRequest) Result {
	if principal == nil {
		return Result{Outcome: OutcomeNotAuthenticated, Message: MsgLoginRequired}
	}
	key := principal.ID + ":" + strconv.FormatInt(item.ID, 10)
	ch := r.inflight.DoChan(key, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.toggle(shared, principal, item), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Result)
	case <-ctx.Done():
		return r.failed("toggle", item.ID, ctx.Err())
	}
}

func (r *Reconciler) toggle(ctx context.Context, principal *model.User, item model.SaveRequest) Result {
	existing, err := r.store.FindByUserAndMovie(ctx, principal.ID, item.ID)
	switch {
	case err == nil:
		if err := r.store.Delete(ctx, principal.ID, existing.ID); err != nil {
			return r.failed("unsave", item.ID, err)
		}
		r.log.Info().Str("user_id", principal.ID).Int64("movie_id", item.ID).Msg("movie unsaved")
		return Result{Outcome: OutcomeUnsaved, Saved: false}
	case errors.Is(err, repository.ErrNotFound):
		return r.create(ctx, principal, item)
	default:
		return r.failed("check saved", item.ID, err)
	}
}

// Save records item for principal.  A record that already exists yields
// AlreadyExists and is left untouched.
func (r *Reconciler) Save(ctx context.Context, principal *model.User, item model.SaveRequest) Result {
	if principal == nil {
		return Result{Outcome: OutcomeNotAuthenticated, Message: MsgLoginRequired}
	}
	_, err := r.store.FindByUserAndMovie(ctx, principal.ID, item.ID)
	switch {
	case err == nil:
		return Result{Outcome: OutcomeAlreadyExists, Saved: true, Message: "Movie already saved"}
	case errors.Is(err, repository.ErrNotFound):
		return r.create(ctx, principal, item)
	default:
		return r.failed("check saved", item.ID, err)
	}
}

// Unsave removes the saved record docID owned by principal.  Removing a
// record that does not exist succeeds.
func (r *Reconciler) Unsave(ctx context.Context, principal *model.User, docID string) Result {
	if principal == nil {
		return Result{Outcome: OutcomeNotAuthenticated, Message: MsgLoginRequired}
	}
	if err := r.store.Delete(ctx, principal.ID, docID); err != nil {
		r.log.Error().Err(err).Str("doc_id", docID).Msg("delete saved movie")
		return Result{Outcome: OutcomeFailed, Message: "Failed to remove movie"}
	}
	return Result{Outcome: OutcomeUnsaved}
}

func (r *Reconciler) create(ctx context.Context, principal *model.User, item model.SaveRequest) Result {
	rec := model.SavedMovie{
		ID:        uuid.NewString(),
		MovieID:   item.ID,
		Title:     item.Title,
		PosterURL: model.PosterURL(item.PosterPath),
		UserID:    principal.ID,
		CreatedAt: r.now().UTC(),
	}
	err := r.store.Create(ctx, rec)
	if errors.Is(err, repository.ErrConflict) {
		// another writer got there between the check and the insert
		return Result{Outcome: OutcomeAlreadyExists, Saved: true, Message: "Movie already saved"}
	}
	if err != nil {
		return r.failed("save", item.ID, err)
	}
	r.log.Info().Str("user_id", principal.ID).Int64("movie_id", item.ID).Msg("movie saved")
	return Result{Outcome: OutcomeSaved, Saved: true}
}

func (r *Reconciler) failed(op string, movieID int64, err error) Result {
	r.log.Error().Err(err).Str("op", op).Int64("movie_id", movieID).Msg("saved movie store error")
	return Result{Outcome: OutcomeFailed, Message: "Failed to toggle save status"}
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-explorer/internal/model"
)

// SavedMovieRepo stores per-user bookmarks.  The table carries a unique key
// on (user_id, movie_id); Create reports a violation as ErrConflict.
type SavedMovieRepo struct{ DB *sql.DB }

func NewSavedMovieRepo(db *sql.DB) *SavedMovieRepo { return &SavedMovieRepo{DB: db} }

const savedMovieColumns = "id, movie_id, title, poster_url, user_id, created_at"

// ListByUser returns a user's saved movies, newest first.
func (r *SavedMovieRepo) ListByUser(ctx context.Context, userID string) ([]model.SavedMovie, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+savedMovieColumns+" FROM saved_movies WHERE user_id=? ORDER BY created_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.SavedMovie{}
	for rows.Next() {
		var m model.SavedMovie
		if err := rows.Scan(&m.ID, &m.MovieID, &m.Title, &m.PosterURL, &m.UserID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByUserAndMovie returns the saved record for (userID, movieID) or
// ErrNotFound.
func (r *SavedMovieRepo) FindByUserAndMovie(ctx context.Context, userID string, movieID int64) (model.SavedMovie, error) {
	var m model.SavedMovie
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+savedMovieColumns+" FROM saved_movies WHERE user_id=? AND movie_id=? LIMIT 1",
		userID, movieID).Scan(&m.ID, &m.MovieID, &m.Title, &m.PosterURL, &m.UserID, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	return m, err
}

// Create inserts a saved record.  m.ID must already be assigned.
func (r *SavedMovieRepo) Create(ctx context.Context, m model.SavedMovie) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO saved_movies (id, movie_id, title, poster_url, user_id, created_at) VALUES (?,?,?,?,?,?)",
		m.ID, m.MovieID, m.Title, m.PosterURL, m.UserID, m.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// Delete removes a saved record owned by userID.  Deleting a record that does
// not exist is not an error.
func (r *SavedMovieRepo) Delete(ctx context.Context, userID, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM saved_movies WHERE id=? AND user_id=?",
		id, userID)
	return err
}

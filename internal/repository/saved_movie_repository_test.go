package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-explorer/internal/model"
)

func newMock(t *testing.T) (*SavedMovieRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSavedMovieRepo(db), mock
}

func TestSavedMovieCreate(t *testing.T) {
	insert := regexp.QuoteMeta("INSERT INTO saved_movies (id, movie_id, title, poster_url, user_id, created_at) VALUES (?,?,?,?,?,?)")
	m := model.SavedMovie{ID: "doc-1", MovieID: 27205, Title: "Inception", PosterURL: "https://image.tmdb.org/t/p/w500/x.jpg", UserID: "u1", CreatedAt: time.Now()}

	tests := []struct {
		name    string
		execErr error
		wantErr error
	}{
		{name: "inserted"},
		{name: "duplicate maps to conflict", execErr: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, wantErr: ErrConflict},
		{name: "other errors pass through", execErr: errors.New("connection reset"), wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMock(t)
			exp := mock.ExpectExec(insert).WithArgs(m.ID, m.MovieID, m.Title, m.PosterURL, m.UserID, sqlmock.AnyArg())
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := repo.Create(context.Background(), m)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.execErr != nil:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrConflict)
			default:
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSavedMovieListByUser(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "movie_id", "title", "poster_url", "user_id", "created_at"}).
		AddRow("doc-2", int64(155), "The Dark Knight", "p2", "u1", now).
		AddRow("doc-1", int64(27205), "Inception", "p1", "u1", now.Add(-time.Hour))
	mock.ExpectQuery("SELECT .* FROM saved_movies WHERE user_id=\\? ORDER BY created_at DESC").
		WithArgs("u1").
		WillReturnRows(rows)

	got, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "doc-2", got[0].ID)
	assert.Equal(t, int64(27205), got[1].MovieID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedMovieFindMissing(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("SELECT .* FROM saved_movies WHERE user_id=\\? AND movie_id=\\?").
		WithArgs("u1", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "movie_id", "title", "poster_url", "user_id", "created_at"}))

	_, err := repo.FindByUserAndMovie(context.Background(), "u1", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSavedMovieDeleteMissingIsNoop(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM saved_movies WHERE id=? AND user_id=?")).
		WithArgs("nope", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), "u1", "nope"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-explorer/internal/model"
)

func TestSearchCountIncrementUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE count = count + 1")).
		WithArgs("inception", int64(27205), "Inception", "https://image.tmdb.org/t/p/w500/i.jpg").
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewSearchCountRepo(db)
	err = repo.Increment(context.Background(), "inception", model.Movie{ID: 27205, Title: "Inception", PosterPath: "/i.jpg"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchCountTop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"search_term", "movie_id", "title", "poster_url", "count"}).
		AddRow("matrix", 603, "The Matrix", "", 9).
		AddRow("inception", 27205, "Inception", "", 4)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY count DESC LIMIT ?")).WithArgs(5).WillReturnRows(rows)

	got, err := NewSearchCountRepo(db).Top(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "matrix", got[0].SearchTerm)
	assert.EqualValues(t, 9, got[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

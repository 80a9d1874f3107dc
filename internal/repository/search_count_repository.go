package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/movie-explorer/internal/model"
)

// SearchCountRepo keeps one counter row per search term.
type SearchCountRepo struct{ DB *sql.DB }

func NewSearchCountRepo(db *sql.DB) *SearchCountRepo { return &SearchCountRepo{DB: db} }

// Increment bumps the counter for term, creating the row with count 1 and
// the given movie's fields on first occurrence.  The upsert is atomic, so
// concurrent increments are never lost.
func (r *SearchCountRepo) Increment(ctx context.Context, term string, movie model.Movie) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO search_counts (search_term, movie_id, title, poster_url, count)
		 VALUES (?,?,?,?,1)
		 ON DUPLICATE KEY UPDATE count = count + 1`,
		term, movie.ID, movie.Title, movie.PosterURL())
	return err
}

// Top returns up to limit counters ordered by descending count.  Ties are
// returned in no particular order.
func (r *SearchCountRepo) Top(ctx context.Context, limit int) ([]model.TrendingMovie, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT search_term, movie_id, title, poster_url, count FROM search_counts ORDER BY count DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TrendingMovie, 0, limit)
	for rows.Next() {
		var t model.TrendingMovie
		if err := rows.Scan(&t.SearchTerm, &t.MovieID, &t.Title, &t.PosterURL, &t.Count); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

package model

import "time"

// SavedMovie mirrors a row of the `saved_movies` table: a user-scoped
// bookmark linking an account to a movie.  At most one row exists per
// (UserID, MovieID).
type SavedMovie struct {
	ID        string    `json:"id"` // document id
	MovieID   int64     `json:"movie_id"`
	Title     string    `json:"title"`
	PosterURL string    `json:"poster_url"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveRequest carries the movie fields needed to create a SavedMovie.
type SaveRequest struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	PosterPath string `json:"poster_path"`
}

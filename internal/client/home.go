package client

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/movie-explorer/internal/model"
)

// Catalog is the part of Client the home screen needs.
type Catalog interface {
	SearchMovies(ctx context.Context, query string) ([]model.Movie, error)
	Trending(ctx context.Context) []model.TrendingMovie
}

// Home is the content of the home screen.
type Home struct {
	Trending []model.TrendingMovie
	Latest   []model.Movie
}

// LoadHome fetches the trending row and the popular movie list together.
// A trending failure leaves the row empty; a movie list failure is returned.
func LoadHome(ctx context.Context, api Catalog) (Home, error) {
	var h Home
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.Trending = api.Trending(ctx)
		return nil
	})
	g.Go(func() error {
		movies, err := api.SearchMovies(ctx, "")
		h.Latest = movies
		return err
	})
	if err := g.Wait(); err != nil {
		return Home{}, err
	}
	return h, nil
}

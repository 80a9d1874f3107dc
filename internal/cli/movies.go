package cli

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/iliyamo/movie-explorer/internal/client"
	"github.com/iliyamo/movie-explorer/internal/model"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search movies by title",
	Long: `With a query, search once and print the results.  Without one, read the
search box from stdin: every line is an edit and results are printed once the
input has been quiet for search.delay.`,
	RunE: runSearch,
}

var movieCmd = &cobra.Command{
	Use:   "movie <id>",
	Short: "Show the details of a movie",
	Args:  cobra.ExactArgs(1),
	RunE:  runMovie,
}

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "List the most searched movies",
	RunE: func(cmd *cobra.Command, args []string) error {
		printTrending(cmd.OutOrStdout(), api.Trending(commandContext(cmd)))
		return nil
	},
}

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Show trending searches and popular movies",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := client.LoadHome(commandContext(cmd), api)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printTrending(out, h.Trending)
		fmt.Fprintln(out, "\nPopular movies:")
		printMovies(out, h.Latest)
		return nil
	},
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	if len(args) > 0 {
		q := strings.Join(args, " ")
		movies, err := api.SearchMovies(ctx, q)
		if err != nil {
			return err
		}
		printMovies(out, movies)
		if len(movies) > 0 {
			if err := api.RecordSearch(ctx, q, movies[0]); err != nil {
				logger.Warn().Err(err).Str("query", q).Msg("failed to update search count")
			}
		}
		return nil
	}

	var mu sync.Mutex
	m := client.NewSearchModel(ctx, api, logger,
		client.WithSearchDelay(cfg.Search.Delay),
		client.WithSearchUpdates(func(v client.SearchView) {
			if v.Loading {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			renderSearch(out, v)
		}),
	)
	defer m.Close()

	fmt.Fprintln(out, "Type to search, Ctrl-D to quit.")
	sc := bufio.NewScanner(cmd.InOrStdin())
	for sc.Scan() {
		m.Type(sc.Text())
	}
	return sc.Err()
}

func renderSearch(w io.Writer, v client.SearchView) {
	switch {
	case v.Err != "":
		fmt.Fprintf(w, "error: %s\n", v.Err)
	case strings.TrimSpace(v.Query) == "":
		fmt.Fprintln(w, "Search through 300+ movies online")
	case len(v.Movies) == 0:
		fmt.Fprintf(w, "No movies found for %q\n", v.Query)
	default:
		fmt.Fprintf(w, "Search results for %q:\n", v.Query)
		printMovies(w, v.Movies)
	}
}

func runMovie(cmd *cobra.Command, args []string) error {
	id, err := parseMovieID(args[0])
	if err != nil {
		return err
	}
	d, err := api.MovieDetails(commandContext(cmd), id)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printDetails(out, d)
	saved, err := api.IsSaved(commandContext(cmd), id)
	if err != nil {
		logger.Warn().Err(err).Int64("movie_id", id).Msg("failed to check saved state")
	} else if saved {
		fmt.Fprintln(out, "\n[saved]")
	}
	return nil
}

func printDetails(w io.Writer, d model.MovieDetails) {
	fmt.Fprintf(w, "%s (%s)  %.1f/10 from %d votes\n", d.Title, releaseYear(d.ReleaseDate), d.VoteAverage, d.VoteCount)
	if d.Tagline != "" {
		fmt.Fprintf(w, "%q\n", d.Tagline)
	}
	fmt.Fprintf(w, "Runtime: %dm  Status: %s\n", d.Runtime, d.Status)
	if d.Overview != "" {
		fmt.Fprintf(w, "\n%s\n\n", d.Overview)
	}

	genres := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		genres = append(genres, g.Name)
	}
	companies := make([]string, 0, len(d.ProductionCompanies))
	for _, c := range d.ProductionCompanies {
		companies = append(companies, c.Name)
	}
	fmt.Fprintf(w, "Genres: %s\n", joinOrNA(genres))
	fmt.Fprintf(w, "Budget: %s  Revenue: %s\n", millions(d.Budget), millions(d.Revenue))
	fmt.Fprintf(w, "Production Companies: %s\n", joinOrNA(companies))
}

// millions renders an amount in dollars as "$N million", rounded.
func millions(n int64) string {
	if n == 0 {
		return "N/A"
	}
	return fmt.Sprintf("$%d million", int64(math.Round(float64(n)/1_000_000)))
}

func joinOrNA(parts []string) string {
	if len(parts) == 0 {
		return "N/A"
	}
	return strings.Join(parts, " - ")
}

func printMovies(w io.Writer, movies []model.Movie) {
	if len(movies) == 0 {
		fmt.Fprintln(w, "No movies found.")
		return
	}
	for _, m := range movies {
		fmt.Fprintf(w, "  %-8d %s (%s)  %.1f\n", m.ID, m.Title, releaseYear(m.ReleaseDate), m.VoteAverage)
	}
}

func printTrending(w io.Writer, rows []model.TrendingMovie) {
	fmt.Fprintln(w, "Trending movies:")
	if len(rows) == 0 {
		fmt.Fprintln(w, "  nothing yet")
		return
	}
	for i, t := range rows {
		fmt.Fprintf(w, "  %d. %s  (%d searches)\n", i+1, t.Title, t.Count)
	}
}

func releaseYear(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return "N/A"
}

func parseMovieID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid movie id %q", s)
	}
	return id, nil
}

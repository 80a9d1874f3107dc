package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/movie-explorer/internal/client"
	"github.com/iliyamo/movie-explorer/internal/model"
	"github.com/iliyamo/movie-explorer/internal/saved"
)

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List your saved movies",
	RunE: func(cmd *cobra.Command, args []string) error {
		movies, err := api.SavedMovies(commandContext(cmd))
		if errors.Is(err, client.ErrUnauthorized) {
			return errors.New(saved.MsgLoginRequired)
		}
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(movies) == 0 {
			fmt.Fprintln(out, "No saved movies yet.")
			return nil
		}
		for _, m := range movies {
			fmt.Fprintf(out, "  %-8d %s  [%s]\n", m.MovieID, m.Title, m.ID)
		}
		return nil
	},
}

var saveCmd = &cobra.Command{
	Use:   "save <movie-id>",
	Short: "Add a movie to your saved list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSaveRequest(cmd, args[0], api.Save)
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <movie-id>",
	Short: "Save a movie, or unsave it when already saved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSaveRequest(cmd, args[0], api.ToggleSave)
	},
}

var unsaveCmd = &cobra.Command{
	Use:   "unsave <saved-id>",
	Short: "Remove an entry from your saved list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return report(cmd, api.Unsave(commandContext(cmd), args[0]))
	},
}

type saveFunc func(ctx context.Context, item model.SaveRequest) saved.Result

func withSaveRequest(cmd *cobra.Command, arg string, fn saveFunc) error {
	id, err := parseMovieID(arg)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	d, err := api.MovieDetails(ctx, id)
	if err != nil {
		return err
	}
	return report(cmd, fn(ctx, model.SaveRequest{ID: d.ID, Title: d.Title, PosterPath: d.PosterPath}))
}

func report(cmd *cobra.Command, res saved.Result) error {
	out := cmd.OutOrStdout()
	switch res.Outcome {
	case saved.OutcomeSaved:
		fmt.Fprintln(out, "Saved.")
	case saved.OutcomeUnsaved:
		fmt.Fprintln(out, "Removed from saved.")
	case saved.OutcomeAlreadyExists:
		fmt.Fprintln(out, "Already saved.")
	default:
		return fmt.Errorf("%s", res.Message)
	}
	return nil
}

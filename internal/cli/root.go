// Package cli is the explorer command line front end for the movie API.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/movie-explorer/internal/client"
	"github.com/iliyamo/movie-explorer/internal/config"
	"github.com/iliyamo/movie-explorer/internal/model"
)

var (
	cfgFile  string
	apiURL   string
	cfg      *Config
	logger   zerolog.Logger
	api      *client.Client
	sessions SessionFile
)

var rootCmd = &cobra.Command{
	Use:   "explorer",
	Short: "Browse movies, trending searches and your saved list",
	Long: `explorer talks to the movie explorer API: search TMDB, see what people
search for most, sign in with an emailed code or magic link and keep a list
of saved movies.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./explorer.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL, overrides api.url")

	rootCmd.AddCommand(searchCmd, movieCmd, trendingCmd, homeCmd)
	rootCmd.AddCommand(loginCmd, linkCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(savedCmd, saveCmd, toggleCmd, unsaveCmd)
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("api") {
		cfg.API.URL = apiURL
	}

	logger = config.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	sessions = SessionFile{Path: cfg.SessionFile}
	sess, err := sessions.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring stored session")
	}

	api = newClient(cfg, sess)
	return nil
}

func newClient(cfg *Config, sess model.Session) *client.Client {
	return client.New(cfg.API.URL, logger,
		client.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		client.WithSession(sess),
		client.OnSessionChange(func(s model.Session) {
			if err := sessions.Save(s); err != nil {
				logger.Error().Err(err).Msg("failed to persist session")
			}
		}),
	)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

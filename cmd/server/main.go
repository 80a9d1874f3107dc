package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"    // .env loader for local runs
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-explorer/internal/config"
	"github.com/iliyamo/movie-explorer/internal/database"
	"github.com/iliyamo/movie-explorer/internal/handler"
	"github.com/iliyamo/movie-explorer/internal/identity"
	"github.com/iliyamo/movie-explorer/internal/middleware"
	"github.com/iliyamo/movie-explorer/internal/queue"
	"github.com/iliyamo/movie-explorer/internal/repository"
	"github.com/iliyamo/movie-explorer/internal/router"
	"github.com/iliyamo/movie-explorer/internal/saved"
	queue_publisher "github.com/iliyamo/movie-explorer/internal/service"
	"github.com/iliyamo/movie-explorer/internal/session"
	"github.com/iliyamo/movie-explorer/internal/tmdb"
	"github.com/iliyamo/movie-explorer/internal/trending"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine outside development

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := config.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("connect mysql")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}

	checks := map[string]handler.Pinger{"mysql": db}

	// Redis is optional: without it codes live in memory and the cache and
	// rate limiter are disabled.
	var challenges identity.ChallengeStore = repository.NewMemoryChallengeStore()
	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable; using in-memory challenges, cache and rate limit disabled")
	} else {
		defer rdb.Close()
		challenges = repository.NewRedisChallengeStore(rdb, "otp")
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	searchCounts := repository.NewSearchCountRepo(db)

	// The broker is optional too: without it codes go to the log and search
	// counts are written inline.
	var (
		mailer    identity.Mailer = identity.LogMailer{Log: log, Reveal: cfg.Env == "dev"}
		publisher trending.Publisher
	)
	if cfg.RabbitURL != "" {
		pub := queue_publisher.New(cfg.RabbitURL, log)
		mailer, publisher = pub, pub
	}
	trendingSvc := trending.NewService(searchCounts, publisher, log)
	if cfg.RabbitURL != "" {
		consumers := []*queue.Consumer{
			{URL: cfg.RabbitURL, Queue: queue.SearchRecordedQueue, Handler: queue.JSON(trendingSvc.Apply), Log: log},
			{URL: cfg.RabbitURL, Queue: queue.EmailTokenQueue, Handler: queue.JSON(deliverEmailToken(log, cfg.Env == "dev")), Log: log},
		}
		for _, c := range consumers {
			go func(c *queue.Consumer) {
				if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Str("queue", c.Queue).Msg("consumer stopped")
				}
			}(c)
		}
	}

	idSvc := identity.NewService(
		repository.NewUserRepo(db),
		repository.NewSessionRepo(db),
		challenges,
		mailer,
		identity.Options{
			JWTSecret:      cfg.JWTSecret,
			AccessTTLMin:   cfg.AccessTTLMin,
			RefreshTTLDays: cfg.RefreshTTLDays,
			OTPTTL:         cfg.OTPTTL,
			OTPMaxAttempts: cfg.OTPMaxAttempts,
			BcryptCost:     cfg.BcryptCost,
			MagicURLBase:   cfg.MagicURLBase,
		},
		log,
	)
	accessor := session.NewAccessor(idSvc, log)
	reconciler := saved.NewReconciler(repository.NewSavedMovieRepo(db), log)

	catalog := tmdb.New(cfg.TMDBAPIKey, log)
	catalog.BaseURL = cfg.TMDBBaseURL

	rl := config.LoadRateLimitConfig()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Session(accessor))
	e.Use(middleware.NewTokenBucket(rl, rdb, log))

	router.RegisterRoutes(e, checks)
	router.RegisterMovies(e, handler.NewMovieHandler(catalog, log), middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log))
	router.RegisterTrending(e, handler.NewTrendingHandler(trendingSvc, log))
	router.RegisterAuth(e, handler.NewAuthHandler(idSvc, log), middleware.NewTokenBucket(rl.Email(), rdb, log))
	router.RegisterSaved(e, handler.NewSavedHandler(reconciler, log))

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}

// deliverEmailToken is the auth.email_token worker.  No mail transport is
// configured, so delivery is a structured log line; secrets are only logged
// when reveal is set.
func deliverEmailToken(log zerolog.Logger, reveal bool) func(context.Context, queue.EmailTokenEvent) error {
	dev := identity.LogMailer{Log: log, Reveal: reveal}
	return func(ctx context.Context, ev queue.EmailTokenEvent) error {
		return dev.SendEmailToken(ctx, identity.EmailToken{
			UserID:   ev.UserID,
			Email:    ev.Email,
			Code:     ev.Code,
			MagicURL: ev.MagicURL,
			Expire:   ev.Expire,
		})
	}
}

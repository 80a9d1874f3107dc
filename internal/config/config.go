package config // package config loads application configuration from environment variables

import (
	"errors"  // errors joins every missing variable into one report
	"fmt"     // fmt formats validation messages
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses durations such as OTP_TTL
)

// Config holds all runtime configuration values of the API server.  Each
// field corresponds to an environment variable.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	JWTSecret      string        // secret used to sign access tokens
	AccessTTLMin   int           // access token time-to-live in minutes
	RefreshTTLDays int           // refresh token time-to-live in days
	BcryptCost     int           // bcrypt cost for one-time code hashing
	OTPTTL         time.Duration // lifetime of an emailed code / magic link
	OTPMaxAttempts int           // wrong codes allowed before the challenge is dropped
	MagicURLBase   string        // base of the magic link, e.g. movies://auth
	TMDBAPIKey     string        // TMDB v3 key or v4 read access token
	TMDBBaseURL    string        // TMDB API root
	RabbitURL      string        // broker URL; empty disables publishing and consumers
	LogLevel       string        // debug, info, warn or error
	LogFormat      string        // json or console
}

// Load reads configuration values from environment variables.  Every
// required variable that is missing or malformed is reported in the returned
// error.
func Load() (Config, error) {
	var errs []error
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			errs = append(errs, fmt.Errorf("missing required env var: %s", key))
		}
		return v
	}
	mustInt := func(key string) int {
		s := must(key)
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid int for %s: %q", key, s))
		}
		return n
	}

	cfg := Config{
		Env:            getenv("APP_ENV", "dev"),                  // environment (dev/test/prod)
		Port:           getenv("APP_PORT", "8080"),                // port to bind the HTTP server
		DBUser:         must("DB_USER"),                           // database user
		DBPass:         os.Getenv("DB_PASS"),                      // database password (empty allowed)
		DBHost:         must("DB_HOST"),                           // database host
		DBPort:         getenv("DB_PORT", "3306"),                 // database port
		DBName:         must("DB_NAME"),                           // database name
		JWTSecret:      must("JWT_SECRET"),                        // secret used for signing JWTs
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),           // TTL for access tokens in minutes
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),         // TTL for refresh tokens in days
		BcryptCost:     envInt("BCRYPT_COST", 10),                 // bcrypt cost factor
		OTPTTL:         envDur("OTP_TTL", 15*time.Minute),         // code lifetime
		OTPMaxAttempts: envInt("OTP_MAX_ATTEMPTS", 5),             // wrong guesses per challenge
		MagicURLBase:   getenv("MAGIC_URL_BASE", "movies://auth"), // deep link target
		TMDBAPIKey:     must("TMDB_API_KEY"),                      // metadata provider credential
		TMDBBaseURL:    getenv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		RabbitURL:      rabbitURL(),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "json"),
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST out of range: %d", cfg.BcryptCost))
	}
	return cfg, errors.Join(errs...)
}

// rabbitURL accepts RABBITMQ_URL or the older AMQP_URL name.
func rabbitURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

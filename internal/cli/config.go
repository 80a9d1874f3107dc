package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the explorer CLI configuration.
type Config struct {
	API         APIConfig     `mapstructure:"api"`
	SessionFile string        `mapstructure:"session_file"`
	Search      SearchConfig  `mapstructure:"search"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

type APIConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SearchConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configPath, or explorer.yaml from the usual places when it
// is empty.  A missing default file is not an error; every key can also come
// from EXPLORER_* environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("explorer")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("explorer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".movie-explorer"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", "http://localhost:8080")
	v.SetDefault("api.timeout", 20*time.Second)
	v.SetDefault("search.delay", time.Second)
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")

	sessionFile := "explorer-session.json"
	if home, err := os.UserHomeDir(); err == nil {
		sessionFile = filepath.Join(home, ".movie-explorer", "session.json")
	}
	v.SetDefault("session_file", sessionFile)
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.API.URL) == "" {
		return errors.New("api.url is required")
	}
	if cfg.SessionFile == "" {
		return errors.New("session_file is required")
	}
	if cfg.Search.Delay < 0 {
		return errors.New("search.delay must not be negative")
	}
	return nil
}

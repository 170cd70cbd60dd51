// Package config layers chronoshift settings from defaults, an optional
// YAML file and the environment. The `IP` environment variable supplies
// the default server address when no flag is given, preserving the
// original tool's contract.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/aretw0/chronoshift/internal/journal"
	"github.com/aretw0/chronoshift/internal/technique"
	"github.com/aretw0/chronoshift/internal/timesource"
)

// Config is the resolved runtime configuration.
type Config struct {
	Server          string        `mapstructure:"server"`
	Port            int           `mapstructure:"port"`
	JournalDir      string        `mapstructure:"journal_dir"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	ApplyTimeout    time.Duration `mapstructure:"apply_timeout"`
	RevertTimeout   time.Duration `mapstructure:"revert_timeout"`
	FallbackServers []string      `mapstructure:"fallback_servers"`
}

// Load resolves configuration in priority order: defaults, then the
// config file if one exists, then environment variables. An explicit
// path failing to parse is an error; a missing default-location file is
// not.
func Load(path string) (*Config, error) {
	v := viper.New()

	// The server key needs an explicit default so AutomaticEnv can
	// populate it during Unmarshal.
	v.SetDefault("server", "")
	v.SetDefault("port", timesource.DefaultPort)
	v.SetDefault("journal_dir", journal.DefaultDir())
	v.SetDefault("query_timeout", 5*time.Second)
	v.SetDefault("apply_timeout", 30*time.Second)
	v.SetDefault("revert_timeout", 30*time.Second)
	v.SetDefault("fallback_servers", technique.DefaultFallbackServers)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("chronoshift")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/chronoshift")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "chronoshift"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("CHRONOSHIFT")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Legacy contract: the bare IP env var supplies the server address
	// when nothing else set one.
	if cfg.Server == "" {
		cfg.Server = os.Getenv("IP")
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", cfg.Port)
	}
	return nil
}

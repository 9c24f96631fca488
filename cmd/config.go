package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/etnz/tradesim/api"
	"github.com/etnz/tradesim/live"
	"github.com/etnz/tradesim/session"
	"github.com/spf13/viper"
)

// DefaultServer is the backend used when nothing is configured.
const DefaultServer = "http://localhost:8080"

// Config is the tsim configuration.
type Config struct {
	Server   string        `mapstructure:"server"`
	WS       string        `mapstructure:"ws"`      // live endpoint, derived from Server when empty
	Session  string        `mapstructure:"session"` // session file
	Timeout  time.Duration `mapstructure:"timeout"`
	Cache    time.Duration `mapstructure:"cache"` // stock lookup cache TTL, off when 0
	Currency string        `mapstructure:"currency"`
}

// LoadConfig reads the configuration from path, or from tsim.yaml in the
// working directory then the user config dir when path is empty, and from
// TSIM_* environment variables. Non empty overrides win over both.
func LoadConfig(path string, overrides map[string]string) (*Config, error) {
	v := viper.New()
	v.SetDefault("server", DefaultServer)
	v.SetDefault("ws", "")
	v.SetDefault("session", "")
	v.SetDefault("timeout", api.DefaultTimeout)
	v.SetDefault("cache", time.Duration(0))
	v.SetDefault("currency", "USD")
	v.SetEnvPrefix("TSIM")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	} else {
		v.SetConfigName("tsim")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "tsim"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file failed: %w", err)
			}
		}
	}
	for k, val := range overrides {
		if val != "" {
			v.Set(k, val)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	if err := cfg.complete(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// complete derives the missing values and validates the others.
func (c *Config) complete() error {
	if c.WS == "" {
		ws, err := live.URLFor(c.Server)
		if err != nil {
			return fmt.Errorf("invalid server: %w", err)
		}
		c.WS = ws
	}
	if c.Session == "" {
		p, err := session.DefaultPath()
		if err != nil {
			return fmt.Errorf("cannot locate session file: %w", err)
		}
		c.Session = p
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.Cache < 0 {
		return fmt.Errorf("cache must not be negative, got %v", c.Cache)
	}
	if money.GetCurrency(c.Currency) == nil {
		return fmt.Errorf("unknown currency %q", c.Currency)
	}
	return nil
}

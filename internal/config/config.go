package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config holds the application configuration
type Config struct {
	Endpoint       string        `env:"CHECKIN_ENDPOINT,required"`
	PostEndpoint   string        `env:"CHECKIN_POST_ENDPOINT"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"20s"`
	DeepLinkBase   string        `env:"DEEP_LINK_BASE" envDefault:"http://localhost:3000/"`
	DataDir        string        `env:"DATA_DIR" envDefault:"data"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`

	WhatsAppEnabled     bool     `env:"WHATSAPP_ENABLED" envDefault:"false"`
	WhatsAppNotifyPhone string   `env:"WHATSAPP_NOTIFY_NUMBER"`
	WhatsAppStaffPhones []string `env:"WHATSAPP_STAFF_NUMBERS" envSeparator:","`
	DefaultCountryCode  string   `env:"DEFAULT_COUNTRY_CODE" envDefault:"972"`
}

// LoadConfig loads configuration from environment variables, applying defaults
func LoadConfig() (*Config, error) {
	return parse(env.Options{})
}

// LoadConfigFrom is LoadConfig over an explicit variable set instead of the
// process environment.
func LoadConfigFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PostEndpoint == "" {
		cfg.PostEndpoint = cfg.Endpoint
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values env parsing cannot
func (c *Config) Validate() error {
	if err := checkURL("CHECKIN_ENDPOINT", c.Endpoint); err != nil {
		return err
	}
	if err := checkURL("CHECKIN_POST_ENDPOINT", c.PostEndpoint); err != nil {
		return err
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Level returns the configured zerolog level
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}

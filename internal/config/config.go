package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/crewdesk/internal/feed"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the resolved runtime configuration.
type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Feed      FeedConfig      `mapstructure:"feed"`

	// Timezone is the IANA zone used to resolve day boundaries. Empty or
	// "Local" means the host zone.
	Timezone string `mapstructure:"timezone"`
}

type DBConfig struct {
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LifecycleConfig struct {
	// AllowDirectComplete permits scheduled -> completed without a start.
	AllowDirectComplete bool `mapstructure:"allow_direct_complete"`
}

type FeedConfig struct {
	MinInterval   time.Duration `mapstructure:"min_interval"`
	Burst         int           `mapstructure:"burst"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay"`
	Buffer        int           `mapstructure:"buffer"`
}

// WatchOptions converts the feed settings into subscription options.
func (f FeedConfig) WatchOptions(logger *zap.Logger) feed.Options {
	return feed.Options{
		MinInterval:   f.MinInterval,
		Burst:         f.Burst,
		RetryDelay:    f.RetryDelay,
		MaxRetryDelay: f.MaxRetryDelay,
		ErrorBuffer:   f.Buffer,
		Logger:        logger,
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", tz, err)
	}
	return loc, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Feed.MinInterval < 0 || c.Feed.RetryDelay < 0 || c.Feed.MaxRetryDelay < 0 {
		return fmt.Errorf("feed durations must not be negative")
	}
	if c.Feed.Burst < 0 || c.Feed.Buffer < 0 {
		return fmt.Errorf("feed.burst and feed.buffer must not be negative")
	}
	return nil
}

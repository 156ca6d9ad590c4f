package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix namespaces every environment override, e.g. CREWDESK_SERVER_PORT.
	EnvPrefix = "CREWDESK"
	// ConfigFileEnv names an explicit YAML config file.
	ConfigFileEnv = "CREWDESK_CONFIG"
	// DefaultConfigFile is read from the working directory when present.
	DefaultConfigFile = "crewdesk.yaml"
	// DotEnvFile is loaded into the process environment before anything else.
	DotEnvFile = ".env"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.path", defaultDBPath())
	v.SetDefault("db.busy_timeout", 5*time.Second)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("lifecycle.allow_direct_complete", false)
	v.SetDefault("timezone", "Local")

	v.SetDefault("feed.min_interval", 100*time.Millisecond)
	v.SetDefault("feed.burst", 1)
	v.SetDefault("feed.retry_delay", 500*time.Millisecond)
	v.SetDefault("feed.max_retry_delay", 30*time.Second)
	v.SetDefault("feed.buffer", 8)
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "crewdesk.db"
	}
	return filepath.Join(home, ".crewdesk", "crewdesk.db")
}

// Load resolves configuration with precedence
// defaults < YAML file < environment < overrides.
// Each override map may be nested ({"server": {"port": 9000}}) or use dotted keys.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", DotEnvFile, err)
	}

	v := viper.New()
	setDefaults(v)

	if path, explicit := configFilePath(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("reading config file %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func configFilePath() (path string, explicit bool) {
	if p := strings.TrimSpace(os.Getenv(ConfigFileEnv)); p != "" {
		return p, true
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile, false
	}
	return "", false
}

func flatten(prefix string, m map[string]any) map[string]any {
	out := map[string]any{}
	for k, val := range m {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}

// Keys lists every configuration key in sorted order.
func Keys() []string {
	v := viper.New()
	setDefaults(v)
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// YAML renders the resolved configuration, durations as Go duration strings.
func (c *Config) YAML() ([]byte, error) {
	doc := map[string]any{
		"db": map[string]any{
			"path":         c.DB.Path,
			"busy_timeout": c.DB.BusyTimeout.String(),
		},
		"server": map[string]any{
			"host":             c.Server.Host,
			"port":             c.Server.Port,
			"read_timeout":     c.Server.ReadTimeout.String(),
			"write_timeout":    c.Server.WriteTimeout.String(),
			"shutdown_timeout": c.Server.ShutdownTimeout.String(),
		},
		"logging": map[string]any{
			"level":  c.Logging.Level,
			"format": c.Logging.Format,
		},
		"lifecycle": map[string]any{
			"allow_direct_complete": c.Lifecycle.AllowDirectComplete,
		},
		"feed": map[string]any{
			"min_interval":    c.Feed.MinInterval.String(),
			"burst":           c.Feed.Burst,
			"retry_delay":     c.Feed.RetryDelay.String(),
			"max_retry_delay": c.Feed.MaxRetryDelay.String(),
			"buffer":          c.Feed.Buffer,
		},
		"timezone": c.Timezone,
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return out, nil
}

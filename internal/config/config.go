package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jask/eventdesk/internal/designer"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Designer DesignerConfig `mapstructure:"designer"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	UI       UIConfig       `mapstructure:"ui"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
	Seed bool   `mapstructure:"seed"`
}

// LLMConfig holds layout-suggestion provider settings.
type LLMConfig struct {
	Provider  string        `mapstructure:"provider"`
	APIKeyEnv string        `mapstructure:"api_key_env"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DesignerConfig holds the seating designer settings. An empty Region means
// "start where the last successful load happened".
type DesignerConfig struct {
	Region       string        `mapstructure:"region"`
	Regions      []string      `mapstructure:"regions"`
	ScriptURL    string        `mapstructure:"script_url"`
	SecretKeyEnv string        `mapstructure:"secret_key_env"`
	SecretKey    string        `mapstructure:"secret_key"`
	Language     string        `mapstructure:"language"`
	LoadTimeout  time.Duration `mapstructure:"load_timeout"`
	OpenTimeout  time.Duration `mapstructure:"open_timeout"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

// RedisConfig enables the shared selection relay when URL is set.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// UIConfig holds presentation settings for the terminal dashboard.
type UIConfig struct {
	Owner      string `mapstructure:"owner"`
	DateFormat string `mapstructure:"date_format"`
	Timezone   string `mapstructure:"timezone"`
}

// Providers are the accepted llm.provider values.
var Providers = []string{"heuristic", "openai", "eino"}

// Load reads .env, the config file and env. Env var overrides use prefix EVENTDESK_.
func Load() (Config, error) {
	// a missing .env is the normal case outside development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	if cfgPath := os.Getenv("EVENTDESK_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "eventdesk"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("EVENTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "eventdesk", "eventdesk.db"))
	v.SetDefault("database.seed", true)
	v.SetDefault("llm.provider", "heuristic")
	v.SetDefault("llm.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 20*time.Second)
	v.SetDefault("designer.region", "eu")
	v.SetDefault("designer.regions", []string{"na", "eu", "sa", "oc"})
	v.SetDefault("designer.script_url", designer.DefaultScriptURLTemplate)
	v.SetDefault("designer.secret_key_env", "SEATSIO_SECRET_KEY")
	v.SetDefault("designer.secret_key", "")
	v.SetDefault("designer.language", "en")
	v.SetDefault("designer.load_timeout", 15*time.Second)
	v.SetDefault("designer.open_timeout", 30*time.Second)
	v.SetDefault("designer.query_timeout", 5*time.Second)
	v.SetDefault("redis.url", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file_path", filepath.Join("logs", "eventdesk.log"))
	v.SetDefault("ui.owner", "local")
	v.SetDefault("ui.date_format", "Mon 02 Jan 15:04")
	v.SetDefault("ui.timezone", "Local")
}

// Validate checks the values that would otherwise fail late, suggesting the
// nearest accepted value for typos.
func (c Config) Validate() error {
	var errs []error
	regions, err := designer.ParseRegions(c.Designer.Regions)
	if err != nil {
		errs = append(errs, fmt.Errorf("designer.regions: %w", err))
	} else if c.Designer.Region != "" {
		if _, err := regions.Parse(c.Designer.Region); err != nil {
			errs = append(errs, fmt.Errorf("designer.region: %w", err))
		}
	}
	if p := strings.ToLower(strings.TrimSpace(c.LLM.Provider)); !contains(Providers, p) {
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q (did you mean %q?)", c.LLM.Provider, nearest(Providers, p)))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format: want json or console, got %q", c.Log.Format))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is empty"))
	}
	return errors.Join(errs...)
}

// RegionSet returns the configured fallback order; call Validate first.
func (c Config) RegionSet() designer.RegionSet {
	rs, err := designer.ParseRegions(c.Designer.Regions)
	if err != nil || len(rs) == 0 {
		return designer.DefaultRegions
	}
	return rs
}

// StartRegion picks the configured region, else the remembered one, else the
// first in the fallback order.
func (c Config) StartRegion(remembered string) designer.Region {
	rs := c.RegionSet()
	for _, name := range []string{c.Designer.Region, remembered} {
		if r, err := rs.Parse(name); err == nil && name != "" {
			return r
		}
	}
	return rs[0]
}

// Save writes the provided config to disk, creating the config directory if needed.
// Secrets are never written; they belong in env vars or the secret store.
func Save(cfg Config) error {
	path := os.Getenv("EVENTDESK_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "eventdesk", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("database.seed", cfg.Database.Seed)
	v.Set("llm.provider", cfg.LLM.Provider)
	v.Set("llm.api_key_env", cfg.LLM.APIKeyEnv)
	v.Set("llm.model", cfg.LLM.Model)
	v.Set("llm.base_url", cfg.LLM.BaseURL)
	v.Set("designer.region", cfg.Designer.Region)
	v.Set("designer.regions", cfg.Designer.Regions)
	v.Set("designer.script_url", cfg.Designer.ScriptURL)
	v.Set("designer.secret_key_env", cfg.Designer.SecretKeyEnv)
	v.Set("designer.language", cfg.Designer.Language)
	v.Set("redis.url", cfg.Redis.URL)
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("ui.owner", cfg.UI.Owner)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.timezone", cfg.UI.Timezone)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func nearest(candidates []string, s string) string {
	best, bestDist := "", -1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(s, c); bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

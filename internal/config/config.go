// Package config loads dashboard settings from a YAML file with
// environment overrides. Secrets never live in the file; they are read
// from the environment only.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"cryptodash/internal/models"
)

const DefaultPath = "configs/config.yaml"

// Duration decodes "10m"-style YAML strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Market MarketConfig `yaml:"market"`
	Cache  CacheConfig  `yaml:"cache"`
	Brief  BriefConfig  `yaml:"brief"`
	Bot    BotConfig    `yaml:"bot"`

	// Secrets, environment only.
	CoingeckoAPIKey string `yaml:"-"`
	TelegramToken   string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	RedisPassword   string `yaml:"-"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type MarketConfig struct {
	Currency  string   `yaml:"currency"`
	Universe  int      `yaml:"universe"`
	Durations []string `yaml:"durations"`
	TTL       Duration `yaml:"ttl"`
}

type CacheConfig struct {
	Backend string      `yaml:"backend"` // file, redis or memory
	Dir     string      `yaml:"dir"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

type BriefConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
}

type BotConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Addr: ":8080"},
		Market: MarketConfig{
			Currency:  "usd",
			Universe:  1000,
			Durations: []string{"1h", "24h", "7d"},
			TTL:       Duration(10 * time.Minute),
		},
		Cache: CacheConfig{
			Backend: "file",
			Dir:     ".cache",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
	}
}

// Load reads the config file at path, then applies environment overrides
// and validates. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.CoingeckoAPIKey = os.Getenv("COINGECKO_API_KEY")
	c.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	c.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
}

func (c *Config) validate() error {
	if c.CoingeckoAPIKey == "" {
		return fmt.Errorf("COINGECKO_API_KEY is not set")
	}
	if c.Market.Currency == "" {
		return fmt.Errorf("market.currency must not be empty")
	}
	if c.Market.Universe <= 0 {
		return fmt.Errorf("market.universe must be positive, got %d", c.Market.Universe)
	}
	if c.Market.TTL <= 0 {
		return fmt.Errorf("market.ttl must be positive")
	}
	if len(c.Market.Durations) == 0 {
		return fmt.Errorf("market.durations must not be empty")
	}
	for _, d := range c.Market.Durations {
		if !models.IsSupportedDuration(d) {
			return fmt.Errorf("market.durations: %q is not one of %v", d, models.SupportedDurations)
		}
	}

	switch c.Cache.Backend {
	case "file":
		if c.Cache.Dir == "" {
			return fmt.Errorf("cache.dir must be set for the file backend")
		}
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr must be set for the redis backend")
		}
	case "memory":
	default:
		return fmt.Errorf("cache.backend must be file, redis or memory, got %q", c.Cache.Backend)
	}

	if c.Brief.Enabled && c.OpenAIAPIKey == "" {
		return fmt.Errorf("brief.enabled requires OPENAI_API_KEY")
	}
	if c.Bot.Enabled && c.TelegramToken == "" {
		return fmt.Errorf("bot.enabled requires TELEGRAM_BOT_TOKEN")
	}
	return nil
}

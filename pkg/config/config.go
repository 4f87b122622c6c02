package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Session struct {
		JWTSecret       string        `yaml:"jwt_secret"`
		AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
		RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	} `yaml:"session"`

	Playback struct {
		Secret              string        `yaml:"secret"`
		TokenTTL            time.Duration `yaml:"token_ttl"`
		DeviceLimit         int           `yaml:"device_limit"`
		ProxyPath           string        `yaml:"proxy_path"`
		GeoBlockedCountries []string      `yaml:"geo_blocked_countries"`
		GeoRanges           []string      `yaml:"geo_ranges"`
	} `yaml:"playback"`

	Upstream struct {
		Timeout         time.Duration `yaml:"timeout"`
		UserAgent       string        `yaml:"user_agent"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	} `yaml:"upstream"`

	Probe struct {
		BatchSize int           `yaml:"batch_size"`
		Timeout   time.Duration `yaml:"timeout"`
		MaxURLs   int           `yaml:"max_urls"`
	} `yaml:"probe"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		MaxConcurrent     int     `yaml:"max_concurrent"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.Session.JWTSecret == "" {
		return fmt.Errorf("session.jwt_secret must not be empty")
	}
	if c.Session.AccessTokenTTL <= 0 {
		return fmt.Errorf("session.access_token_ttl must be > 0")
	}
	if c.Session.RefreshTokenTTL <= 0 {
		return fmt.Errorf("session.refresh_token_ttl must be > 0")
	}

	if c.Playback.Secret == "" {
		return fmt.Errorf("playback.secret must not be empty")
	}
	if c.Playback.Secret == c.Session.JWTSecret {
		return fmt.Errorf("playback.secret must differ from session.jwt_secret")
	}
	if c.Playback.TokenTTL <= 0 {
		return fmt.Errorf("playback.token_ttl must be > 0")
	}
	// Playback tokens stay short-lived so leaked links die quickly.
	if c.Playback.TokenTTL > 60*time.Second {
		return fmt.Errorf("playback.token_ttl must be <= 60s")
	}
	if c.Playback.DeviceLimit <= 0 {
		return fmt.Errorf("playback.device_limit must be > 0")
	}
	if c.Playback.ProxyPath == "" || c.Playback.ProxyPath[0] != '/' {
		return fmt.Errorf("playback.proxy_path must be an absolute path")
	}

	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be > 0")
	}
	if c.Upstream.MaxIdleConns < 0 {
		return fmt.Errorf("upstream.max_idle_conns must be >= 0")
	}
	if c.Upstream.MaxConnsPerHost < 0 {
		return fmt.Errorf("upstream.max_conns_per_host must be >= 0")
	}

	if c.Probe.BatchSize <= 0 {
		return fmt.Errorf("probe.batch_size must be > 0")
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be > 0")
	}
	if c.Probe.MaxURLs <= 0 {
		return fmt.Errorf("probe.max_urls must be > 0")
	}

	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Session.JWTSecret = "change-me-session-secret"
	cfg.Session.AccessTokenTTL = 15 * time.Minute
	cfg.Session.RefreshTokenTTL = 7 * 24 * time.Hour

	cfg.Playback.Secret = "change-me-playback-secret"
	cfg.Playback.TokenTTL = 60 * time.Second
	cfg.Playback.DeviceLimit = 3
	cfg.Playback.ProxyPath = "/api/v1/proxy"

	cfg.Upstream.Timeout = 15 * time.Second
	cfg.Upstream.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	cfg.Upstream.MaxIdleConns = 100
	cfg.Upstream.MaxConnsPerHost = 32

	cfg.Probe.BatchSize = 10
	cfg.Probe.Timeout = 5 * time.Second
	cfg.Probe.MaxURLs = 5000

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100
	cfg.RateLimiting.MaxConcurrent = 0

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("STREAMGATE_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("STREAMGATE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("STREAMGATE_SESSION_SECRET"); secret != "" {
		c.Session.JWTSecret = secret
	}
	if secret := os.Getenv("STREAMGATE_PLAYBACK_SECRET"); secret != "" {
		c.Playback.Secret = secret
	}
	if addr := os.Getenv("STREAMGATE_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
		c.Redis.Enabled = true
	}
	if limit := os.Getenv("STREAMGATE_DEVICE_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			c.Playback.DeviceLimit = n
		}
	}
}

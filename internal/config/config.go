package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	LDAP      LDAPConfig      `yaml:"ldap"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Share     ShareConfig     `yaml:"share"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // sqlite, mysql, postgres
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	LogSQL       bool   `yaml:"log_sql"`
}

type JWTConfig struct {
	Secret            string `yaml:"secret"`
	ExpireHour        int    `yaml:"expire_hour"`
	RefreshExpireHour int    `yaml:"refresh_expire_hour"`
}

type LDAPConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	BaseDN         string `yaml:"base_dn"`
	BindDN         string `yaml:"bind_dn"`
	BindPassword   string `yaml:"bind_password"`
	UserFilter     string `yaml:"user_filter"`
	UseSSL         bool   `yaml:"use_ssl"`
	DefaultOrgSlug string `yaml:"default_org_slug"` // organization that LDAP users are provisioned into
}

// RedisConfig for the optional async workflow event queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// AuthConfig controls the end-to-end test identity seam. It must stay off in production.
type AuthConfig struct {
	E2EBypass bool `yaml:"e2e_bypass"`
}

type ShareConfig struct {
	BaseURL           string `yaml:"base_url"`
	DefaultExpiryDays int    `yaml:"default_expiry_days"` // 0 = links never expire by default
	PurgeAfterDays    int    `yaml:"purge_after_days"`
}

type SchedulerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	LogRetentionDays int    `yaml:"log_retention_days"`
	CleanupCron      string `yaml:"cleanup_cron"`
	ShareSweepCron   string `yaml:"share_sweep_cron"`
}

// RateLimitConfig sets per-client token buckets for the public endpoints.
type RateLimitConfig struct {
	Auth  LimitRule `yaml:"auth"`
	Share LimitRule `yaml:"share"`
}

// LimitRule is a token bucket: RPS tokens per second, up to Burst at once.
// A zero RPS disables the limit.
type LimitRule struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type CalendarConfig struct {
	DefaultCountry string `yaml:"default_country"`
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		fileCfg := DefaultConfig()
		if err := yaml.Unmarshal(data, fileCfg); err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	cfg.overrideFromEnv()
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "siteflow.db",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		JWT: JWTConfig{
			Secret:            "siteflow-secret-key-change-in-production",
			ExpireHour:        24,
			RefreshExpireHour: 720,
		},
		LDAP: LDAPConfig{
			Enabled:    false,
			Port:       389,
			UserFilter: "(uid=%s)",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Log: LogConfig{
			Level: "info",
		},
		Share: ShareConfig{
			BaseURL:           "http://localhost:8080",
			DefaultExpiryDays: 30,
			PurgeAfterDays:    90,
		},
		Scheduler: SchedulerConfig{
			Enabled:          true,
			LogRetentionDays: 30,
			CleanupCron:      "0 3 * * *",
			ShareSweepCron:   "30 3 * * *",
		},
		Calendar: CalendarConfig{
			DefaultCountry: "NONE",
		},
		RateLimit: RateLimitConfig{
			Auth:  LimitRule{RPS: 2, Burst: 20},
			Share: LimitRule{RPS: 5, Burst: 20},
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if bypass := os.Getenv("AUTH_E2E_BYPASS"); bypass != "" {
		c.Auth.E2EBypass, _ = strconv.ParseBool(bypass)
	}
	if baseURL := os.Getenv("SHARE_BASE_URL"); baseURL != "" {
		c.Share.BaseURL = baseURL
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

// BypassAllowed reports whether the e2e identity seam may be mounted.
// Release mode never allows it, whatever the flag says.
func (c *Config) BypassAllowed() bool {
	return c.Auth.E2EBypass && c.Server.Mode != "release"
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

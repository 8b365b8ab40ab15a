package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"payment-schedule/domain"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Storage   StorageConfig   `toml:"storage"`
	Cache     CacheConfig     `toml:"cache"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Log       LogConfig       `toml:"log"`
}

type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	IdleTimeout     Duration `toml:"idle_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type RateLimitConfig struct {
	Capacity int      `toml:"capacity"`
	Refill   Duration `toml:"refill"`
}

// StorageConfig selects the project store. Driver is "memory" or "sqlite".
type StorageConfig struct {
	Driver string `toml:"driver"`
	DBPath string `toml:"db_path,omitempty"`
}

// CacheConfig selects the calculation cache. Driver is "memory" or "redis".
type CacheConfig struct {
	Driver        string   `toml:"driver"`
	RedisAddr     string   `toml:"redis_addr,omitempty"`
	RedisPassword string   `toml:"redis_password,omitempty"`
	RedisDB       int      `toml:"redis_db"`
	TTL           Duration `toml:"ttl"`
}

// ScheduleConfig holds the schedule used by projects without a custom one.
type ScheduleConfig struct {
	DefaultStages []domain.StageRecord `toml:"default_stages"`
}

type LogConfig struct {
	Debug bool `toml:"debug"`
}

// Duration lets TOML values like "15s" decode into a time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{15 * time.Second},
			IdleTimeout:     Duration{60 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
		},
		RateLimit: RateLimitConfig{
			Capacity: 30,
			Refill:   Duration{time.Minute},
		},
		Storage: StorageConfig{
			Driver: "memory",
			DBPath: filepath.Join(DataDir(), "projects.db"),
		},
		Cache: CacheConfig{
			Driver:    "memory",
			RedisAddr: "localhost:6379",
			TTL:       Duration{10 * time.Minute},
		},
		Schedule: ScheduleConfig{
			DefaultStages: []domain.StageRecord{
				{Stage: "Booking", Type: domain.StagePercentage, Percentage: 10},
				{Stage: "Design Sign-off", Type: domain.StagePercentage, Percentage: 40},
				{Stage: "Production", Type: domain.StagePercentage, Percentage: 40},
				{Stage: "Handover", Type: domain.StageRemaining},
			},
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "payment-schedule")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "payment-schedule")
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "payment-schedule")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "payment-schedule")
}

// ConfigPath returns the full path to the default config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file at path, returning defaults if it doesn't
// exist. An empty path means ConfigPath().
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, fmt.Errorf("reading config: %w", err)
	default:
		// A configured stage list replaces the default one; it must not
		// decode on top of the default entries.
		defaults := cfg.Schedule.DefaultStages
		cfg.Schedule.DefaultStages = nil

		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
		if !md.IsDefined("schedule", "default_stages") {
			cfg.Schedule.DefaultStages = defaults
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("PAYSCHED_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("PAYSCHED_DB_PATH"); path != "" {
		c.Storage.Driver = "sqlite"
		c.Storage.DBPath = path
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Cache.Driver = "redis"
		c.Cache.RedisAddr = addr
	}
}

// Validate checks driver names, limits and the default schedule.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("storage: db_path is required for sqlite")
		}
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}

	switch c.Cache.Driver {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache: redis_addr is required for redis")
		}
	default:
		return fmt.Errorf("cache: unknown driver %q", c.Cache.Driver)
	}

	if c.RateLimit.Capacity <= 0 {
		return fmt.Errorf("rate_limit: capacity must be positive")
	}
	if c.RateLimit.Refill.Duration <= 0 {
		return fmt.Errorf("rate_limit: refill must be positive")
	}

	if _, err := c.DefaultSchedule(); err != nil {
		return err
	}
	return nil
}

// DefaultSchedule decodes the configured default stages.
func (c Config) DefaultSchedule() (domain.PaymentSchedule, error) {
	schedule, err := domain.ScheduleFromRecords(c.Schedule.DefaultStages)
	if err != nil {
		return nil, fmt.Errorf("schedule.default_stages: %w", err)
	}
	return schedule, nil
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"meal-planner/internal/generation"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Generation GenerationConfig `mapstructure:"generation"`
	JWTSecret  string           `mapstructure:"jwt_secret"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for the SQLite database file
}

type AuthConfig struct {
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

type SchedulerConfig struct {
	TokenCleanupInterval time.Duration `mapstructure:"token_cleanup_interval"`
}

// SeasonRule selects a preset for a week when its boolean expression holds.
// The expression sees month, week and year of the plan week's Saturday.
type SeasonRule struct {
	Preset string `mapstructure:"preset"`
	When   string `mapstructure:"when"`
}

type GenerationConfig struct {
	// Presets replaces the built-in catalog when non-empty.
	Presets  []generation.Preset `mapstructure:"presets"`
	Schedule []SeasonRule        `mapstructure:"schedule"`
}

// Catalog returns the configured presets, or the built-in ones.
func (g GenerationConfig) Catalog() *generation.Catalog {
	if len(g.Presets) == 0 {
		return generation.DefaultCatalog()
	}
	return generation.NewCatalog(g.Presets)
}

// DefaultSchedule is used when neither presets nor a schedule are configured.
// It names built-in presets, so custom presets without a schedule fall back
// to their first entry instead.
var DefaultSchedule = []SeasonRule{
	{Preset: "winter", When: "month >= 10 || month <= 3"},
	{Preset: "summer", When: "true"},
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.IsSQLite() {
		return d.Path + "/" + d.Name + ".db"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsSQLite returns true if the driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

// Load reads app.yaml from the working directory or the repository root.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../..")
	return read(v)
}

// LoadFrom reads the given config file.
func LoadFrom(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	return read(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "meal_planner")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.path", "./data")
	v.SetDefault("jwt_secret", "changeme-secret")
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "168h")
	v.SetDefault("scheduler.token_cleanup_interval", "1h")

	v.AutomaticEnv()
	return v
}

func read(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Generation.Schedule) == 0 && len(cfg.Generation.Presets) == 0 {
		cfg.Generation.Schedule = DefaultSchedule
	}

	return &cfg, nil
}

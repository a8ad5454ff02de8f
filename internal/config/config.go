// Package config loads server settings from a TOML file, an optional .env file and
// IMMOLIFE_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IMMOLIFE_"

type Config struct {
	Log     LogConfig     `toml:"log"`
	Game    GameConfig    `toml:"game"`
	Storage StorageConfig `toml:"storage"`
	Server  ServerConfig  `toml:"server"`
	Tuning  TuningConfig  `toml:"tuning"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type GameConfig struct {
	BaseDayDuration  Duration `toml:"base_day_duration"`
	AutosaveInterval Duration `toml:"autosave_interval"`
	AutosaveDelay    Duration `toml:"autosave_delay"`
	IOTimeout        Duration `toml:"io_timeout"`
	Seed             int64    `toml:"seed"` // 0 seeds from the clock
	StartMoney       int64    `toml:"start_money"`
}

type StorageConfig struct {
	Driver      string `toml:"driver"`
	Path        string `toml:"path"`
	RedisURL    string `toml:"redis_url"`
	PostgresDSN string `toml:"postgres_dsn"`
	CacheSize   int    `toml:"cache_size"` // 0 disables the slot cache
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type TuningConfig struct {
	Profile string `toml:"profile"`
}

// Duration decodes TOML strings such as "2s" or "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Game: GameConfig{
			BaseDayDuration:  Duration{2 * time.Second},
			AutosaveInterval: Duration{5 * time.Minute},
			AutosaveDelay:    Duration{time.Second},
			IOTimeout:        Duration{10 * time.Second},
			StartMoney:       500000,
		},
		Storage: StorageConfig{Driver: DriverSQLite, Path: "immolife.db", CacheSize: 16},
		Server:  ServerConfig{Addr: ":8080"},
		Tuning:  TuningConfig{Profile: "default"},
	}
}

// Load reads path (skipped when empty) over the defaults, then applies overrides from
// envFiles and the process environment. Missing env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer file.Close()
		if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}

	dotenv := map[string]string{}
	for _, f := range envFiles {
		vals, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, seen := dotenv[k]; !seen {
				dotenv[k] = v
			}
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from IMMOLIFE_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int64) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	duration := func(name string, dst *Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		if err := dst.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		return nil
	}

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("STORAGE_PATH", &c.Storage.Path)
	str("REDIS_URL", &c.Storage.RedisURL)
	str("POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("ADDR", &c.Server.Addr)
	str("TUNING_PROFILE", &c.Tuning.Profile)

	cacheSize := int64(c.Storage.CacheSize)
	if err := integer("CACHE_SIZE", &cacheSize); err != nil {
		return err
	}
	c.Storage.CacheSize = int(cacheSize)

	if err := integer("SEED", &c.Game.Seed); err != nil {
		return err
	}
	if err := integer("START_MONEY", &c.Game.StartMoney); err != nil {
		return err
	}
	if err := duration("DAY_DURATION", &c.Game.BaseDayDuration); err != nil {
		return err
	}
	if err := duration("AUTOSAVE_INTERVAL", &c.Game.AutosaveInterval); err != nil {
		return err
	}
	return duration("AUTOSAVE_DELAY", &c.Game.AutosaveDelay)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the sqlite driver")
		}
	case DriverMemory:
	case DriverRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("storage.redis_url is required for the redis driver")
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Game.BaseDayDuration.Duration <= 0 {
		return errors.New("game.base_day_duration must be positive")
	}
	if c.Game.StartMoney < 0 {
		return errors.New("game.start_money must not be negative")
	}
	if c.Storage.CacheSize < 0 {
		return errors.New("storage.cache_size must not be negative")
	}
	return nil
}

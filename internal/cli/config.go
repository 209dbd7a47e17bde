package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Cache backend names for the "cache" config key.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheOff   = "off"
)

// Archive backend names for the "archive" config key.
const (
	ArchiveFile  = "file"
	ArchiveMongo = "mongo"
	ArchiveOff   = "off"
)

// Config holds the TOML settings file. Every field has a working default,
// so an absent file is not an error. Command-line flags override the
// corresponding config values.
type Config struct {
	// Cache selects the result cache backend: file, redis or off.
	Cache string `toml:"cache"`

	// Archive selects the run archive backend: file, mongo or off.
	Archive string `toml:"archive"`

	// ArchiveDir overrides the file archive location.
	ArchiveDir string `toml:"archive_dir"`

	Redis    RedisSettings   `toml:"redis"`
	Mongo    MongoSettings   `toml:"mongo"`
	Server   ServerSettings  `toml:"server"`
	Defaults DefaultSettings `toml:"defaults"`
}

// RedisSettings configures the redis cache backend.
type RedisSettings struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// MongoSettings configures the mongo archive backend.
type MongoSettings struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// ServerSettings configures the serve command.
type ServerSettings struct {
	Addr string `toml:"addr"`
}

// DefaultSettings seeds command flag defaults.
type DefaultSettings struct {
	Table string `toml:"table"`
	Mode  string `toml:"mode"`
	Seed  int64  `toml:"seed"`
}

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Cache == "" {
		c.Cache = CacheFile
	}
	if c.Archive == "" {
		c.Archive = ArchiveFile
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate rejects unknown backend names early, before a command tries to
// connect anywhere.
func (c *Config) Validate() error {
	switch c.Cache {
	case CacheFile, CacheRedis, CacheOff:
	default:
		return fmt.Errorf("invalid cache backend %q (want file, redis or off)", c.Cache)
	}
	switch c.Archive {
	case ArchiveFile, ArchiveMongo, ArchiveOff:
	default:
		return fmt.Errorf("invalid archive backend %q (want file, mongo or off)", c.Archive)
	}
	return nil
}

// LoadConfig reads the TOML settings file. With an empty path the default
// location is used and a missing file yields [DefaultConfig]; an explicit
// path that does not exist is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := defaultConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Cache = strings.ToLower(strings.TrimSpace(cfg.Cache))
	cfg.Archive = strings.ToLower(strings.TrimSpace(cfg.Archive))
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// defaultConfigPath returns ~/.config/towerblocks/config.toml, honoring
// XDG_CONFIG_HOME.
func defaultConfigPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CATALOGSYNC"

// Every key needs a default, otherwise AutomaticEnv cannot override it on Unmarshal.
func setDefaults(v *viper.Viper) {
	for _, prefix := range []string{"database", "state_storage"} {
		v.SetDefault(prefix+".driver", "sqlite")
		v.SetDefault(prefix+".file_path", "catalog.db")
		v.SetDefault(prefix+".host", "")
		v.SetDefault(prefix+".port", 3306)
		v.SetDefault(prefix+".user", "")
		v.SetDefault(prefix+".password", "")
		v.SetDefault(prefix+".database", "")
		v.SetDefault(prefix+".replication_user", "")
		v.SetDefault(prefix+".replication_password", "")
	}

	v.SetDefault("remote.driver", "dynamodb")
	v.SetDefault("remote.region", "us-east-1")
	v.SetDefault("remote.endpoint", "")
	v.SetDefault("remote.access_key_id", "")
	v.SetDefault("remote.secret_access_key", "")
	v.SetDefault("remote.products_table", "productos")
	v.SetDefault("remote.users_table", "users")

	v.SetDefault("sync.run_on_start", true)
	v.SetDefault("sync.realtime", false)
	v.SetDefault("sync.batch_size", 100)
	v.SetDefault("sync.flush_interval", "500ms")
	v.SetDefault("sync.conflict_resolution", ResolutionRemoteWins)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval", "@every 15m")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.auth_token", "")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "5m")
	v.SetDefault("auth.issuer", "catalog-sync-service")

	v.SetDefault("notify.redis.enabled", false)
	v.SetDefault("notify.redis.addr", "localhost:6379")
	v.SetDefault("notify.redis.password", "")
	v.SetDefault("notify.redis.db", 0)
	v.SetDefault("notify.redis.channel", "catalog-sync")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// LoadConfig reads the YAML file at path, applies CATALOGSYNC_* environment
// overrides and validates the result. A missing file is not an error; defaults
// and environment still apply. Variables from a .env file in the working
// directory are loaded first when present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	for name, db := range map[string]DatabaseConnection{"database": c.Database, "state_storage": c.StateStorage} {
		switch db.Driver {
		case "sqlite":
			if db.FilePath == "" {
				return fmt.Errorf("%s.file_path is required for sqlite", name)
			}
		case "mysql":
			if db.Host == "" || db.Database == "" {
				return fmt.Errorf("%s.host and %s.database are required for mysql", name, name)
			}
		default:
			return fmt.Errorf("%s.driver %q is not supported", name, db.Driver)
		}
	}

	switch c.Remote.Driver {
	case "dynamodb", "memory":
	default:
		return fmt.Errorf("remote.driver %q is not supported", c.Remote.Driver)
	}
	if c.Remote.ProductsTable == "" || c.Remote.UsersTable == "" {
		return errors.New("remote.products_table and remote.users_table are required")
	}

	switch c.Sync.ConflictResolution {
	case ResolutionRemoteWins, ResolutionPreservePending:
	default:
		return fmt.Errorf("sync.conflict_resolution %q is not supported", c.Sync.ConflictResolution)
	}

	if c.Sync.Realtime && c.Database.Driver != "mysql" {
		return errors.New("sync.realtime requires database.driver mysql")
	}
	return nil
}

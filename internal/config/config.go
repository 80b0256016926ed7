package config

import (
	"time"
)

type Config struct {
	Database     DatabaseConnection `mapstructure:"database"`
	StateStorage DatabaseConnection `mapstructure:"state_storage"`
	Remote       RemoteConfig       `mapstructure:"remote"`
	Sync         SyncConfig         `mapstructure:"sync"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Server       ServerConfig       `mapstructure:"server"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Notify       NotifyConfig       `mapstructure:"notify"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// DatabaseConnection describes either a SQLite file or a MySQL server.
type DatabaseConnection struct {
	Driver              string `mapstructure:"driver"` // sqlite or mysql
	FilePath            string `mapstructure:"file_path"` // For SQLite
	Host                string `mapstructure:"host"`
	Port                int    `mapstructure:"port"`
	User                string `mapstructure:"user"`
	Password            string `mapstructure:"password"`
	Database            string `mapstructure:"database"`
	ReplicationUser     string `mapstructure:"replication_user"`
	ReplicationPassword string `mapstructure:"replication_password"`
}

type RemoteConfig struct {
	Driver          string `mapstructure:"driver"` // dynamodb or memory
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ProductsTable   string `mapstructure:"products_table"`
	UsersTable      string `mapstructure:"users_table"`
}

const (
	ResolutionRemoteWins      = "remote_wins"
	ResolutionPreservePending = "preserve_pending"
)

type SyncConfig struct {
	RunOnStart         bool   `mapstructure:"run_on_start"`
	Realtime           bool   `mapstructure:"realtime"`
	BatchSize          int    `mapstructure:"batch_size"`
	FlushInterval      string `mapstructure:"flush_interval"`
	ConflictResolution string `mapstructure:"conflict_resolution"`
}

func (s SyncConfig) GetFlushInterval() time.Duration {
	d, err := time.ParseDuration(s.FlushInterval)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	Host         string   `mapstructure:"host"`
	AuthToken    string   `mapstructure:"auth_token"`
	ReadTimeout  string   `mapstructure:"read_timeout"`
	WriteTimeout string   `mapstructure:"write_timeout"`
	CorsOrigins  []string `mapstructure:"cors_origins"`
}

func (s ServerConfig) GetReadTimeout() time.Duration {
	d, _ := time.ParseDuration(s.ReadTimeout)
	return d
}

func (s ServerConfig) GetWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(s.WriteTimeout)
	return d
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	TokenTTL  string `mapstructure:"token_ttl"`
	Issuer    string `mapstructure:"issuer"`
}

func (a AuthConfig) GetTokenTTL() time.Duration {
	d, err := time.ParseDuration(a.TokenTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

type NotifyConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

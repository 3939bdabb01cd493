package config

import "time"

// StorageConfig configures the local cache, the optional remote store and
// bootstrap files.
type StorageConfig struct {
	NamespaceDefault string          `yaml:"namespace_default"`
	WriteTimeout     time.Duration   `yaml:"write_timeout"`
	LoadTimeout      time.Duration   `yaml:"load_timeout"`
	Local            LocalStore      `yaml:"local"`
	Remote           RemoteStore     `yaml:"remote"`
	Bootstrap        BootstrapConfig `yaml:"bootstrap"`
}

// LocalStore is the SQLite cache every write lands in first.
type LocalStore struct {
	// Path is the database file. "memory" keeps the cache in process.
	Path               string        `yaml:"path"`
	TombstoneRetention time.Duration `yaml:"tombstone_retention"`
	CompactionSchedule string        `yaml:"compaction_schedule"`
}

// RemoteStore is the per-user store mirrored in the background.
type RemoteStore struct {
	// Driver is none, memory, postgres, cockroach or s3.
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxConnections  int           `yaml:"max_connections"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	S3              S3Config      `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// BootstrapConfig names files used instead of the stores to seed the
// default namespace.
type BootstrapConfig struct {
	BoxesFile   string `yaml:"boxes_file"`
	LayoutsFile string `yaml:"layouts_file"`
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.NamespaceDefault == "" {
		cfg.NamespaceDefault = "default"
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.LoadTimeout == 0 {
		cfg.LoadTimeout = 10 * time.Second
	}
	if cfg.Local.Path == "" {
		cfg.Local.Path = "boxgrid.db"
	}
	if cfg.Local.TombstoneRetention == 0 {
		cfg.Local.TombstoneRetention = 7 * 24 * time.Hour
	}
	if cfg.Local.CompactionSchedule == "" {
		cfg.Local.CompactionSchedule = "@every 1h"
	}
	if cfg.Remote.Driver == "" {
		cfg.Remote.Driver = "none"
	}
	if cfg.Remote.MaxConnections == 0 {
		cfg.Remote.MaxConnections = 25
	}
	if cfg.Remote.ConnMaxLifetime == 0 {
		cfg.Remote.ConnMaxLifetime = 5 * time.Minute
	}
}

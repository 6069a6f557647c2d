package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent memoir configuration stored as config.toml
// in the .memoir/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Pages       PagesConfig       `toml:"pages"`
	API         APIConfig         `toml:"api"`
	Extractor   ExtractorConfig   `toml:"extractor"`
	Blob        BlobConfig        `toml:"blob"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Cleanup     CleanupConfig     `toml:"cleanup"`
}

// StorageConfig holds memory store settings.
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// PagesConfig holds pages store settings.
type PagesConfig struct {
	Driver     string `toml:"driver,omitempty"`
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen    string `toml:"listen,omitempty"`
	JWTSecret string `toml:"jwt_secret,omitempty"`
}

// ExtractorConfig holds extraction model settings.
type ExtractorConfig struct {
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`
}

// BlobConfig holds attachment store settings.
type BlobConfig struct {
	Driver       string `toml:"driver,omitempty"`
	LocalDir     string `toml:"local_dir,omitempty"`
	LocalBaseURL string `toml:"local_base_url,omitempty"`

	MinioEndpoint  string `toml:"minio_endpoint,omitempty"`
	MinioAccessKey string `toml:"minio_access_key,omitempty"`
	MinioSecretKey string `toml:"minio_secret_key,omitempty"`
	MinioBucket    string `toml:"minio_bucket,omitempty"`
	MinioUseSSL    bool   `toml:"minio_use_ssl,omitempty"`
	MinioBaseURL   string `toml:"minio_base_url,omitempty"`
}

// EventStreamConfig holds commit event publishing settings.
type EventStreamConfig struct {
	Driver  string   `toml:"driver,omitempty"`
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// CleanupConfig holds expiry sweep settings.
type CleanupConfig struct {
	Workers uint `toml:"workers,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error { c.Storage.Driver = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"pages.driver": {
		get: func(c *Config) string { return c.Pages.Driver },
		set: func(c *Config, v string) error { c.Pages.Driver = v; return nil },
	},
	"pages.sqlite_path": {
		get: func(c *Config) string { return c.Pages.SQLitePath },
		set: func(c *Config, v string) error { c.Pages.SQLitePath = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"api.jwt_secret": {
		get: func(c *Config) string { return c.API.JWTSecret },
		set: func(c *Config, v string) error { c.API.JWTSecret = v; return nil },
	},
	"extractor.provider": {
		get: func(c *Config) string { return c.Extractor.Provider },
		set: func(c *Config, v string) error { c.Extractor.Provider = v; return nil },
	},
	"extractor.model": {
		get: func(c *Config) string { return c.Extractor.Model },
		set: func(c *Config, v string) error { c.Extractor.Model = v; return nil },
	},
	"extractor.base_url": {
		get: func(c *Config) string { return c.Extractor.BaseURL },
		set: func(c *Config, v string) error { c.Extractor.BaseURL = v; return nil },
	},
	"blob.driver": {
		get: func(c *Config) string { return c.Blob.Driver },
		set: func(c *Config, v string) error { c.Blob.Driver = v; return nil },
	},
	"blob.local_dir": {
		get: func(c *Config) string { return c.Blob.LocalDir },
		set: func(c *Config, v string) error { c.Blob.LocalDir = v; return nil },
	},
	"blob.local_base_url": {
		get: func(c *Config) string { return c.Blob.LocalBaseURL },
		set: func(c *Config, v string) error { c.Blob.LocalBaseURL = v; return nil },
	},
	"blob.minio_endpoint": {
		get: func(c *Config) string { return c.Blob.MinioEndpoint },
		set: func(c *Config, v string) error { c.Blob.MinioEndpoint = v; return nil },
	},
	"blob.minio_bucket": {
		get: func(c *Config) string { return c.Blob.MinioBucket },
		set: func(c *Config, v string) error { c.Blob.MinioBucket = v; return nil },
	},
	"eventstream.driver": {
		get: func(c *Config) string { return c.EventStream.Driver },
		set: func(c *Config, v string) error { c.EventStream.Driver = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
	"cleanup.workers": {
		get: func(c *Config) string {
			if c.Cleanup.Workers == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Cleanup.Workers), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for cleanup.workers: %w", err)
			}
			c.Cleanup.Workers = uint(n)
			return nil
		},
	},
}

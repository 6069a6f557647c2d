package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/memoirhq/memoir/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the MEMOIR_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (MEMOIR_API_LISTEN, MEMOIR_STORAGE_DRIVER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: MEMOIR_API_LISTEN, MEMOIR_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix("MEMOIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the viper precedence chain.
// Every dotted key registered in setViperDefaults is read back, so flags,
// environment variables, and config file values all land in the same struct.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Driver:      v.GetString("storage.driver"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Pages: PagesConfig{
			Driver:     v.GetString("pages.driver"),
			SQLitePath: v.GetString("pages.sqlite_path"),
		},
		API: APIConfig{
			Listen:    v.GetString("api.listen"),
			JWTSecret: v.GetString("api.jwt_secret"),
		},
		Extractor: ExtractorConfig{
			Provider: v.GetString("extractor.provider"),
			Model:    v.GetString("extractor.model"),
			BaseURL:  v.GetString("extractor.base_url"),
		},
		Blob: BlobConfig{
			Driver:         v.GetString("blob.driver"),
			LocalDir:       v.GetString("blob.local_dir"),
			LocalBaseURL:   v.GetString("blob.local_base_url"),
			MinioEndpoint:  v.GetString("blob.minio_endpoint"),
			MinioAccessKey: v.GetString("blob.minio_access_key"),
			MinioSecretKey: v.GetString("blob.minio_secret_key"),
			MinioBucket:    v.GetString("blob.minio_bucket"),
			MinioUseSSL:    v.GetBool("blob.minio_use_ssl"),
			MinioBaseURL:   v.GetString("blob.minio_base_url"),
		},
		EventStream: EventStreamConfig{
			Driver:  v.GetString("eventstream.driver"),
			Brokers: v.GetStringSlice("eventstream.brokers"),
			Topic:   v.GetString("eventstream.topic"),
		},
		Cleanup: CleanupConfig{
			Workers: v.GetUint("cleanup.workers"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Pages
	v.SetDefault("pages.driver", d.Pages.Driver)
	v.SetDefault("pages.sqlite_path", d.Pages.SQLitePath)

	// API
	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("api.jwt_secret", d.API.JWTSecret)

	// Extractor
	v.SetDefault("extractor.provider", d.Extractor.Provider)
	v.SetDefault("extractor.model", d.Extractor.Model)
	v.SetDefault("extractor.base_url", d.Extractor.BaseURL)

	// Blob
	v.SetDefault("blob.driver", d.Blob.Driver)
	v.SetDefault("blob.local_dir", d.Blob.LocalDir)
	v.SetDefault("blob.local_base_url", d.Blob.LocalBaseURL)
	v.SetDefault("blob.minio_endpoint", d.Blob.MinioEndpoint)
	v.SetDefault("blob.minio_bucket", d.Blob.MinioBucket)

	// Event stream
	v.SetDefault("eventstream.driver", d.EventStream.Driver)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)

	// Cleanup
	v.SetDefault("cleanup.workers", d.Cleanup.Workers)
}

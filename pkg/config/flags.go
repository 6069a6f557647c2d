package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --sqlite
// on "memoir serve", "memoir commit", and "memoir cleanup").
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "api.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen         = "api-listen"
	FlagStorageDriver     = "storage-driver"
	FlagSQLite            = "sqlite"
	FlagPostgresDSN       = "postgres-dsn"
	FlagExtractorProvider = "extractor-provider"
	FlagExtractorModel    = "extractor-model"
	FlagExtractorBaseURL  = "extractor-base-url"
	FlagBlobDriver        = "blob-driver"
	FlagBlobDir           = "blob-dir"
	FlagEventStreamDriver = "eventstream-driver"
	FlagEventStreamTopic  = "eventstream-topic"
	FlagCleanupWorkers    = "cleanup-workers"
)

// DefaultFlagSet returns the canonical flag definitions shared by memoir
// commands. Every entry maps a CLI flag onto its dotted viper key so the
// flag > env > config file > default precedence holds on each command.
func DefaultFlagSet() FlagSet {
	return FlagSet{
		FlagAPIListen: {
			Name:        "listen",
			Shorthand:   "l",
			ViperKey:    "api.listen",
			Description: "Address for the API server to listen on",
		},
		FlagStorageDriver: {
			Name:        "storage-driver",
			ViperKey:    "storage.driver",
			Description: "Memory store backend (sqlite, postgres, inmemory)",
		},
		FlagSQLite: {
			Name:        "sqlite",
			Shorthand:   "s",
			ViperKey:    "storage.sqlite_path",
			Description: "Path to the SQLite memory database",
		},
		FlagPostgresDSN: {
			Name:        "postgres-dsn",
			ViperKey:    "storage.postgres_dsn",
			Description: "Postgres connection string for the memory store",
		},
		FlagExtractorProvider: {
			Name:        "provider",
			ViperKey:    "extractor.provider",
			Description: "Extraction model provider (anthropic, openai, ollama)",
		},
		FlagExtractorModel: {
			Name:        "model",
			ViperKey:    "extractor.model",
			Description: "Extraction model name",
		},
		FlagExtractorBaseURL: {
			Name:        "base-url",
			ViperKey:    "extractor.base_url",
			Description: "Extraction provider base URL",
		},
		FlagBlobDriver: {
			Name:        "blob-driver",
			ViperKey:    "blob.driver",
			Description: "Attachment store backend (local, minio, none)",
		},
		FlagBlobDir: {
			Name:        "blob-dir",
			ViperKey:    "blob.local_dir",
			Description: "Directory for locally stored attachments",
		},
		FlagEventStreamDriver: {
			Name:        "eventstream-driver",
			ViperKey:    "eventstream.driver",
			Description: "Commit event publisher backend (nop, kafka)",
		},
		FlagEventStreamTopic: {
			Name:        "eventstream-topic",
			ViperKey:    "eventstream.topic",
			Description: "Kafka topic for commit events",
		},
		FlagCleanupWorkers: {
			Name:        "workers",
			Shorthand:   "w",
			ViperKey:    "cleanup.workers",
			Description: "Number of concurrent attachment purge workers",
		},
	}
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

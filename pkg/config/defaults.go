package config

const (
	defaultStorageDriver = "sqlite"
	defaultPagesDriver   = "sqlite"

	defaultAPIListen = ":8080"

	defaultExtractorProvider = "ollama"
	defaultExtractorBaseURL  = "http://localhost:11434"

	defaultBlobDriver       = "local"
	defaultBlobLocalDir     = "attachments"
	defaultBlobLocalBaseURL = "http://localhost:8080/attachments"

	defaultEventStreamDriver = "nop"

	defaultCleanupWorkers = 3
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Pages: PagesConfig{
			Driver: defaultPagesDriver,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Extractor: ExtractorConfig{
			Provider: defaultExtractorProvider,
			BaseURL:  defaultExtractorBaseURL,
		},
		Blob: BlobConfig{
			Driver:       defaultBlobDriver,
			LocalDir:     defaultBlobLocalDir,
			LocalBaseURL: defaultBlobLocalBaseURL,
		},
		EventStream: EventStreamConfig{
			Driver: defaultEventStreamDriver,
		},
		Cleanup: CleanupConfig{
			Workers: defaultCleanupWorkers,
		},
	}
}

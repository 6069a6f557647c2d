// Package wiring assembles memoir components from resolved configuration.
// Subcommands share these builders so backend selection behaves identically
// on "memoir serve", "memoir commit", and "memoir cleanup".
package wiring

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/memoirhq/memoir/pkg/blob"
	bloblocal "github.com/memoirhq/memoir/pkg/blob/local"
	blobminio "github.com/memoirhq/memoir/pkg/blob/minio"
	"github.com/memoirhq/memoir/pkg/committer"
	"github.com/memoirhq/memoir/pkg/config"
	"github.com/memoirhq/memoir/pkg/dotdir"
	"github.com/memoirhq/memoir/pkg/eventstream"
	eskafka "github.com/memoirhq/memoir/pkg/eventstream/kafka"
	esnop "github.com/memoirhq/memoir/pkg/eventstream/nop"
	"github.com/memoirhq/memoir/pkg/extract"
	"github.com/memoirhq/memoir/pkg/pages"
	pagesmem "github.com/memoirhq/memoir/pkg/pages/inmemory"
	pagessqlite "github.com/memoirhq/memoir/pkg/pages/sqlite"
	"github.com/memoirhq/memoir/pkg/storage"
	storagemem "github.com/memoirhq/memoir/pkg/storage/inmemory"
	storagepg "github.com/memoirhq/memoir/pkg/storage/postgres"
	storagesqlite "github.com/memoirhq/memoir/pkg/storage/sqlite"
)

// NewStorageDriver creates the memory store backend named by the config.
func NewStorageDriver(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Driver, error) {
	switch cfg.Storage.Driver {
	case "inmemory":
		log.Info("using in-memory memory store")
		return storagemem.NewDriver(), nil

	case "sqlite", "":
		path, err := sqlitePath(cfg.Storage.SQLitePath, "memoir.db")
		if err != nil {
			return nil, err
		}
		driver, err := storagesqlite.NewDriver(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite memory store: %w", err)
		}
		log.Info("using SQLite memory store", zap.String("path", path))
		return driver, nil

	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return nil, fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
		driver, err := storagepg.NewDriver(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres memory store: %w", err)
		}
		log.Info("using Postgres memory store")
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// NewPagesService creates the pages service over the configured backend.
func NewPagesService(cfg *config.Config, log *zap.Logger) (*pages.Service, pages.Store, error) {
	var store pages.Store

	switch cfg.Pages.Driver {
	case "inmemory":
		log.Info("using in-memory pages store")
		store = pagesmem.NewStore()

	case "sqlite", "":
		path, err := sqlitePath(cfg.Pages.SQLitePath, "pages.db")
		if err != nil {
			return nil, nil, err
		}
		store, err = pagessqlite.NewStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create SQLite pages store: %w", err)
		}
		log.Info("using SQLite pages store", zap.String("path", path))

	default:
		return nil, nil, fmt.Errorf("unknown pages driver %q", cfg.Pages.Driver)
	}

	return pages.NewService(store, log), store, nil
}

// NewBlobStore creates the attachment store backend named by the config.
// The "none" driver disables uploads; commits still accept attachment URLs.
func NewBlobStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (blob.Store, error) {
	switch cfg.Blob.Driver {
	case "none":
		return nil, nil

	case "local", "":
		store, err := bloblocal.NewStore(cfg.Blob.LocalDir, cfg.Blob.LocalBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create local attachment store: %w", err)
		}
		log.Info("using local attachment store", zap.String("dir", cfg.Blob.LocalDir))
		return store, nil

	case "minio":
		store, err := blobminio.NewStore(ctx, blobminio.Config{
			Endpoint:      cfg.Blob.MinioEndpoint,
			AccessKey:     cfg.Blob.MinioAccessKey,
			SecretKey:     cfg.Blob.MinioSecretKey,
			Bucket:        cfg.Blob.MinioBucket,
			UseSSL:        cfg.Blob.MinioUseSSL,
			PublicBaseURL: cfg.Blob.MinioBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create MinIO attachment store: %w", err)
		}
		log.Info("using MinIO attachment store",
			zap.String("endpoint", cfg.Blob.MinioEndpoint),
			zap.String("bucket", cfg.Blob.MinioBucket),
		)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Blob.Driver)
	}
}

// NewEventPublisher creates the commit event publisher named by the config.
func NewEventPublisher(cfg *config.Config, log *zap.Logger) (eventstream.Publisher, error) {
	switch cfg.EventStream.Driver {
	case "nop", "":
		return esnop.NewPublisher(), nil

	case "kafka":
		pub, err := eskafka.NewPublisher(eskafka.Config{
			Brokers: cfg.EventStream.Brokers,
			Topic:   cfg.EventStream.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		log.Info("publishing commit events to kafka",
			zap.Strings("brokers", cfg.EventStream.Brokers),
			zap.String("topic", cfg.EventStream.Topic),
		)
		return pub, nil

	default:
		return nil, fmt.Errorf("unknown eventstream driver %q", cfg.EventStream.Driver)
	}
}

// NewCommitter assembles the reconciliation committer: extraction model,
// publisher, and attachment purging for swept records.
func NewCommitter(cfg *config.Config, store storage.Driver, blobs blob.Store, pub eventstream.Publisher, log *zap.Logger) (*committer.Committer, error) {
	call, err := extract.NewCaller(extract.CallerConfig{
		Provider: cfg.Extractor.Provider,
		Model:    cfg.Extractor.Model,
		BaseURL:  cfg.Extractor.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction caller: %w", err)
	}

	opts := []committer.Option{committer.WithPublisher(pub)}
	if blobs != nil {
		opts = append(opts, committer.WithPurger(func(ctx context.Context, urls []string) error {
			for _, url := range urls {
				if err := blobs.Delete(ctx, url); err != nil {
					return fmt.Errorf("delete attachment %s: %w", url, err)
				}
			}
			return nil
		}))
	}

	return committer.New(store, extract.NewExtractor(call), log, opts...), nil
}

// sqlitePath resolves a SQLite database location. An explicit path wins;
// otherwise the database lands in the .memoir dotdir next to the config.
func sqlitePath(override, filename string) (string, error) {
	if override != "" {
		return override, nil
	}

	dir, err := dotdir.NewManager().Target("")
	if err != nil {
		return "", fmt.Errorf("resolving data dir: %w", err)
	}
	if dir == "" {
		return filename, nil
	}
	return filepath.Join(dir, filename), nil
}

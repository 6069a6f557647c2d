// Package servecmder provides the serve command for running the memoir API
// server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/memoirhq/memoir/api"
	"github.com/memoirhq/memoir/cmd/memoir/wiring"
	"github.com/memoirhq/memoir/pkg/config"
	"github.com/memoirhq/memoir/pkg/logger"
)

type ServeCommander struct {
	listen            string
	storageDriver     string
	sqlitePath        string
	postgresDSN       string
	blobDriver        string
	blobDir           string
	eventstreamDriver string
	eventstreamTopic  string
	debug             bool

	viper  *viper.Viper
	logger *zap.Logger
}

const serveLongDesc string = `Run the memoir API server.

The server exposes page management, message commits, attachment uploads,
and the weekly digest over HTTP. Backends for the memory store, pages
store, attachments, and the commit event stream are selected via config,
environment variables (MEMOIR_ prefix), or flags.`

const serveShortDesc string = "Run the memoir API server"

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagBlobDriver,
	config.FlagBlobDir,
	config.FlagEventStreamDriver,
	config.FlagEventStreamTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, fs, serveFlagKeys)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, fs, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, fs, config.FlagBlobDriver, &cmder.blobDriver)
	config.AddStringFlag(cmd, fs, config.FlagBlobDir, &cmder.blobDir)
	config.AddStringFlag(cmd, fs, config.FlagEventStreamDriver, &cmder.eventstreamDriver)
	config.AddStringFlag(cmd, fs, config.FlagEventStreamTopic, &cmder.eventstreamTopic)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	cfg := config.FromViper(c.viper)
	ctx := context.Background()

	store, err := wiring.NewStorageDriver(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	pageSvc, pageStore, err := wiring.NewPagesService(cfg, c.logger)
	if err != nil {
		return err
	}
	defer pageStore.Close()

	blobs, err := wiring.NewBlobStore(ctx, cfg, c.logger)
	if err != nil {
		return err
	}

	publisher, err := wiring.NewEventPublisher(cfg, c.logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	cmt, err := wiring.NewCommitter(cfg, store, blobs, publisher, c.logger)
	if err != nil {
		return err
	}

	apiConfig := api.Config{
		ListenAddr: cfg.API.Listen,
		JWTSecret:  cfg.API.JWTSecret,
	}

	opts := []api.Option{}
	if blobs != nil {
		opts = append(opts, api.WithBlobStore(blobs))
	}

	server, err := api.NewServer(apiConfig, store, pageSvc, cmt, c.logger, opts...)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

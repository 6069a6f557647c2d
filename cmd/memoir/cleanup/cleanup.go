// Package cleanupcmder provides the cleanup command for sweeping expired
// memories and purging their attachments.
package cleanupcmder

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/memoirhq/memoir/cmd/memoir/wiring"
	"github.com/memoirhq/memoir/pkg/cleanup"
	"github.com/memoirhq/memoir/pkg/cliui"
	"github.com/memoirhq/memoir/pkg/config"
	"github.com/memoirhq/memoir/pkg/logger"
	"github.com/memoirhq/memoir/pkg/memory"
)

type CleanupCommander struct {
	ref string

	storageDriver string
	sqlitePath    string
	postgresDSN   string
	blobDriver    string
	blobDir       string
	workers       uint
	debug         bool

	viper  *viper.Viper
	logger *zap.Logger
}

const cleanupLongDesc string = `Sweep expired memories and purge their attachments.

Records whose expiry date has passed the reference date are deleted across
all scopes, and any attachments they referenced are removed from the
attachment store. Expiry is day-granular: records expiring today are kept.`

const cleanupShortDesc string = "Sweep expired memories"

var cleanupFlagKeys = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagBlobDriver,
	config.FlagBlobDir,
	config.FlagCleanupWorkers,
}

func NewCleanupCmd() *cobra.Command {
	cmder := &CleanupCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: cleanupShortDesc,
		Long:  cleanupLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, fs, cleanupFlagKeys)
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

	cmd.Flags().StringVar(&cmder.ref, "ref", "", "Reference date (YYYY-MM-DD, default today)")

	config.AddStringFlag(cmd, fs, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, fs, config.FlagBlobDriver, &cmder.blobDriver)
	config.AddStringFlag(cmd, fs, config.FlagBlobDir, &cmder.blobDir)
	config.AddUintFlag(cmd, fs, config.FlagCleanupWorkers, &cmder.workers)

	return cmd
}

func (c *CleanupCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	ref := memory.Truncate(time.Now().UTC())
	if c.ref != "" {
		var err error
		ref, err = memory.ParseDate(c.ref)
		if err != nil {
			return fmt.Errorf("invalid --ref: %w", err)
		}
	}

	cfg := config.FromViper(c.viper)
	ctx := context.Background()

	store, err := wiring.NewStorageDriver(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	blobs, err := wiring.NewBlobStore(ctx, cfg, c.logger)
	if err != nil {
		return err
	}

	runner := cleanup.NewRunner(&cleanup.Config{
		Store:      store,
		Blobs:      blobs,
		NumWorkers: cfg.Cleanup.Workers,
		Logger:     c.logger,
	})

	var result *cleanup.Result
	err = cliui.Step(os.Stdout, "Sweeping expired memories", func() error {
		var runErr error
		result, runErr = runner.Run(ctx, ref)
		return runErr
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s   %d\n", cliui.KeyStyle.Render("swept"), result.Swept)
	fmt.Printf("  %s  %d\n", cliui.KeyStyle.Render("purged"), result.Purged)
	if result.Failed > 0 {
		fmt.Printf("  %s  %d\n", cliui.KeyStyle.Render("failed"), result.Failed)
	}
	fmt.Println()

	return nil
}

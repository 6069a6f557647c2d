// Package publishcmder provides the publish command for writing a scope's
// weekly digest to an HTML file.
package publishcmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/memoirhq/memoir/cmd/memoir/wiring"
	"github.com/memoirhq/memoir/pkg/cliui"
	"github.com/memoirhq/memoir/pkg/config"
	"github.com/memoirhq/memoir/pkg/logger"
	"github.com/memoirhq/memoir/pkg/memory"
	"github.com/memoirhq/memoir/pkg/pages"
	"github.com/memoirhq/memoir/pkg/publisher"
)

type PublishCommander struct {
	page string
	user string
	ref  string
	out  string

	storageDriver string
	sqlitePath    string
	postgresDSN   string
	debug         bool

	viper  *viper.Viper
	logger *zap.Logger
}

const publishLongDesc string = `Render a scope's weekly digest to an HTML file.

Live memories are split into This Week (on or before the coming Sunday,
plus all ongoing reminders) and Upcoming.

Examples:
  memoir publish --page team
  memoir publish --user alice --out alice.html --ref 2026-03-01`

const publishShortDesc string = "Write the weekly digest HTML"

var publishFlagKeys = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
}

func NewPublishCmd() *cobra.Command {
	cmder := &PublishCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "publish",
		Short: publishShortDesc,
		Long:  publishLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, fs, publishFlagKeys)
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

	cmd.Flags().StringVarP(&cmder.page, "page", "p", "", "Publish a shared page's digest")
	cmd.Flags().StringVarP(&cmder.user, "user", "u", "", "Publish a user's personal digest")
	cmd.Flags().StringVar(&cmder.ref, "ref", "", "Reference date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&cmder.out, "out", "o", "digest.html", "Output file")

	config.AddStringFlag(cmd, fs, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &cmder.postgresDSN)

	return cmd
}

func (c *PublishCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	var scope memory.Scope
	title := ""
	switch {
	case c.page != "" && c.user != "":
		return fmt.Errorf("--page and --user are mutually exclusive")
	case c.page != "":
		scope = memory.PageScope(c.page)
		title = c.page
	case c.user != "":
		scope = memory.UserScope(c.user)
		title = c.user
	default:
		return fmt.Errorf("one of --page or --user is required")
	}

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

	// Shared pages get their configured title on the digest heading.
	if c.page != "" {
		if pageTitle, err := c.pageTitle(ctx, cfg); err == nil && pageTitle != "" {
			title = pageTitle
		}
	}

	renderer, err := publisher.NewRenderer()
	if err != nil {
		return err
	}

	records, err := store.LoadLive(ctx, scope, ref)
	if err != nil {
		return fmt.Errorf("failed to load memories: %w", err)
	}

	html, err := renderer.Render(title, records, ref)
	if err != nil {
		return fmt.Errorf("failed to render digest: %w", err)
	}

	if err := os.WriteFile(c.out, html, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.out, err)
	}

	fmt.Printf("\n  %s Wrote %s %s\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(c.out),
		cliui.DimStyle.Render(fmt.Sprintf("(%d memories)", len(records))),
	)
	return nil
}

func (c *PublishCommander) pageTitle(ctx context.Context, cfg *config.Config) (string, error) {
	svc, pageStore, err := wiring.NewPagesService(cfg, c.logger)
	if err != nil {
		return "", err
	}
	defer pageStore.Close()

	page, err := svc.GetPage(ctx, c.page)
	if err != nil {
		if errors.Is(err, pages.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return page.Title, nil
}

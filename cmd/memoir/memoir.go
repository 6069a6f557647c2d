// Package memoircmder
package memoircmder

import (
	"github.com/spf13/cobra"

	cleanupcmder "github.com/memoirhq/memoir/cmd/memoir/cleanup"
	commitcmder "github.com/memoirhq/memoir/cmd/memoir/commit"
	configcmder "github.com/memoirhq/memoir/cmd/memoir/config"
	publishcmder "github.com/memoirhq/memoir/cmd/memoir/publish"
	servecmder "github.com/memoirhq/memoir/cmd/memoir/serve"
	versioncmder "github.com/memoirhq/memoir/cmd/version"
)

const memoirLongDesc string = `Memoir is a living memory for the things you tell it.

Free-form messages become structured event records: an extraction model
decides what each message means, records are grouped into pages and user
scopes, and everything expires on its own schedule.

Common commands:
  memoir serve              Run the API server
  memoir commit             Commit a message from the command line
  memoir cleanup            Sweep expired memories
  memoir publish            Write the weekly digest HTML
  memoir config             Manage persistent configuration`

const memoirShortDesc string = "Memoir - a living memory ledger"

func NewMemoirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memoir",
		Short: memoirShortDesc,
		Long:  memoirLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory containing config.toml (default: .memoir resolution)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(commitcmder.NewCommitCmd())
	cmd.AddCommand(cleanupcmder.NewCleanupCmd())
	cmd.AddCommand(publishcmder.NewPublishCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

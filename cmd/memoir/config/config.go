// Package configcmder provides the config command for managing persistent
// memoir configuration stored in the .memoir/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent memoir configuration.

Configuration is stored as config.toml in the .memoir/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  pages.driver, pages.sqlite_path,
  api.listen, api.jwt_secret,
  extractor.provider, extractor.model, extractor.base_url,
  blob.driver, blob.local_dir, blob.local_base_url,
  blob.minio_endpoint, blob.minio_bucket,
  eventstream.driver, eventstream.topic, cleanup.workers

Use subcommands to get, set, or list configuration values:
  memoir config set <key> <value>    Set a configuration value
  memoir config get <key>            Get a configuration value
  memoir config list                 List all configuration values

Examples:
  memoir config set extractor.provider anthropic
  memoir config set storage.driver postgres
  memoir config get api.listen
  memoir config list`

const configShortDesc string = "Manage persistent memoir configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

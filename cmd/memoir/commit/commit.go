// Package commitcmder provides the commit command for reconciling a message
// into the memory store from the command line.
package commitcmder

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/memoirhq/memoir/cmd/memoir/wiring"
	"github.com/memoirhq/memoir/pkg/cliui"
	"github.com/memoirhq/memoir/pkg/committer"
	"github.com/memoirhq/memoir/pkg/config"
	"github.com/memoirhq/memoir/pkg/logger"
	"github.com/memoirhq/memoir/pkg/memory"
	"github.com/memoirhq/memoir/pkg/utils"
)

type CommitCommander struct {
	page        string
	user        string
	ref         string
	attachments []string

	storageDriver     string
	sqlitePath        string
	postgresDSN       string
	provider          string
	model             string
	baseURL           string
	eventstreamDriver string
	eventstreamTopic  string
	debug             bool

	viper  *viper.Viper
	logger *zap.Logger
}

const commitLongDesc string = `Commit a free-form message to the memory store.

The extraction model decides whether the message records a new event or
updates an existing one, then the result is persisted and expired records
are swept.

Examples:
  memoir commit --page team "Team meeting March 5th at 10am in Room A"
  memoir commit --user alice "Recycling goes out every Tuesday"
  memoir commit --page team --ref 2026-03-01 "Move the meeting to the 12th"`

const commitShortDesc string = "Commit a message to the memory store"

var commitFlagKeys = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagExtractorProvider,
	config.FlagExtractorModel,
	config.FlagExtractorBaseURL,
	config.FlagEventStreamDriver,
	config.FlagEventStreamTopic,
}

func NewCommitCmd() *cobra.Command {
	cmder := &CommitCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "commit <message>",
		Short: commitShortDesc,
		Long:  commitLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, fs, commitFlagKeys)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run(strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&cmder.page, "page", "p", "", "Commit to a shared page")
	cmd.Flags().StringVarP(&cmder.user, "user", "u", "", "Commit to a user's personal scope")
	cmd.Flags().StringVar(&cmder.ref, "ref", "", "Reference date (YYYY-MM-DD, default today)")
	cmd.Flags().StringArrayVar(&cmder.attachments, "attach", nil, "Attachment URL (repeatable)")

	config.AddStringFlag(cmd, fs, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, fs, config.FlagExtractorProvider, &cmder.provider)
	config.AddStringFlag(cmd, fs, config.FlagExtractorModel, &cmder.model)
	config.AddStringFlag(cmd, fs, config.FlagExtractorBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, fs, config.FlagEventStreamDriver, &cmder.eventstreamDriver)
	config.AddStringFlag(cmd, fs, config.FlagEventStreamTopic, &cmder.eventstreamTopic)

	return cmd
}

func (c *CommitCommander) scope() (memory.Scope, error) {
	switch {
	case c.page != "" && c.user != "":
		return memory.Scope{}, fmt.Errorf("--page and --user are mutually exclusive")
	case c.page != "":
		return memory.PageScope(c.page), nil
	case c.user != "":
		return memory.UserScope(c.user), nil
	default:
		return memory.Scope{}, fmt.Errorf("one of --page or --user is required")
	}
}

func (c *CommitCommander) refDate() (time.Time, error) {
	if c.ref == "" {
		return memory.Truncate(time.Now().UTC()), nil
	}
	d, err := memory.ParseDate(c.ref)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --ref: %w", err)
	}
	return d, nil
}

func (c *CommitCommander) run(message string) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	scope, err := c.scope()
	if err != nil {
		return err
	}

	ref, err := c.refDate()
	if err != nil {
		return err
	}

	cfg := config.FromViper(c.viper)
	ctx := context.Background()

	store, err := wiring.NewStorageDriver(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, err := wiring.NewEventPublisher(cfg, c.logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	cmt, err := wiring.NewCommitter(cfg, store, nil, publisher, c.logger)
	if err != nil {
		return err
	}

	var result *committer.Result
	err = cliui.Step(os.Stdout, "Committing message", func() error {
		var commitErr error
		result, commitErr = cmt.Commit(ctx, scope, message, ref, c.attachments)
		return commitErr
	})
	if err != nil {
		return err
	}

	c.printResult(result)
	return nil
}

func (c *CommitCommander) printResult(result *committer.Result) {
	m := result.Memory

	target := "ongoing"
	if d, ok := m.Target.Date(); ok {
		target = memory.FormatDate(d)
	}

	fmt.Printf("\n  %s  %s\n", cliui.KeyStyle.Render("action"), cliui.ValueStyle.Render(string(result.Action)))
	fmt.Printf("  %s      %s\n", cliui.KeyStyle.Render("id"), cliui.ValueStyle.Render(result.ID))
	if m.Title != "" {
		fmt.Printf("  %s   %s\n", cliui.KeyStyle.Render("title"), cliui.ValueStyle.Render(m.Title))
	}
	fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("target"), cliui.ValueStyle.Render(target))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("expires"), cliui.ValueStyle.Render(memory.FormatDate(m.Expires)))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("content"), cliui.ValueStyle.Render(utils.Truncate(m.Content, 72)))

	if len(result.Swept) > 0 {
		fmt.Printf("\n  %s\n", cliui.DimStyle.Render(fmt.Sprintf("swept %d expired record(s)", len(result.Swept))))
	}
	fmt.Println()
}

// Package cli provides the command-line interface for rss2social.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rss2social/rss2social/internal/app"
	"github.com/rss2social/rss2social/internal/config"
	"github.com/rss2social/rss2social/internal/logger"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

type rootFlags struct {
	limit      int
	noMastodon bool
	configFile string
}

// NewRootCmd builds the rss2social command tree.
func NewRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "rss2social",
		Short:         "Post new RSS entries to Bluesky, Mastodon and other sinks",
		Long:          "rss2social reads one RSS feed, formats each new entry and publishes it once to every configured account, remembering what was posted in a ledger.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPoster(cmd.Context(), flags)
		},
	}

	root.Flags().IntVar(&flags.limit, "limit", 0, "maximum number of feed entries to process (default FEED_LIMIT, 5)")
	root.Flags().BoolVar(&flags.noMastodon, "no-mastodon", false, "skip all mastodon accounts for this run")
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "path to the feed and accounts document (default CONFIG_FILE, ./config.json)")

	root.AddCommand(newMigrateCmd(&flags), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rss2social %s (%s)\n", Version, Commit)
		},
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// loadSettings reads environment settings and the config document, applying the --config
// override.
func loadSettings(flags *rootFlags) (*config.Config, *config.Document, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if flags.configFile != "" {
		cfg.ConfigFile = flags.configFile
	}

	doc, err := config.LoadDocument(cfg.ConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config document: %w", err)
	}
	return cfg, doc, nil
}

func runPoster(ctx context.Context, flags rootFlags) error {
	if flags.limit < 0 {
		return fmt.Errorf("invalid --limit %d (must be positive)", flags.limit)
	}

	cfg, doc, err := loadSettings(&flags)
	if err != nil {
		return err
	}

	log, err := logger.Init(cfg.AppName, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Close(log) }()

	log.InfoObj("rss2social starting", "config", map[string]any{
		"config":      cfg,
		"feed":        doc.RSSFeed,
		"limit":       flags.limit,
		"no_mastodon": flags.noMastodon,
	})

	poster, err := app.NewPoster(ctx, cfg, doc, app.Options{
		Limit:           flags.limit,
		DisableMastodon: flags.noMastodon,
	}, log)
	if err != nil {
		log.ErrorObj("failed to initialize poster", "error", err.Error())
		return err
	}

	if err := poster.Run(ctx); err != nil {
		return fmt.Errorf("poster run: %w", err)
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rss2social/rss2social/internal/ledger"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "migrate-ledger",
		Short: "Convert a legacy list-of-links ledger",
		Long: "migrate-ledger reads a legacy ledger (a JSON list of links) and writes the per-account " +
			"ledger, marking every listed link as already posted to every configured account.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, doc, err := loadSettings(flags)
			if err != nil {
				return err
			}
			if from == "" {
				from = cfg.LedgerPath
			}

			dests, err := doc.Destinations()
			if err != nil {
				return fmt.Errorf("load destinations: %w", err)
			}
			accounts := make([]ledger.Account, 0, len(dests))
			for _, d := range dests {
				accounts = append(accounts, ledger.Account{Kind: string(d.Kind), ID: d.AccountID()})
			}

			raw, err := os.ReadFile(from)
			if err != nil {
				return fmt.Errorf("read legacy ledger: %w", err)
			}
			l, err := ledger.MigrateLegacy(raw, accounts, time.Now())
			if err != nil {
				return fmt.Errorf("migrate %s: %w", from, err)
			}

			if err := saveLedger(cmd.Context(), cfg.LedgerType, cfg.LedgerPath, l); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d links for %d accounts into %s (%s)\n",
				len(l.Links()), len(accounts), cfg.LedgerPath, cfg.LedgerType)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "legacy ledger file to read (default LEDGER_PATH)")
	return cmd
}

func saveLedger(ctx context.Context, typ, path string, l *ledger.Ledger) error {
	store, err := ledger.NewStore(typ, path)
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}
	defer func() { _ = store.Close() }()

	return ledger.Persist(ctx, store, l)
}

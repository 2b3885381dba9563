package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vango-dev/kinesis/internal/config"
	"github.com/vango-dev/kinesis/internal/demo"
	kerrors "github.com/vango-dev/kinesis/internal/errors"
	"github.com/vango-dev/kinesis/pkg/journal"
)

func replayCmd() *cobra.Command {
	var (
		configPath string
		flags      storeFlags
	)

	cmd := &cobra.Command{
		Use:   "replay <journal-id>",
		Short: "Replay a stored journal against a fresh demo tree",
		Long: `Replay a stored journal against a fresh demo tree.

Recorded events and propagations are re-applied in order. The passes the
new tree runs are compared with the recorded ones and any difference is
reported. The demo clock is stopped during replay.

Examples:
  kinesis replay 3f2a... --dir=.kinesis/journal
  kinesis replay 3f2a... --bucket=my-journals --region=eu-west-1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			flags.apply(&cfg.Journal)
			return runReplay(cmd.Context(), cfg, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a config file")
	flags.register(cmd)

	return cmd
}

func runReplay(ctx context.Context, cfg *config.Config, journalID string) error {
	records, err := loadJournal(ctx, cfg.Journal, journalID)
	if err != nil {
		return err
	}

	build := demo.Build(demo.Options{Counters: cfg.Demo.Counters})
	report, err := journal.Replay(ctx, build, records)
	if err != nil {
		return err
	}

	if !report.OK() {
		errorMsg("Replay of %s diverged", journalID)
		fmt.Println(report)
		return kerrors.New("K062").WithDetail(fmt.Sprintf(
			"%d of %d recorded passes did not match.", len(report.Divergences), len(records)))
	}
	success("Replayed %s: %d records", journalID, len(records))
	info("%s", report)
	return nil
}

// loadJournal reads every batch of journalID from the configured store.
func loadJournal(ctx context.Context, jc config.JournalConfig, journalID string) ([]journal.Record, error) {
	if jc.Backend == config.BackendMemory || jc.Backend == "" {
		return nil, kerrors.New("K082").
			WithDetail("The memory journal backend does not outlive the server.").
			WithSuggestion("Pass --dir or --bucket, or set journal.backend in the config.")
	}
	store, err := openStore(jc)
	if err != nil {
		return nil, err
	}
	return journal.Load(ctx, store, journalID)
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vango-dev/kinesis/internal/config"
)

func inspectCmd() *cobra.Command {
	var (
		configPath string
		flags      storeFlags
		failed     bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <journal-id>",
		Short: "Print the records of a stored journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			flags.apply(&cfg.Journal)
			return runInspect(cmd.Context(), cfg, args[0], failed)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a config file")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only print failed passes")
	flags.register(cmd)

	return cmd
}

func runInspect(ctx context.Context, cfg *config.Config, journalID string, failedOnly bool) error {
	records, err := loadJournal(ctx, cfg.Journal, journalID)
	if err != nil {
		return err
	}

	shown := 0
	for _, r := range records {
		if failedOnly && !r.Failed() {
			continue
		}
		line := fmt.Sprintf("%s  %s", r.Time.Format(time.RFC3339Nano), r)
		if r.Failed() {
			warn("%s: %s", line, r.Err)
		} else {
			info("%s", line)
		}
		shown++
	}
	fmt.Println()
	success("%d of %d records", shown, len(records))
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"logtail/internal/commithistory"
	"logtail/internal/config"
)

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history [config-path]",
		Short: "Print the recent entries from the commit-history ring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPathArg(args))
			if err != nil {
				return err
			}
			if cfg.CheckpointHistoryPath == "" {
				return fmt.Errorf("history: checkpoint.history_path is not configured")
			}

			store, err := commithistory.Open(cfg.CheckpointHistoryPath, 200)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			defer store.Close()

			entries, err := store.Recent(200)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("no commit history entries")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  generation=%d  offset=%d  file=%s\n",
					e.At.Format("2006-01-02T15:04:05Z07:00"), e.Generation, e.CommittedOffset, e.FileID)
			}
			return nil
		},
	}
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pointer-app/pointer/internal/config"
	"github.com/pointer-app/pointer/internal/history"
)

func openHistory(cfg *config.Config) (*history.Store, error) {
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	var (
		limit    int
		clearAll bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent overlay questions and answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			if clearAll {
				if err := store.Clear(ctx); err != nil {
					return fmt.Errorf("failed to clear history: %w", err)
				}
				fmt.Println("History cleared")
				return nil
			}
			return showHistory(ctx, store, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all history")
	return cmd
}

func showHistory(ctx context.Context, store *history.Store, limit int) error {
	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No history yet")
		return nil
	}

	fmt.Println("Recent questions:")
	fmt.Println("=================")
	for i, e := range entries {
		fmt.Printf("%d. %s\n", i+1, truncateString(e.Query, 60))
		fmt.Printf("   Asked: %s (%s)\n", e.SubmittedAt.Local().Format("2006-01-02 15:04"), e.Phase)
		if e.HasContext {
			fmt.Println("   With selected text")
		}
		fmt.Printf("   Answer: %s\n", truncateString(e.Message, 70))
		fmt.Println()
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

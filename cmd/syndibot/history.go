package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hollowbeak/syndibot/internal/config"
	"github.com/hollowbeak/syndibot/internal/db"
)

var (
	historyPlatform string
	historyStatus   string
	historyDays     int
	historyLimit    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show posting history",
	Long: `List recorded posting attempts, newest first.

Examples:
  syndibot history
  syndibot history --platform mastodon --days 7
  syndibot history --status failed`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyPlatform, "platform", "", "Filter by platform")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "Filter by status (pending, posted, failed)")
	historyCmd.Flags().IntVar(&historyDays, "days", 0, "Only posts created in the last N days")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum rows to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	posts, err := store.GetPostHistory(ctx, db.GetPostHistoryParams{
		Platform: historyPlatform,
		Status:   historyStatus,
		Days:     historyDays,
		Limit:    historyLimit,
	})
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	if len(posts) == 0 {
		fmt.Println("No posts recorded.")
		return nil
	}

	for _, p := range posts {
		fmt.Printf("#%d  %-10s %-8s %s\n", p.ID, p.Platform, p.Status, p.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("    %s\n", truncateLine(p.Content, 80))
		if p.URL.Valid {
			fmt.Printf("    %s\n", p.URL.String)
		}
		if p.ErrorMessage.Valid {
			fmt.Printf("    error: %s\n", p.ErrorMessage.String)
		}
	}
	return nil
}

func truncateLine(s string, max int) string {
	runes := []rune(s)
	for i, r := range runes {
		if r == '\n' {
			runes = runes[:i]
			break
		}
	}
	if len(runes) > max {
		return string(runes[:max-3]) + "..."
	}
	return string(runes)
}

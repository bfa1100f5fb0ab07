package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hollowbeak/syndibot/internal/browser"
	"github.com/hollowbeak/syndibot/internal/config"
	"github.com/hollowbeak/syndibot/internal/platform"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check reachability of all configured platforms",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	manager, err := platform.NewManager(cfg, browser.NewChromeFactory(cfg.BrowserHeadless), nil)
	if err != nil {
		return err
	}
	names := manager.Enabled()
	if len(names) == 0 {
		fmt.Println("No platforms configured.")
		return nil
	}

	statuses := manager.CheckAll(ctx)

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, name := range names {
		state := "unreachable"
		if statuses[name] {
			state = "ok"
		}
		fmt.Printf("%-10s %s\n", name, state)
	}
	return nil
}

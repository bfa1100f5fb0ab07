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

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate against all configured platforms",
	Long: `Attempt authentication on every configured platform and report
which credentials work. One platform's failure never stops the others.`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForPosting(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	manager, err := platform.NewManager(cfg, browser.NewChromeFactory(cfg.BrowserHeadless), nil)
	if err != nil {
		return err
	}
	results := manager.AuthenticateAll(ctx)

	names := make([]platform.Name, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	failures := 0
	for _, name := range names {
		state := "failed"
		if results[name] {
			state = "ok"
		} else {
			failures++
		}
		fmt.Printf("%-10s %s\n", name, state)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d platforms failed to authenticate", failures, len(results))
	}
	return nil
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hollowbeak/syndibot/internal/config"
	"github.com/hollowbeak/syndibot/internal/platform"
	"github.com/hollowbeak/syndibot/internal/ratelimit"
)

var setupCmd = &cobra.Command{
	Use:   "setup [platform]",
	Short: "Run the interactive credential setup for a platform",
	Long: `Walk through the authorization flow for platforms that need one.

Currently only "threads" has a setup flow: it prints the authorization URL,
waits for the code from the redirect, exchanges it for tokens, and prints
the environment lines to persist.`,
	Args: cobra.ExactArgs(1),
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	switch args[0] {
	case "threads":
		return setupThreads()
	default:
		return fmt.Errorf("no setup flow for platform %q", args[0])
	}
}

func setupThreads() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForSetup(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	adapter := platform.NewThreadsAdapter(platform.ThreadsConfig{
		ClientID:     cfg.ThreadsClientID,
		ClientSecret: cfg.ThreadsClientSecret,
		RedirectURI:  cfg.ThreadsRedirectURI,
		RateLimits:   ratelimit.DefaultConfig(),
	})

	fmt.Println("Visit the following URL and authorize the application:")
	fmt.Println()
	fmt.Println("  " + adapter.AuthorizeURL())
	fmt.Println()
	fmt.Print("Enter the authorization code from the redirect URL: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("no authorization code entered")
	}

	if err := adapter.ExchangeCode(ctx, code); err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	access, refresh, expiry := adapter.Tokens()

	fmt.Println()
	fmt.Println("Authorization complete. Add these lines to your .env:")
	fmt.Println()
	fmt.Printf("THREADS_ACCESS_TOKEN=%s\n", access)
	if refresh != "" {
		fmt.Printf("THREADS_REFRESH_TOKEN=%s\n", refresh)
	}
	fmt.Printf("THREADS_TOKEN_EXPIRY=%d\n", expiry.Unix())
	return nil
}

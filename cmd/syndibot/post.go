package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hollowbeak/syndibot/internal/app"
	"github.com/hollowbeak/syndibot/internal/config"
	"github.com/hollowbeak/syndibot/internal/db"
	"github.com/hollowbeak/syndibot/internal/generator"
	"github.com/hollowbeak/syndibot/internal/platform"
)

var (
	postPlatform   string
	postAll        bool
	postDryRun     bool
	postTitle      string
	postTags       []string
	postVisibility string
	postMedia      []string
	postFile       string
	postGenerate   string
)

var postCmd = &cobra.Command{
	Use:   "post [content]",
	Short: "Post content to one or all platforms",
	Long: `Post content to the configured platforms. Content comes from the
argument, --file, or --generate.

Examples:
  syndibot post "Release 1.4 is out" --all
  syndibot post --file notes.md --platform devto --title "Release 1.4"
  syndibot post "A photo" --platform mastodon --media shot.jpg
  syndibot post --generate status --file digest.txt --platform threads
  syndibot post "Testing" --all --dry-run`,
	RunE: runPost,
}

func init() {
	postCmd.Flags().StringVar(&postPlatform, "platform", "", "Target platform (devto, mastodon, threads, linkedin)")
	postCmd.Flags().BoolVar(&postAll, "all", false, "Post to every configured platform")
	postCmd.Flags().BoolVar(&postDryRun, "dry-run", false, "Show what would be posted without actually posting")
	postCmd.Flags().StringVar(&postTitle, "title", "", "Article title (Dev.to)")
	postCmd.Flags().StringSliceVar(&postTags, "tags", nil, "Article tags (Dev.to)")
	postCmd.Flags().StringVar(&postVisibility, "visibility", "", "Status visibility (Mastodon)")
	postCmd.Flags().StringSliceVar(&postMedia, "media", nil, "Media files to attach")
	postCmd.Flags().StringVar(&postFile, "file", "", "Read content from a file")
	postCmd.Flags().StringVar(&postGenerate, "generate", "", "Generate content from the input digest (longform, thread, status)")
	rootCmd.AddCommand(postCmd)
}

func runPost(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if !postAll && postPlatform == "" {
		return fmt.Errorf("specify --platform or --all")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !postDryRun {
		if err := cfg.ValidateForPosting(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}
	if postGenerate != "" {
		if err := cfg.ValidateForGeneration(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}

	content, err := resolveContent(args)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	if postGenerate != "" {
		draft, err := a.Generator.Generate(ctx, generator.Style(postGenerate), content)
		if err != nil {
			return fmt.Errorf("generate content: %w", err)
		}
		content = draft.Text()
	}

	req := platform.Request{
		Content:    content,
		MediaPaths: postMedia,
		Title:      postTitle,
		Tags:       postTags,
		Visibility: postVisibility,
	}

	fmt.Println()
	fmt.Println("=== Post Content ===")
	fmt.Println()
	fmt.Println(content)
	fmt.Println()

	if postDryRun {
		fmt.Println("=== DRY RUN - Not posting ===")
		return nil
	}

	if postAll {
		return postToAll(ctx, a, req)
	}
	return postToOne(ctx, a, platform.Name(postPlatform), req)
}

// resolveContent picks the content source: positional argument or --file.
func resolveContent(args []string) (string, error) {
	if postFile != "" {
		data, err := os.ReadFile(postFile)
		if err != nil {
			return "", fmt.Errorf("read content file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	return "", fmt.Errorf("no content given: pass it as an argument or use --file")
}

// postToOne records the attempt around a single adapter call.
func postToOne(ctx context.Context, a *app.App, name platform.Name, req platform.Request) error {
	record, err := a.Store.CreatePost(ctx, db.CreatePostParams{
		Platform: string(name),
		Content:  req.Content,
	})
	if err != nil {
		return fmt.Errorf("record post: %w", err)
	}

	res := a.Manager.PostTo(ctx, name, req)
	finishPost(ctx, a, record.ID, res)
	printResult(res)

	if !res.Success {
		return fmt.Errorf("post to %s failed: %s", name, res.Error)
	}
	return nil
}

// postToAll fans out; per-platform failures are reported but never stop the
// other platforms.
func postToAll(ctx context.Context, a *app.App, req platform.Request) error {
	names := a.Manager.Enabled()
	if len(names) == 0 {
		return fmt.Errorf("no platforms configured")
	}

	records := make(map[platform.Name]int64, len(names))
	for _, name := range names {
		record, err := a.Store.CreatePost(ctx, db.CreatePostParams{
			Platform: string(name),
			Content:  req.Content,
		})
		if err != nil {
			return fmt.Errorf("record post: %w", err)
		}
		records[name] = record.ID
	}

	results := a.Manager.PostToAll(ctx, req)

	failures := 0
	for name, res := range results {
		finishPost(ctx, a, records[name], res)
		printResult(res)
		if !res.Success {
			failures++
		}
	}

	if failures == len(results) {
		return fmt.Errorf("all %d platforms failed", failures)
	}
	if failures > 0 {
		fmt.Printf("%d of %d platforms failed\n", failures, len(results))
	}
	return nil
}

// finishPost moves the pending record to posted or failed.
func finishPost(ctx context.Context, a *app.App, id int64, res platform.Result) {
	status := db.StatusPosted
	if !res.Success {
		status = db.StatusFailed
	}
	err := a.Store.UpdatePostStatus(ctx, db.UpdatePostStatusParams{
		ID:             id,
		Status:         status,
		ErrorMessage:   res.Error,
		PlatformPostID: res.PostID,
		URL:            res.URL,
	})
	if err != nil {
		slog.Warn("failed to update post record", "id", id, "error", err)
	}
}

func printResult(res platform.Result) {
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", res)
		return
	}
	fmt.Println(string(out))
}

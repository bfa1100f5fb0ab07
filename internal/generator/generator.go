// Package generator produces platform-shaped post drafts from a news digest
// using the OpenAI chat API.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
)

// Style selects the shape of the generated content.
type Style string

const (
	// StyleLongForm is a multi-paragraph professional post (LinkedIn).
	StyleLongForm Style = "longform"

	// StyleThread is a sequence of short updates separated by [TWEET]
	// markers in the model output.
	StyleThread Style = "thread"

	// StyleStatus is a single short update (Mastodon, Threads).
	StyleStatus Style = "status"
)

const threadSeparator = "[TWEET]"

// maxThreadItemLength drops over-long items the model produced anyway.
const maxThreadItemLength = 250

// Config holds generation parameters.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
}

// chatClient is the slice of the OpenAI client the generator uses.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator turns digests into drafts.
type Generator struct {
	client chatClient
	cfg    Config
}

// New creates a generator backed by the OpenAI API.
func New(cfg Config) *Generator {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	return &Generator{
		client: openai.NewClient(cfg.APIKey),
		cfg:    cfg,
	}
}

// Draft is generated content ready for posting. A thread draft carries more
// than one item; other styles carry exactly one.
type Draft struct {
	Style Style
	Items []string
}

// Text returns the draft as a single string. Thread items are joined with
// blank lines.
func (d Draft) Text() string {
	return strings.Join(d.Items, "\n\n")
}

// IsThread reports whether the draft holds multiple items.
func (d Draft) IsThread() bool {
	return len(d.Items) > 1
}

// Generate produces a draft in the requested style from digest text.
func (g *Generator) Generate(ctx context.Context, style Style, digest string) (Draft, error) {
	digest = strings.TrimSpace(digest)
	if digest == "" {
		return Draft{}, fmt.Errorf("empty digest")
	}

	var prompt string
	switch style {
	case StyleLongForm:
		prompt = longFormPrompt
	case StyleThread:
		prompt = threadPrompt
	case StyleStatus:
		prompt = statusPrompt
	default:
		return Draft{}, fmt.Errorf("unknown style %q", style)
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Temperature: g.cfg.Temperature,
		MaxTokens:   2000,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt + "\n\nContext:\n" + digest,
			},
		},
	})
	if err != nil {
		return Draft{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Draft{}, fmt.Errorf("no completion choices returned")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return Draft{}, fmt.Errorf("empty completion")
	}

	draft := parseDraft(style, content)
	if len(draft.Items) == 0 {
		return Draft{}, fmt.Errorf("no usable content in completion")
	}

	slog.Info("content generated", "style", style, "items", len(draft.Items))
	return draft, nil
}

// parseDraft splits model output into draft items according to style.
func parseDraft(style Style, content string) Draft {
	if style != StyleThread {
		return Draft{Style: style, Items: []string{content}}
	}

	var items []string
	for _, part := range strings.Split(content, threadSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) > maxThreadItemLength {
			slog.Warn("dropping over-length thread item", "length", utf8.RuneCountInString(part))
			continue
		}
		items = append(items, part)
	}
	return Draft{Style: style, Items: items}
}

package browser

import (
	"context"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// chromeSession drives one headless Chrome process through chromedp. The
// session owns its allocator and is torn down by Close.
type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// NewChromeFactory returns a Factory that launches a fresh Chrome process per
// session. Nothing is launched until the factory is called.
func NewChromeFactory(headless bool) Factory {
	return func(ctx context.Context) (Automator, error) {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
		)
		allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
		taskCtx, cancel := chromedp.NewContext(allocCtx)

		// Run with no actions to start the browser now, so a missing Chrome
		// binary fails here instead of mid-login.
		if err := chromedp.Run(taskCtx); err != nil {
			cancel()
			allocCancel()
			return nil, err
		}

		return &chromeSession{ctx: taskCtx, cancel: cancel, allocCancel: allocCancel}, nil
	}
}

func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := s.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitVisible(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *chromeSession) Fill(ctx context.Context, selector, text string) error {
	return s.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *chromeSession) Cookies(ctx context.Context) ([]Cookie, error) {
	var out []Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, Cookie{
				Name:   c.Name,
				Value:  c.Value,
				Domain: c.Domain,
				Path:   c.Path,
				Secure: c.Secure,
			})
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *chromeSession) Close() error {
	s.cancel()
	s.allocCancel()
	return nil
}

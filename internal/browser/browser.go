// Package browser defines the automation collaborator used by adapters that
// drive a web UI instead of an API. The mechanics of page automation live
// behind the Automator interface; this package only fixes the contract the
// adapters rely on: an exclusive session per call, explicit timeouts, and a
// guaranteed Close on every exit path.
package browser

import (
	"context"
	"net/http"
)

// Cookie is a harvested browser cookie, ready to copy into an http client.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
	Secure bool
}

// Automator is one exclusive browser session. Implementations wrap a real
// headless browser process; tests use a fake. Every method honors the
// context deadline and returns an error instead of hanging.
type Automator interface {
	// Navigate loads a URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// WaitVisible blocks until the element matching the CSS selector is
	// visible.
	WaitVisible(ctx context.Context, selector string) error

	// Fill types text into the element matching the selector. Typing pace
	// is an implementation policy, not part of this contract.
	Fill(ctx context.Context, selector, text string) error

	// Click clicks the element matching the selector.
	Click(ctx context.Context, selector string) error

	// Cookies returns the session's current cookies.
	Cookies(ctx context.Context) ([]Cookie, error)

	// Close releases the underlying browser process. Safe to call more
	// than once.
	Close() error
}

// Factory opens a fresh exclusive session. Adapters call it once per
// authenticate-or-post operation and defer Close.
type Factory func(ctx context.Context) (Automator, error)

// CopyCookies installs harvested cookies into an http client's jar for the
// given base URL, so subsequent API calls reuse the browser session.
func CopyCookies(client *http.Client, baseURL string, cookies []Cookie) error {
	if client.Jar == nil {
		return nil
	}
	req, err := http.NewRequest(http.MethodGet, baseURL, nil)
	if err != nil {
		return err
	}
	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		httpCookies = append(httpCookies, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
		})
	}
	client.Jar.SetCookies(req.URL, httpCookies)
	return nil
}

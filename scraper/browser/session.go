// Package browser holds the fetch strategies that need a rendered page. One
// shared Chrome session serves all of them; each adapter renders its listings
// page(s) and extracts cards from the resulting HTML.
package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"ghent-immo-scraper/utils"
)

// Renderer produces fully rendered page HTML. Adapters depend on this
// interface so their extraction logic is testable without a browser.
type Renderer interface {
	HTML(ctx context.Context, url string) (string, error)
}

// Session owns one headless Chrome allocator shared by every browser-backed
// fetch in a pass. Close must run on all exit paths.
type Session struct {
	logger *utils.Logger
	retry  *utils.RetryConfig
	settle time.Duration

	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	cancelRoot  context.CancelFunc
}

// NewSession starts the allocator. chromeBin overrides binary discovery.
func NewSession(chromeBin string, maxRetries int, logger *utils.Logger) (*Session, error) {
	bin := chromeBin
	if bin == "" {
		bin = findChromeBinary()
	}
	logger.Info("[browser] Using browser binary: %s", bin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	rootCtx, cancelRoot := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &Session{
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		settle:      2 * time.Second,
		allocCtx:    rootCtx,
		cancelAlloc: cancelAlloc,
		cancelRoot:  cancelRoot,
	}, nil
}

// Close tears the browser down.
func (s *Session) Close() {
	s.cancelRoot()
	s.cancelAlloc()
}

// HTML navigates to the URL in a fresh tab, waits for the page to settle and
// returns the rendered markup.
func (s *Session) HTML(ctx context.Context, url string) (string, error) {
	var html string

	err := s.retry.Do(ctx, "render-page", func() error {
		tabCtx, cancel := chromedp.NewContext(s.allocCtx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 60*time.Second)
		defer cancelTimeout()

		stop := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-stop:
			}
		}()
		defer close(stop)

		err := chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.Sleep(s.settle),
			chromedp.OuterHTML("html", &html),
		)
		if err != nil {
			return fmt.Errorf("chromedp render %s: %w", url, err)
		}
		return nil
	})

	return html, err
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

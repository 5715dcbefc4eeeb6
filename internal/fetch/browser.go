// internal/fetch/browser.go
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/propdata/agentharvest/internal/utils"
)

// BrowserConfig defines the escalated fetch path.
type BrowserConfig struct {
	Headless   bool
	UserAgent  string
	NavTimeout time.Duration
	// Wait is an extra settle delay after the body is ready, for pages
	// that populate their listings from script.
	Wait time.Duration
}

// BrowserFetcher is the escalated fetch path: a headless Chrome
// instance that renders the page before handing back its markup. It is
// only used after a soft block on the plain HTTP path.
type BrowserFetcher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	config      BrowserConfig
	log         utils.Logger
}

// NewBrowserFetcher starts a browser allocator. The browser process
// itself launches lazily on the first Fetch.
func NewBrowserFetcher(config BrowserConfig, log utils.Logger) *BrowserFetcher {
	if config.NavTimeout == 0 {
		config.NavTimeout = 60 * time.Second
	}
	if config.Wait == 0 {
		config.Wait = 2 * time.Second
	}
	if log == nil {
		log = utils.NewLogger()
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	}
	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &BrowserFetcher{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		config:      config,
		log:         log,
	}
}

func (f *BrowserFetcher) Name() string { return "browser" }

// Fetch renders the page and returns its outer HTML. Each call runs in
// its own browser tab context bounded by the navigation timeout.
func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	tabCtx, cancel := chromedp.NewContext(f.allocCtx)
	defer cancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, f.config.NavTimeout)
	defer timeoutCancel()

	// stop the tab when the crawl context ends mid-navigation
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-tabCtx.Done():
		}
	}()

	f.log.WithField("url", pageURL).Debug("rendering page in browser")

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(f.config.Wait),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser navigation failed: %w", err)
	}
	return html, nil
}

// Close shuts the browser down.
func (f *BrowserFetcher) Close() error {
	f.allocCancel()
	return nil
}

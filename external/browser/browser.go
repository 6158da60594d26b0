package browser

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
)

type Config struct {
	Headless  bool
	Timeout   time.Duration
	UserAgent string
	Logger    *logging.Logger
}

// Browser owns one headless Chrome process. Pages are opened one at a time
// so a single browser never holds more than one tab.
type Browser struct {
	cfg    Config
	logger *logging.Logger

	mu            sync.Mutex
	started       bool
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	pages         sync.Mutex
}

func New(cfg Config) *Browser {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Browser{cfg: cfg, logger: logger}
}

// MaxConcurrency reports that callers must not fan out over one browser.
func (b *Browser) MaxConcurrency() int {
	return 1
}

// Fetch loads pageURL, waits for waitSelector (or the body) and returns the
// rendered document.
func (b *Browser) Fetch(ctx context.Context, pageURL, waitSelector string) (string, error) {
	var html string
	err := b.WithPage(ctx, func(page context.Context) error {
		return chromedp.Run(page,
			chromedp.Navigate(pageURL),
			waitFor(waitSelector),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
	})
	if err != nil {
		return "", crerr.Wrapf(err, "render %s", pageURL)
	}
	return html, nil
}

// WithPage runs fn against a fresh tab bounded by the page timeout. The tab
// is closed when fn returns.
func (b *Browser) WithPage(ctx context.Context, fn func(page context.Context) error) error {
	page, release, err := b.OpenTab(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(page)
}

// OpenTab opens a tab that stays alive until release is called, for
// sessions spanning several navigations. Other pages wait until then.
func (b *Browser) OpenTab(ctx context.Context) (context.Context, func(), error) {
	browserCtx, err := b.ensureStarted()
	if err != nil {
		return nil, nil, err
	}

	b.pages.Lock()
	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.Timeout)
	stop := context.AfterFunc(ctx, cancelTab)

	var once sync.Once
	release := func() {
		once.Do(func() {
			stop()
			cancelTimeout()
			cancelTab()
			b.pages.Unlock()
		})
	}
	return tabCtx, release, nil
}

func (b *Browser) ensureStarted() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return b.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if ua := strings.TrimSpace(b.cfg.UserAgent); ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, crerr.Wrap(err, "start browser")
	}

	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	b.started = true
	b.logger.Info("browser started", "headless", b.cfg.Headless)
	return browserCtx, nil
}

// Close shuts the browser down. It is safe to call on a browser that never
// started.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return nil
	}

	err := chromedp.Cancel(b.browserCtx)
	b.browserCancel()
	b.allocCancel()
	b.started = false
	if err != nil && !crerr.Is(err, context.Canceled) {
		return crerr.Wrap(err, "close browser")
	}
	return nil
}

// Exists reports whether selector matches an element on the current page.
func Exists(page context.Context, selector string) (bool, error) {
	var found bool
	expr := "document.querySelector(" + strconv.Quote(selector) + ") !== null"
	if err := chromedp.Run(page, chromedp.Evaluate(expr, &found)); err != nil {
		return false, err
	}
	return found, nil
}

// Page adapts a browser to a plain page fetcher waiting for one selector.
type Page struct {
	Browser      *Browser
	WaitSelector string
}

func (p Page) Fetch(ctx context.Context, pageURL string) (string, error) {
	return p.Browser.Fetch(ctx, pageURL, p.WaitSelector)
}

func (p Page) MaxConcurrency() int {
	return 1
}

func waitFor(selector string) chromedp.Action {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return chromedp.WaitReady("body", chromedp.ByQuery)
	}
	return chromedp.WaitVisible(selector, chromedp.ByQuery)
}

package scraper

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"mspro-labs/eco-buddy/internal/config"
	"mspro-labs/eco-buddy/internal/models"
)

// Fetcher loads the HTML of a live page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// BrowserFetcher fetches pages with a headless, stealth-patched browser.
type BrowserFetcher struct {
	Selectors config.Selectors
	Timeout   time.Duration
}

// NewBrowserFetcher returns a fetcher that waits for the product title.
func NewBrowserFetcher(sel config.Selectors, timeout time.Duration) *BrowserFetcher {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &BrowserFetcher{Selectors: sel, Timeout: timeout}
}

// Run fetches a product page and reads its context.
func Run(ctx context.Context, f Fetcher, pageURL string, sel config.Selectors) (models.ProductContext, error) {
	html, err := f.Fetch(ctx, pageURL)
	if err != nil {
		return models.ProductContext{URL: pageURL}, eris.Wrap(err, "scraper: fetch page")
	}
	zap.L().Debug("parsing product page", zap.String("url", pageURL), zap.Int("bytes", len(html)))
	return ExtractHTML(html, pageURL, sel)
}

// Fetch launches a browser, loads the page and returns its HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	zap.L().Info("launching headless browser")
	browser, err := launchBrowser()
	if err != nil {
		return "", eris.Wrap(err, "scraper: launch browser")
	}
	defer browser.MustClose()

	zap.L().Info("navigating", zap.String("url", pageURL))
	return f.fetchHTML(ctx, browser, pageURL)
}

func launchBrowser() (*rod.Browser, error) {
	l := launcher.New().Headless(true).NoSandbox(true)
	u, err := l.Launch()
	if err != nil {
		return nil, err
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, err
	}
	return browser, nil
}

func (f *BrowserFetcher) fetchHTML(ctx context.Context, browser *rod.Browser, pageURL string) (string, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return "", err
	}
	defer page.MustClose()

	page = page.Context(ctx).Timeout(f.Timeout)

	err = rod.Try(func() {
		page.MustNavigate(pageURL)
		page.MustWaitStable()
	})
	if err != nil {
		return "", eris.Wrapf(err, "scraper: navigate to %s", pageURL)
	}

	// Cookie consent is optional; a missing banner is not an error.
	if sel := f.Selectors.CookieButton; sel != "" {
		_ = rod.Try(func() {
			page.Timeout(5 * time.Second).MustElement(sel).MustClick()
			page.MustWaitStable()
		})
	}

	if sel := f.Selectors.ProductReady; sel != "" {
		zap.L().Debug("waiting for product content", zap.String("selector", sel))
		if err := rod.Try(func() { page.MustWaitElementsMoreThan(sel, 0) }); err != nil {
			zap.L().Warn("product content did not appear, using page as-is",
				zap.String("selector", sel), zap.Error(err))
		}
	}

	return page.HTML()
}

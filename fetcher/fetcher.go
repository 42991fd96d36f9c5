// Package fetcher implements the page fetcher the crawler consumes: it
// renders pages (plain HTTP first, headless browser when needed), extracts
// markdown content and links, and reports everything as a FetchOutcome.
package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/sitedigest/cache"
	"github.com/use-agent/sitedigest/cleaner"
	"github.com/use-agent/sitedigest/config"
	"github.com/use-agent/sitedigest/models"
)

// Fetcher manages the global browser lifecycle and the page pool.
// It is safe for concurrent use.
type Fetcher struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	browserCfg  config.BrowserConfig
	fetchCfg    config.FetcherConfig
	httpClient  *httpFetcher
	outcomes    *cache.Cache
	converter   *converter.Converter
	activePages atomic.Int32
}

// New launches a headless browser and initialises the reusable page pool.
// outcomes may be nil to disable caching.
func New(browserCfg config.BrowserConfig, fetchCfg config.FetcherConfig, outcomes *cache.Cache) (*Fetcher, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewFetchError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewFetchError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	pool := rod.NewPagePool(browserCfg.MaxPages)
	slog.Info("page pool created", "maxPages", browserCfg.MaxPages)

	return &Fetcher{
		browser:    browser,
		pagePool:   pool,
		browserCfg: browserCfg,
		fetchCfg:   fetchCfg,
		httpClient: newHTTPFetcher(),
		outcomes:   outcomes,
		converter:  cleaner.NewMarkdownConverter(),
	}, nil
}

// Fetch retrieves one page and reports it as a FetchOutcome. Ordinary page
// failures (navigation error, timeout, non-HTML response) come back as
// Succeeded=false; only fatal browser trouble is returned as an error.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*models.FetchOutcome, error) {
	if f.outcomes != nil {
		if cached, ok := f.outcomes.Get(targetURL); ok {
			slog.Debug("fetch cache hit", "url", targetURL)
			return cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.fetchCfg.PageTimeout)
	defer cancel()

	rawHTML, err := f.fetchHTML(ctx, targetURL)
	if err != nil {
		var fe *models.FetchError
		if errors.As(err, &fe) && fe.Code == models.ErrCodeBrowserCrash {
			return nil, err
		}
		slog.Warn("page fetch failed", "url", targetURL, "error", err)
		return &models.FetchOutcome{Succeeded: false}, nil
	}

	outcome := f.buildOutcome(rawHTML, targetURL)
	if f.outcomes != nil && outcome.Succeeded {
		f.outcomes.Set(targetURL, outcome)
	}
	return outcome, nil
}

// fetchHTML tries the plain HTTP path first and escalates to the browser
// when the response is missing or looks JavaScript-dependent.
func (f *Fetcher) fetchHTML(ctx context.Context, targetURL string) (string, error) {
	httpCtx, cancel := context.WithTimeout(ctx, f.fetchCfg.HTTPTimeout)
	body, err := f.httpClient.fetch(httpCtx, targetURL)
	cancel()

	if err == nil && !needsBrowser(body) {
		slog.Debug("http fetch sufficient", "url", targetURL)
		return string(body), nil
	}
	if err != nil {
		slog.Debug("http fetch failed, escalating to browser", "url", targetURL, "error", err)
	} else {
		slog.Debug("page looks JS-dependent, escalating to browser", "url", targetURL)
	}

	return f.fetchBrowser(ctx, targetURL)
}

// Stats returns a snapshot of the pool's current state.
func (f *Fetcher) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    f.browserCfg.MaxPages,
		ActivePages: int(f.activePages.Load()),
	}
}

// Close drains the page pool and kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (f *Fetcher) Close() {
	slog.Info("fetcher shutting down: draining page pool")
	f.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	slog.Info("fetcher shutting down: closing browser")
	f.browser.MustClose()
	slog.Info("fetcher shutdown complete")
}

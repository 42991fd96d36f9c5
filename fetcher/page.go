package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/sitedigest/models"
	"github.com/ysmood/gson"
)

// fetchBrowser renders one page in the headless browser and returns its HTML.
//
// Lifecycle:
//
//  1. Acquire page      – borrow a tab from the pool (or create one)
//  2. DEFER: cleanup    – about:blank + return to pool (leak prevention)
//  3. Stealth injection – mask navigator.webdriver etc. (before navigation!)
//  4. Referer header    – set before navigation via CDP
//  5. Hijack mount      – block images/CSS/fonts/media (before navigation!)
//  6. Context binding   – propagate the caller's deadline to all Rod calls
//  7. Navigate + wait   – DOM stable
//  8. Extract           – page.HTML()
//
// Steps 3-5 MUST happen before step 7: stealth JS, headers and resource
// blocking only take effect for navigations after they are installed. The
// cleanup defer uses the ORIGINAL page reference (without request context),
// so pool return succeeds even when the request context has expired.
func (f *Fetcher) fetchBrowser(ctx context.Context, targetURL string) (string, error) {
	f.activePages.Add(1)
	defer f.activePages.Add(-1)

	page, acquireErr := f.pagePool.Get(func() (*rod.Page, error) {
		return f.browser.Page(proto.TargetCreateTarget{})
	})
	if acquireErr != nil {
		return "", models.NewFetchError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			acquireErr,
		)
	}

	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank",
				"error", navErr,
			)
		}
		f.pagePool.Put(page)
	}()

	if f.fetchCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// A search-engine Referer avoids trivial hotlink blocks.
	if u, parseErr := url.Parse(targetURL); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
			}),
		}.Call(page)
	}

	router := setupHijack(page, f.fetchCfg.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	if navErr := p.Navigate(targetURL); navErr != nil {
		return "", categorizeError(navErr, "navigation to target URL failed")
	}

	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return "", categorizeError(htmlErr, "failed to extract page HTML")
	}

	return rawHTML, nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed FetchErrors so callers can
// distinguish timeouts from navigation failures.
func categorizeError(err error, msg string) *models.FetchError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewFetchError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewFetchError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewFetchError(models.ErrCodeNavigation, msg, err)
	}
}

package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/semaphore"

	"github.com/ternarybob/argus/internal/common"
)

// Pool manages a single headless browser with a bounded number of render
// contexts. The browser starts lazily on first render; contexts are isolated
// sessions allocated per render and always released, including on error.
type Pool struct {
	config *common.BrowserConfig
	logger arbor.ILogger

	mu              sync.Mutex
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	started         bool
	closed          bool

	contexts *semaphore.Weighted
}

// New creates a browser pool; no browser process is launched until the
// first Render call.
func New(cfg *common.BrowserConfig, logger arbor.ILogger) *Pool {
	maxContexts := cfg.MaxContexts
	if maxContexts < 1 {
		maxContexts = 1
	}
	return &Pool{
		config:   cfg,
		logger:   logger,
		contexts: semaphore.NewWeighted(int64(maxContexts)),
	}
}

// start launches the browser process (caller must hold p.mu)
func (p *Pool) start() error {
	if p.started {
		return nil
	}
	if p.closed {
		return fmt.Errorf("browser pool is shut down")
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	p.allocatorCtx, p.allocatorCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	p.browserCtx, p.browserCancel = chromedp.NewContext(p.allocatorCtx)

	// Startup probe so a missing Chrome binary fails here, not mid-crawl
	probeCtx, cancel := context.WithTimeout(p.browserCtx, 30*time.Second)
	defer cancel()
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		p.browserCancel()
		p.allocatorCancel()
		p.browserCtx = nil
		return fmt.Errorf("browser failed startup probe: %w", err)
	}

	p.started = true
	p.logger.Info().
		Int("max_contexts", p.config.MaxContexts).
		Bool("headless", p.config.Headless).
		Msg("Headless browser started")
	return nil
}

// acquireContext returns a fresh isolated session bound to the shared
// browser, plus a release func that frees the context slot.
func (p *Pool) acquireContext(ctx context.Context) (context.Context, func(), error) {
	p.mu.Lock()
	if err := p.start(); err != nil {
		p.mu.Unlock()
		return nil, nil, err
	}
	parent := p.browserCtx
	p.mu.Unlock()

	if err := p.contexts.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(parent)
	release := func() {
		tabCancel()
		p.contexts.Release(1)
	}
	return tabCtx, release, nil
}

// waitAction maps a wait condition to a chromedp action. "load" waits for
// the body, "networkidle" adds a quiet settle window, anything else is
// treated as a CSS selector.
func waitAction(waitCondition string) chromedp.Action {
	switch strings.TrimSpace(waitCondition) {
	case "", "load":
		return chromedp.WaitReady("body", chromedp.ByQuery)
	case "networkidle":
		return chromedp.Tasks{
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(2 * time.Second),
		}
	default:
		return chromedp.WaitVisible(waitCondition, chromedp.ByQuery)
	}
}

// Render loads a page, waits for the condition, and returns the live DOM
func (p *Pool) Render(ctx context.Context, url, waitCondition string, timeout time.Duration) (string, error) {
	tabCtx, release, err := p.acquireContext(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	if timeout <= 0 {
		timeout = p.config.RenderTimeout
	}
	runCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	var html string
	err = chromedp.Run(runCtx,
		chromedp.Navigate(url),
		waitAction(waitCondition),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render failed for %s: %w", url, err)
	}
	return html, nil
}

// RenderWithDetails loads the list page once, derives the detail URLs from
// the rendered markup via deriveDetails, then navigates the same session
// through each detail URL so cookies and client-side state carry over.
// Detail failures are logged and skipped; the map holds what succeeded.
func (p *Pool) RenderWithDetails(ctx context.Context, url, waitCondition string, deriveDetails func(listHTML string) []string, detailTimeout time.Duration) (string, map[string]string, error) {
	tabCtx, release, err := p.acquireContext(ctx)
	if err != nil {
		return "", nil, err
	}
	defer release()

	listCtx, cancel := context.WithTimeout(tabCtx, p.config.RenderTimeout)
	var listHTML string
	err = chromedp.Run(listCtx,
		chromedp.Navigate(url),
		waitAction(waitCondition),
		chromedp.OuterHTML("html", &listHTML, chromedp.ByQuery),
	)
	cancel()
	if err != nil {
		return "", nil, fmt.Errorf("render failed for %s: %w", url, err)
	}

	if detailTimeout <= 0 {
		detailTimeout = p.config.DetailTimeout
	}

	var detailURLs []string
	if deriveDetails != nil {
		detailURLs = deriveDetails(listHTML)
	}

	details := make(map[string]string, len(detailURLs))
	for _, detailURL := range detailURLs {
		if ctx.Err() != nil {
			break
		}
		detailCtx, cancel := context.WithTimeout(tabCtx, detailTimeout)
		var detailHTML string
		err := chromedp.Run(detailCtx,
			chromedp.Navigate(detailURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.OuterHTML("html", &detailHTML, chromedp.ByQuery),
		)
		cancel()
		if err != nil {
			p.logger.Warn().
				Str("url", detailURL).
				Err(err).
				Msg("Detail render failed, item kept without content")
			continue
		}
		details[detailURL] = detailHTML
	}

	return listHTML, details, nil
}

// Shutdown closes the browser. Close errors are logged, never propagated;
// shutdown must not mask the caller's primary teardown.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	if !p.started {
		return
	}

	done := make(chan struct{})
	go func() {
		p.browserCancel()
		p.allocatorCancel()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		p.logger.Warn().Msg("Browser shutdown timed out")
	}

	p.started = false
	p.logger.Info().Msg("Headless browser shut down")
}

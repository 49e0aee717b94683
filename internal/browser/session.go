// Package browser drives a single headless Chrome page for a scrape run.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// Default timeouts
const (
	DefaultElementTimeout    = 30 * time.Second
	DefaultNavigationTimeout = 60 * time.Second
	DefaultDownloadTimeout   = 30 * time.Second
	DefaultPopupTimeout      = 60 * time.Second
)

// Options configures a Session.
type Options struct {
	Headless          bool
	DownloadDir       string
	ElementTimeout    time.Duration
	NavigationTimeout time.Duration
	DownloadTimeout   time.Duration
	PopupTimeout      time.Duration
	Logger            *slog.Logger
}

// DefaultOptions returns sensible defaults for a headless session.
func DefaultOptions() Options {
	return Options{
		Headless:          true,
		ElementTimeout:    DefaultElementTimeout,
		NavigationTimeout: DefaultNavigationTimeout,
		DownloadTimeout:   DefaultDownloadTimeout,
		PopupTimeout:      DefaultPopupTimeout,
	}
}

func (o *Options) applyDefaults() {
	d := DefaultOptions()
	if o.ElementTimeout == 0 {
		o.ElementTimeout = d.ElementTimeout
	}
	if o.NavigationTimeout == 0 {
		o.NavigationTimeout = d.NavigationTimeout
	}
	if o.DownloadTimeout == 0 {
		o.DownloadTimeout = d.DownloadTimeout
	}
	if o.PopupTimeout == 0 {
		o.PopupTimeout = d.PopupTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Download is a file captured from the browser, buffered whole in memory.
type Download struct {
	SuggestedFileName string
	Data              []byte
}

// Session owns one browser tab. It is not safe for concurrent use.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	opts        Options
	logger      *slog.Logger
	downloadDir string
	ownsDir     bool
}

// NewSession starts a Chrome instance and opens a tab. Downloads are written to
// opts.DownloadDir (a temporary directory when empty) and removed once read.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	opts.applyDefaults()

	downloadDir := opts.DownloadDir
	ownsDir := false
	if downloadDir == "" {
		dir, err := os.MkdirTemp("", "assessment-downloads-")
		if err != nil {
			return nil, fmt.Errorf("failed to create download directory: %w", err)
		}
		downloadDir = dir
		ownsDir = true
	} else if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	absDir, err := filepath.Abs(downloadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve download directory: %w", err)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-popup-blocking", true),
		)...,
	)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		opts:        opts,
		logger:      opts.Logger,
		downloadDir: absDir,
		ownsDir:     ownsDir,
	}

	// Download behaviour is set on the browser session so downloads from popups are
	// reported through the same event stream as downloads from the main tab.
	err = chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		c := chromedp.FromContext(ctx)
		return browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(absDir).
			WithEventsEnabled(true).
			Do(cdp.WithExecutor(ctx, c.Browser))
	}))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	s.logger.Debug("browser session started",
		slog.Bool("headless", opts.Headless),
		slog.String("download_dir", absDir))
	return s, nil
}

// Close shuts the browser down and removes the temporary download directory.
func (s *Session) Close() {
	s.cancel()
	if s.ownsDir {
		_ = os.RemoveAll(s.downloadDir)
	}
}

// scoped derives a context from the tab context that ends at timeout or when ctx ends.
func (s *Session) scoped(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	c, cancel := context.WithTimeout(s.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return c, func() {
		stop()
		cancel()
	}
}

// isXPath reports whether sel is an XPath expression rather than a CSS selector.
func isXPath(sel string) bool {
	return strings.HasPrefix(sel, "/") || strings.HasPrefix(sel, "(")
}

func queryOpts(sel string) []chromedp.QueryOption {
	if isXPath(sel) {
		return []chromedp.QueryOption{chromedp.BySearch}
	}
	return []chromedp.QueryOption{chromedp.ByQuery}
}

func queryAllOpts(sel string) []chromedp.QueryOption {
	if isXPath(sel) {
		return []chromedp.QueryOption{chromedp.BySearch}
	}
	return []chromedp.QueryOption{chromedp.ByQueryAll}
}

// Navigate loads url in the tab.
func (s *Session) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.scoped(ctx, s.opts.NavigationTimeout)
	defer cancel()

	s.logger.Debug("navigating", slog.String("url", url))
	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return &NavigationError{URL: url, Cause: err}
	}
	return nil
}

// WaitVisible blocks until sel is visible. A zero timeout uses the element timeout.
func (s *Session) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	if timeout == 0 {
		timeout = s.opts.ElementTimeout
	}
	runCtx, cancel := s.scoped(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.WaitVisible(sel, queryOpts(sel)...)); err != nil {
		return s.elementError(sel, timeout, err)
	}
	return nil
}

// Fill replaces the value of the input at sel with text.
func (s *Session) Fill(ctx context.Context, sel, text string) error {
	runCtx, cancel := s.scoped(ctx, s.opts.ElementTimeout)
	defer cancel()

	opts := queryOpts(sel)
	err := chromedp.Run(runCtx,
		chromedp.WaitVisible(sel, opts...),
		chromedp.SetValue(sel, "", opts...),
		chromedp.SendKeys(sel, text, opts...),
	)
	if err != nil {
		return s.elementError(sel, s.opts.ElementTimeout, err)
	}
	return nil
}

// Click clicks the first visible element matching sel.
func (s *Session) Click(ctx context.Context, sel string) error {
	runCtx, cancel := s.scoped(ctx, s.opts.ElementTimeout)
	defer cancel()

	opts := append(queryOpts(sel), chromedp.NodeVisible)
	if err := chromedp.Run(runCtx, chromedp.Click(sel, opts...)); err != nil {
		return s.elementError(sel, s.opts.ElementTimeout, err)
	}
	return nil
}

// ClickNth clicks the n-th (zero based) element matching sel, invoking whatever handler
// the page has wired to it.
func (s *Session) ClickNth(ctx context.Context, sel string, n int) error {
	runCtx, cancel := s.scoped(ctx, s.opts.ElementTimeout)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(runCtx, chromedp.Nodes(sel, &nodes, queryAllOpts(sel)...)); err != nil {
		return s.elementError(sel, s.opts.ElementTimeout, err)
	}
	if n < 0 || n >= len(nodes) {
		return &ElementNotFoundError{
			Selector: fmt.Sprintf("%s [%d]", sel, n),
			Timeout:  s.opts.ElementTimeout,
			Cause:    fmt.Errorf("only %d matching elements", len(nodes)),
		}
	}
	if err := chromedp.Run(runCtx, chromedp.MouseClickNode(nodes[n])); err != nil {
		return s.elementError(sel, s.opts.ElementTimeout, err)
	}
	return nil
}

// Count returns how many elements currently match sel without waiting for any to appear.
func (s *Session) Count(ctx context.Context, sel string) (int, error) {
	runCtx, cancel := s.scoped(ctx, s.opts.ElementTimeout)
	defer cancel()

	var nodes []*cdp.Node
	opts := append(queryAllOpts(sel), chromedp.AtLeast(0))
	if err := chromedp.Run(runCtx, chromedp.Nodes(sel, &nodes, opts...)); err != nil {
		return 0, s.elementError(sel, s.opts.ElementTimeout, err)
	}
	return len(nodes), nil
}

// Labels returns the label of every element matching sel: the value attribute for
// inputs, the text content otherwise.
func (s *Session) Labels(ctx context.Context, sel string) ([]string, error) {
	runCtx, cancel := s.scoped(ctx, s.opts.ElementTimeout)
	defer cancel()

	var nodes []*cdp.Node
	opts := append(queryAllOpts(sel), chromedp.AtLeast(0))
	if err := chromedp.Run(runCtx, chromedp.Nodes(sel, &nodes, opts...)); err != nil {
		return nil, s.elementError(sel, s.opts.ElementTimeout, err)
	}

	labels := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if v := node.AttributeValue("value"); v != "" {
			labels = append(labels, strings.TrimSpace(v))
			continue
		}
		var text string
		if err := chromedp.Run(runCtx, chromedp.TextContent([]cdp.NodeID{node.NodeID}, &text, chromedp.ByNodeID)); err != nil {
			return nil, s.elementError(sel, s.opts.ElementTimeout, err)
		}
		labels = append(labels, strings.TrimSpace(text))
	}
	return labels, nil
}

// Text returns the trimmed text content of the first element matching sel.
func (s *Session) Text(ctx context.Context, sel string) (string, error) {
	runCtx, cancel := s.scoped(ctx, s.opts.ElementTimeout)
	defer cancel()

	var text string
	if err := chromedp.Run(runCtx, chromedp.TextContent(sel, &text, queryOpts(sel)...)); err != nil {
		return "", s.elementError(sel, s.opts.ElementTimeout, err)
	}
	return strings.TrimSpace(text), nil
}

// CurrentURL returns the URL of the loaded document.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	runCtx, cancel := s.scoped(ctx, s.opts.ElementTimeout)
	defer cancel()

	var url string
	if err := chromedp.Run(runCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read current URL: %w", err)
	}
	return url, nil
}

// HTML serializes the current DOM.
func (s *Session) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := s.scoped(ctx, s.opts.ElementTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}

func (s *Session) elementError(sel string, timeout time.Duration, err error) error {
	if isTimeout(err) {
		return &ElementNotFoundError{Selector: sel, Timeout: timeout}
	}
	return &ElementNotFoundError{Selector: sel, Timeout: timeout, Cause: err}
}

package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// Trigger performs the page interaction that starts a download.
type Trigger func(ctx context.Context) error

// downloadWatch collects browser download events for one capture. Only downloads that
// began while the watch was listening are reported, so a late download from an earlier,
// abandoned capture is never mistaken for this one.
type downloadWatch struct {
	mu       sync.Mutex
	names    map[string]string
	finished chan *browser.EventDownloadProgress
}

func newDownloadWatch() *downloadWatch {
	return &downloadWatch{
		names:    make(map[string]string),
		finished: make(chan *browser.EventDownloadProgress, 4),
	}
}

func (s *Session) watchDownloads(ctx context.Context) *downloadWatch {
	w := newDownloadWatch()
	chromedp.ListenBrowser(ctx, w.handle)
	return w
}

func (w *downloadWatch) handle(ev interface{}) {
	switch ev := ev.(type) {
	case *browser.EventDownloadWillBegin:
		w.mu.Lock()
		w.names[ev.GUID] = ev.SuggestedFilename
		w.mu.Unlock()
	case *browser.EventDownloadProgress:
		if ev.State != browser.DownloadProgressStateCompleted && ev.State != browser.DownloadProgressStateCanceled {
			return
		}
		w.mu.Lock()
		_, ours := w.names[ev.GUID]
		w.mu.Unlock()
		if !ours {
			return
		}
		select {
		case w.finished <- ev:
		default:
		}
	}
}

func (w *downloadWatch) name(guid string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.names[guid]
}

// await waits for the next finished download and reads it from the download directory.
func (s *Session) await(ctx context.Context, w *downloadWatch, timeout time.Duration) (*Download, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-w.finished:
		name := w.name(ev.GUID)
		if ev.State == browser.DownloadProgressStateCanceled {
			return nil, &DownloadFailedError{FileName: name}
		}
		file := filepath.Join(s.downloadDir, ev.GUID)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read downloaded file %q: %w", name, err)
		}
		_ = os.Remove(file)

		s.logger.Debug("download captured",
			slog.String("file", name),
			slog.Int("bytes", len(data)))
		return &Download{SuggestedFileName: name, Data: data}, nil
	case <-timer.C:
		return nil, &DownloadTimeoutError{What: "download event", Timeout: timeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CaptureDownload runs trigger and waits for the download it starts.
func (s *Session) CaptureDownload(ctx context.Context, trigger Trigger) (*Download, error) {
	listenCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	w := s.watchDownloads(listenCtx)
	if err := trigger(ctx); err != nil {
		return nil, err
	}
	return s.await(ctx, w, s.opts.DownloadTimeout)
}

// CapturePopupDownload runs trigger, waits for the secondary window it opens and then for
// the download offered inside that window. The popup is closed afterwards.
func (s *Session) CapturePopupDownload(ctx context.Context, trigger Trigger) (*Download, error) {
	listenCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	opener := chromedp.FromContext(s.ctx).Target.TargetID
	popups := chromedp.WaitNewTarget(listenCtx, func(info *target.Info) bool {
		return info.OpenerID == opener
	})
	w := s.watchDownloads(listenCtx)

	if err := trigger(ctx); err != nil {
		return nil, err
	}

	timer := time.NewTimer(s.opts.PopupTimeout)
	defer timer.Stop()

	var popupID target.ID
	select {
	case popupID = <-popups:
	case <-timer.C:
		return nil, &DownloadTimeoutError{What: "popup window", Timeout: s.opts.PopupTimeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	popupCtx, closePopup := chromedp.NewContext(s.ctx, chromedp.WithTargetID(popupID))
	defer closePopup()
	if err := chromedp.Run(popupCtx); err != nil {
		return nil, fmt.Errorf("failed to attach to popup: %w", err)
	}
	s.logger.Debug("popup opened", slog.String("target", string(popupID)))

	return s.await(ctx, w, s.opts.DownloadTimeout)
}

// CaptureJSONResponse runs trigger and returns the body of the first JSON response the page
// receives afterwards. No file download is involved.
func (s *Session) CaptureJSONResponse(ctx context.Context, trigger Trigger) (*Download, error) {
	listenCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	var mu sync.Mutex
	pending := make(map[network.RequestID]string)
	ready := make(chan network.RequestID, 1)

	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *network.EventResponseReceived:
			if ev.Response != nil && strings.Contains(ev.Response.MimeType, "json") {
				mu.Lock()
				pending[ev.RequestID] = ev.Response.URL
				mu.Unlock()
			}
		case *network.EventLoadingFinished:
			mu.Lock()
			_, ok := pending[ev.RequestID]
			mu.Unlock()
			if ok {
				select {
				case ready <- ev.RequestID:
				default:
				}
			}
		}
	})
	if err := chromedp.Run(listenCtx, network.Enable()); err != nil {
		return nil, fmt.Errorf("failed to enable network events: %w", err)
	}

	if err := trigger(ctx); err != nil {
		return nil, err
	}

	timer := time.NewTimer(s.opts.DownloadTimeout)
	defer timer.Stop()

	var id network.RequestID
	select {
	case id = <-ready:
	case <-timer.C:
		return nil, &DownloadTimeoutError{What: "JSON response", Timeout: s.opts.DownloadTimeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var body []byte
	err := chromedp.Run(listenCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON response body: %w", err)
	}

	mu.Lock()
	responseURL := pending[id]
	mu.Unlock()
	return &Download{SuggestedFileName: jsonFileName(responseURL), Data: body}, nil
}

// jsonFileName derives a file name for a captured JSON body from its URL.
func jsonFileName(rawURL string) string {
	name := "report.json"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			name = base
		}
	}
	if !strings.EqualFold(path.Ext(name), ".json") {
		name += ".json"
	}
	return name
}

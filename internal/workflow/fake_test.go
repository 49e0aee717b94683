package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/assessment-scraper/internal/browser"
	"github.com/jonathan/assessment-scraper/internal/progress"
	"github.com/jonathan/assessment-scraper/internal/types"
)

// captureResult is one scripted outcome of a capture call.
type captureResult struct {
	download *browser.Download
	err      error
}

func downloaded(name string, size int) captureResult {
	return captureResult{download: &browser.Download{SuggestedFileName: name, Data: make([]byte, size)}}
}

func fails(err error) captureResult {
	return captureResult{err: err}
}

var errTimeout = &browser.DownloadTimeoutError{What: "download event", Timeout: time.Second}

// fakePage is an in-memory Page driven by scripted selectors and capture outcomes.
type fakePage struct {
	mu sync.Mutex

	visible   map[string]bool
	counts    map[string]int
	labels    map[string][]string
	texts     map[string]string
	clickURLs map[string]string
	html      string
	url       string

	// captures are keyed by "<selector>#<index>" of the last ClickNth, or "click:<selector>"
	// of the last Click for popup downloads.
	captures map[string][]captureResult

	lastTrigger string
	calls       []string
}

func newFakePage() *fakePage {
	return &fakePage{
		visible:   make(map[string]bool),
		counts:    make(map[string]int),
		labels:    make(map[string][]string),
		texts:     make(map[string]string),
		clickURLs: make(map[string]string),
		captures:  make(map[string][]captureResult),
	}
}

func nthKey(sel string, n int) string { return fmt.Sprintf("%s#%d", sel, n) }

func clickKey(sel string) string { return "click:" + sel }

func (p *fakePage) show(sels ...string) {
	for _, s := range sels {
		p.visible[s] = true
	}
}

func (p *fakePage) record(format string, args ...any) {
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

func (p *fakePage) called(prefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate %s", url)
	p.url = url
	return nil
}

func (p *fakePage) WaitVisible(_ context.Context, sel string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wait %s", sel)
	if !p.visible[sel] {
		return &browser.ElementNotFoundError{Selector: sel, Timeout: timeout}
	}
	return nil
}

func (p *fakePage) Fill(_ context.Context, sel, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("fill %s=%s", sel, text)
	return nil
}

func (p *fakePage) Click(_ context.Context, sel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("click %s", sel)
	p.lastTrigger = clickKey(sel)
	if u, ok := p.clickURLs[sel]; ok {
		p.url = u
	}
	return nil
}

func (p *fakePage) ClickNth(_ context.Context, sel string, n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("clickNth %s", nthKey(sel, n))
	p.lastTrigger = nthKey(sel, n)
	return nil
}

func (p *fakePage) Count(_ context.Context, sel string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[sel], nil
}

func (p *fakePage) Labels(_ context.Context, sel string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.labels[sel]...), nil
}

func (p *fakePage) Text(_ context.Context, sel string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.texts[sel]
	if !ok {
		return "", &browser.ElementNotFoundError{Selector: sel}
	}
	return text, nil
}

func (p *fakePage) CurrentURL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *fakePage) HTML(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *fakePage) capture(ctx context.Context, kind string, trigger browser.Trigger) (*browser.Download, error) {
	if err := trigger(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("%s %s", kind, p.lastTrigger)

	queue := p.captures[p.lastTrigger]
	if len(queue) == 0 {
		return nil, errTimeout
	}
	next := queue[0]
	p.captures[p.lastTrigger] = queue[1:]
	return next.download, next.err
}

func (p *fakePage) CaptureDownload(ctx context.Context, trigger browser.Trigger) (*browser.Download, error) {
	return p.capture(ctx, "download", trigger)
}

func (p *fakePage) CapturePopupDownload(ctx context.Context, trigger browser.Trigger) (*browser.Download, error) {
	return p.capture(ctx, "popup", trigger)
}

func (p *fakePage) CaptureJSONResponse(ctx context.Context, trigger browser.Trigger) (*browser.Download, error) {
	return p.capture(ctx, "json", trigger)
}

// memoryBlobs is an in-memory BlobStore.
type memoryBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
	types map[string]string
	err   error
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{blobs: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memoryBlobs) Store(_ context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.blobs[key] = data
	m.types[key] = contentType
	return "mem://" + key, nil
}

// memoryResults records appended records.
type memoryResults struct {
	mu      sync.Mutex
	results []*types.ResultRecord
	errors  []*types.ErrorRecord
	err     error
}

func (m *memoryResults) AppendResult(_ context.Context, rec *types.ResultRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.results = append(m.results, rec)
	return nil
}

func (m *memoryResults) AppendError(_ context.Context, rec *types.ErrorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, rec)
	return nil
}

// mapCredentials is a CredentialSource over a map.
type mapCredentials map[string]string

func (m mapCredentials) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok && v != ""
}

// update is one recorded progress call.
type update struct {
	status progress.Status
	done   int
	total  int
	err    string
}

// recordingProgress records every progress call.
type recordingProgress struct {
	mu      sync.Mutex
	updates []update
}

func (r *recordingProgress) add(u update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recordingProgress) Starting(_ context.Context, c *progress.StepCounter, _ string) {
	r.add(update{status: progress.StatusStarting, done: c.Current(), total: c.Total()})
}

func (r *recordingProgress) Running(_ context.Context, c *progress.StepCounter, _ string) {
	r.add(update{status: progress.StatusRunning, done: c.Current(), total: c.Total()})
}

func (r *recordingProgress) Completed(_ context.Context, c *progress.StepCounter, _ string) {
	r.add(update{status: progress.StatusCompleted, done: c.Current(), total: c.Total()})
}

func (r *recordingProgress) Failed(_ context.Context, err error, _ string) {
	r.add(update{status: progress.StatusFailed, err: err.Error()})
}

func (r *recordingProgress) last() update {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return update{}
	}
	return r.updates[len(r.updates)-1]
}

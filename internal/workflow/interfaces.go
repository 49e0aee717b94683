// Package workflow drives one scrape run: login, navigation, code lookup, artifact
// extraction and persistence, for whichever variant the run's code type selects.
package workflow

import (
	"context"
	"time"

	"github.com/jonathan/assessment-scraper/internal/browser"
	"github.com/jonathan/assessment-scraper/internal/progress"
	"github.com/jonathan/assessment-scraper/internal/types"
)

// Page is the browser surface a workflow drives. *browser.Session implements it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error
	Fill(ctx context.Context, sel, text string) error
	Click(ctx context.Context, sel string) error
	ClickNth(ctx context.Context, sel string, n int) error
	Count(ctx context.Context, sel string) (int, error)
	Labels(ctx context.Context, sel string) ([]string, error)
	Text(ctx context.Context, sel string) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	CaptureDownload(ctx context.Context, trigger browser.Trigger) (*browser.Download, error)
	CapturePopupDownload(ctx context.Context, trigger browser.Trigger) (*browser.Download, error)
	CaptureJSONResponse(ctx context.Context, trigger browser.Trigger) (*browser.Download, error)
}

// BlobStore persists one artifact and returns its locator.
type BlobStore interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ResultStore is the append-only sink for the terminal record of a run.
type ResultStore interface {
	AppendResult(ctx context.Context, rec *types.ResultRecord) error
	AppendError(ctx context.Context, rec *types.ErrorRecord) error
}

// CredentialSource resolves a credential variable by name.
type CredentialSource interface {
	Lookup(name string) (string, bool)
}

// ProgressSink receives step transitions. *progress.Reporter implements it.
type ProgressSink interface {
	Starting(ctx context.Context, c *progress.StepCounter, description string)
	Running(ctx context.Context, c *progress.StepCounter, description string)
	Completed(ctx context.Context, c *progress.StepCounter, description string)
	Failed(ctx context.Context, err error, description string)
}

type noopProgress struct{}

func (noopProgress) Starting(context.Context, *progress.StepCounter, string)  {}
func (noopProgress) Running(context.Context, *progress.StepCounter, string)   {}
func (noopProgress) Completed(context.Context, *progress.StepCounter, string) {}
func (noopProgress) Failed(context.Context, error, string)                    {}

var (
	_ Page         = (*browser.Session)(nil)
	_ ProgressSink = (*progress.Reporter)(nil)
)

// MultiProgress fans every update out to all sinks in order. Nil sinks are ignored.
func MultiProgress(sinks ...ProgressSink) ProgressSink {
	var m multiProgress
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

type multiProgress []ProgressSink

func (m multiProgress) Starting(ctx context.Context, c *progress.StepCounter, description string) {
	for _, s := range m {
		s.Starting(ctx, c, description)
	}
}

func (m multiProgress) Running(ctx context.Context, c *progress.StepCounter, description string) {
	for _, s := range m {
		s.Running(ctx, c, description)
	}
}

func (m multiProgress) Completed(ctx context.Context, c *progress.StepCounter, description string) {
	for _, s := range m {
		s.Completed(ctx, c, description)
	}
}

func (m multiProgress) Failed(ctx context.Context, err error, description string) {
	for _, s := range m {
		s.Failed(ctx, err, description)
	}
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/assessment-scraper/internal/blob"
	"github.com/jonathan/assessment-scraper/internal/browser"
	"github.com/jonathan/assessment-scraper/internal/extraction"
	"github.com/jonathan/assessment-scraper/internal/progress"
	"github.com/jonathan/assessment-scraper/internal/retry"
	"github.com/jonathan/assessment-scraper/internal/types"
	"github.com/jonathan/assessment-scraper/internal/variants"
)

// FixedSteps is the number of steps every variant counts besides its targets:
// login, navigation, code lookup and persistence.
const FixedSteps = 4

// RunContext is the read-only identity of one run.
type RunContext struct {
	Code     string
	CodeType types.CodeType
	RunID    string
	Variant  variants.Variant
}

// Settings holds the timing and retry parameters of a run. Zero delays mean no pause;
// a zero navigation timeout defers to the page's own element timeout.
type Settings struct {
	NavigationTimeout  time.Duration
	FileAttempts       int
	ReportAttempts     int
	RetryDelay         time.Duration
	InterDownloadDelay time.Duration
	RunTimeout         time.Duration
}

// DefaultSettings returns the production timings.
func DefaultSettings() Settings {
	return Settings{
		NavigationTimeout:  browser.DefaultNavigationTimeout,
		FileAttempts:       retry.DefaultFileAttempts,
		ReportAttempts:     retry.DefaultReportAttempts,
		RetryDelay:         retry.DefaultDelay,
		InterDownloadDelay: 3 * time.Second,
		RunTimeout:         15 * time.Minute,
	}
}

// Execution is the state a workflow works on: the page, the step counter and the
// collaborators that receive artifacts and progress. It is owned by a single run.
type Execution struct {
	run      RunContext
	page     Page
	blobs    BlobStore
	progress ProgressSink
	counter  *progress.StepCounter
	settings Settings
	logger   *slog.Logger
	user     string
	password string
}

// Workflow is implemented once per variant family.
type Workflow interface {
	Run(ctx context.Context, x *Execution) (*types.ResultRecord, error)
}

// ForVariant selects the workflow implementation for v.
func ForVariant(v variants.Variant) (Workflow, error) {
	switch v.ID {
	case types.CodeTypeHRCockpit, types.CodeTypeHRCockpitSoll:
		return hrCockpit{}, nil
	case types.CodeTypeProfilingValues:
		return profilingValues{}, nil
	case types.CodeTypeProfilingValuesSoll:
		return profilingValuesSoll{}, nil
	default:
		return nil, &variants.UnknownVariantError{CodeType: string(v.ID)}
	}
}

func (x *Execution) newRecord() *types.ResultRecord {
	return &types.ResultRecord{
		Code:     x.run.Code,
		CodeType: x.run.CodeType,
		RunID:    x.run.RunID,
	}
}

// step counts a completed step and reports it.
func (x *Execution) step(ctx context.Context, name, description string) {
	x.counter.Advance()
	x.logger.Info("step completed",
		slog.String("step", name),
		slog.Int("done", x.counter.Current()),
		slog.Int("total", x.counter.Total()))
	x.progress.Running(ctx, x.counter, description)
}

// discovered recomputes the step total once the run's targets are known.
// The persist step is counted on top of targets.
func (x *Execution) discovered(targets int) error {
	if err := x.counter.Resize(targets + 1); err != nil {
		return err
	}
	x.logger.Info("targets discovered",
		slog.Int("targets", targets),
		slog.Int("total", x.counter.Total()))
	return nil
}

// login fills and submits the variant's login form and waits for the landing page.
func (x *Execution) login(ctx context.Context) error {
	sel := x.run.Variant.Login

	if err := x.waitFor(ctx, sel.User, "login form"); err != nil {
		return err
	}
	if err := x.page.Fill(ctx, sel.User, x.user); err != nil {
		return err
	}
	if err := x.page.Fill(ctx, sel.Password, x.password); err != nil {
		return err
	}
	if err := x.page.Click(ctx, sel.Submit); err != nil {
		return err
	}
	if err := x.waitFor(ctx, sel.LoggedIn, "landing page after login"); err != nil {
		return err
	}

	x.step(ctx, "login", "Logged in")
	return nil
}

// navigate clicks through the variant's menu labels, applies the search filter when the
// variant has one, and waits for the listing.
func (x *Execution) navigate(ctx context.Context) error {
	v := x.run.Variant

	for _, label := range v.NavLabels {
		link := linkXPath(label)
		if err := x.waitFor(ctx, link, fmt.Sprintf("menu link %q", label)); err != nil {
			return err
		}
		if err := x.page.Click(ctx, link); err != nil {
			return err
		}
		x.logger.Debug("menu link clicked", slog.String("label", label))
	}

	if v.Selectors.SearchFilter != "" {
		if err := x.waitFor(ctx, v.Selectors.SearchFilter, "search filter"); err != nil {
			return err
		}
		if err := x.page.Fill(ctx, v.Selectors.SearchFilter, x.run.Code); err != nil {
			return err
		}
		if err := x.page.Click(ctx, v.Selectors.SearchSubmit); err != nil {
			return err
		}
	}

	if err := x.waitFor(ctx, v.Selectors.Listing, "listing"); err != nil {
		return err
	}

	x.step(ctx, "navigate", "Opened listing")
	return nil
}

// waitFor waits for sel within the navigation timeout. A wait that ends without the
// element becomes a NavigationTimeoutError for target, unless the run itself ended.
func (x *Execution) waitFor(ctx context.Context, sel, target string) error {
	if err := x.page.WaitVisible(ctx, sel, x.settings.NavigationTimeout); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NavigationTimeoutError{Target: target, Cause: err}
	}
	return nil
}

// locate returns the XPath of the listing row holding the run's code.
func (x *Execution) locate(ctx context.Context) (string, error) {
	row := rowXPath(x.run.Code)

	if err := x.page.WaitVisible(ctx, row, 0); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var notFound *browser.ElementNotFoundError
		if errors.As(err, &notFound) && notFound.TimedOut() {
			return "", &CodeNotFoundError{Code: x.run.Code, CodeType: x.run.CodeType}
		}
		return "", err
	}

	x.step(ctx, "locate", fmt.Sprintf("Found code %s", x.run.Code))
	return row, nil
}

// collect runs capture under the retry policy and stores the result under the artifact name.
// A capture that still fails after the last attempt is logged and skipped; it only
// returns an error when the run itself can no longer continue.
func (x *Execution) collect(ctx context.Context, rec *types.ResultRecord, name string, attempts int,
	capture func(ctx context.Context) (*browser.Download, error)) error {
	policy := retry.Policy{
		Name:        "download " + name,
		MaxAttempts: attempts,
		Delay:       x.settings.RetryDelay,
		Logger:      x.logger,
	}

	dl, err := retry.WithRetries(ctx, policy, capture)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		x.logger.Warn("artifact skipped",
			slog.String("artifact", name),
			slog.String("kind", Kind(err)),
			slog.String("error", err.Error()))
		x.step(ctx, "extract", fmt.Sprintf("Skipped %s", name))
		return nil
	}

	if err := x.storeArtifact(ctx, rec, name, dl); err != nil {
		return err
	}
	x.step(ctx, "extract", fmt.Sprintf("Downloaded %s", name))
	return nil
}

func (x *Execution) storeArtifact(ctx context.Context, rec *types.ResultRecord, name string, dl *browser.Download) error {
	contentType := extraction.ContentType(dl.SuggestedFileName)
	key := blob.Key(string(x.run.CodeType), x.run.Code, name, dl.SuggestedFileName)

	url, err := x.blobs.Store(ctx, key, dl.Data, contentType)
	if err != nil {
		return fmt.Errorf("failed to store artifact %s: %w", name, err)
	}

	rec.AddReport(types.ReportArtifact{
		Name:        name,
		URL:         url,
		ContentType: contentType,
		SizeBytes:   int64(len(dl.Data)),
	})
	x.logger.Info("artifact stored",
		slog.String("artifact", name),
		slog.String("file", dl.SuggestedFileName),
		slog.String("content_type", contentType),
		slog.Int("bytes", len(dl.Data)),
		slog.String("url", url))
	return nil
}

// pause sleeps for d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

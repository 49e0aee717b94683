package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/assessment-scraper/internal/browser"
	"github.com/jonathan/assessment-scraper/internal/progress"
	"github.com/jonathan/assessment-scraper/internal/types"
)

type panickingBlobs struct{}

func (panickingBlobs) Store(context.Context, string, []byte, string) (string, error) {
	panic("blob store exploded")
}

func TestRun_MissingCredentialsBeforeNavigation(t *testing.T) {
	h, _ := hrCockpitHarness(t)
	h.creds = mapCredentials{"HR_COCKPIT_USER": "someone"}

	rec, err := h.runner().Run(context.Background(), types.RunRequest{Code: hrCode, CodeType: types.CodeTypeHRCockpit, RunID: "r"})
	require.Error(t, err)
	assert.Nil(t, rec)

	var credsErr *MissingCredentialsError
	require.ErrorAs(t, err, &credsErr)
	assert.Equal(t, []string{"HR_COCKPIT_PASSWORD"}, credsErr.Vars)

	assert.Zero(t, h.page.called("navigate"), "no navigation may happen")
	assert.Zero(t, h.page.called("download"))

	require.Len(t, h.results.errors, 1)
	assert.Equal(t, KindMissingCredentials, h.results.errors[0].Kind)
	assert.Empty(t, h.results.results)
	assert.Equal(t, progress.StatusFailed, h.progress.last().status)
}

func TestRun_CodeNotFound(t *testing.T) {
	h, _ := hrCockpitHarness(t)
	delete(h.page.visible, rowXPath(hrCode))

	_, err := h.runner().Run(context.Background(), types.RunRequest{Code: hrCode, CodeType: types.CodeTypeHRCockpit, RunID: "run-9"})
	require.Error(t, err)

	var notFound *CodeNotFoundError
	require.ErrorAs(t, err, &notFound)

	require.Len(t, h.results.errors, 1)
	errRec := h.results.errors[0]
	assert.Equal(t, hrCode, errRec.Code)
	assert.Equal(t, types.CodeTypeHRCockpit, errRec.CodeType)
	assert.Equal(t, "run-9", errRec.RunID)
	assert.Equal(t, KindCodeNotFound, errRec.Kind)
	assert.Contains(t, errRec.Error, hrCode)

	assert.Zero(t, h.page.called("download"))
	assert.Empty(t, h.results.results)

	last := h.progress.last()
	assert.Equal(t, progress.StatusFailed, last.status)
	assert.Contains(t, last.err, hrCode)
}

// interruptedPage fails the wait for one selector the way Session does when the wait is
// interrupted rather than timed out.
type interruptedPage struct {
	*fakePage
	sel    string
	cancel context.CancelFunc
	cause  error
}

func (p *interruptedPage) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	if sel != p.sel {
		return p.fakePage.WaitVisible(ctx, sel, timeout)
	}
	if p.cancel != nil {
		p.cancel()
	}
	return &browser.ElementNotFoundError{Selector: sel, Timeout: timeout, Cause: p.cause}
}

func TestRun_InterruptedWaitIsNotABusinessFailure(t *testing.T) {
	h, _ := hrCockpitHarness(t)
	listing := h.variant.Selectors.Listing

	tests := []struct {
		name     string
		sel      string
		cancel   bool
		cause    error
		wantKind string
	}{
		{"run cancelled during row wait", rowXPath(hrCode), true, context.Canceled, KindUnexpected},
		{"browser failure during row wait", rowXPath(hrCode), false, errors.New("websocket: close 1006"), KindElementNotFound},
		{"run cancelled during listing wait", listing, true, context.Canceled, KindUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := hrCockpitHarness(t)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			page := &interruptedPage{fakePage: h.page, sel: tt.sel, cause: tt.cause}
			if tt.cancel {
				page.cancel = cancel
			}
			r := NewRunner(Dependencies{
				Page:        page,
				Blobs:       h.blobs,
				Results:     h.results,
				Credentials: h.creds,
				Progress:    h.progress,
				Settings:    h.settings,
				Logger:      discardLogger(),
			})

			_, err := r.Run(ctx, types.RunRequest{Code: hrCode, CodeType: types.CodeTypeHRCockpit})
			require.Error(t, err)

			var notFound *CodeNotFoundError
			assert.False(t, errors.As(err, &notFound))
			var navErr *NavigationTimeoutError
			assert.False(t, errors.As(err, &navErr))
			assert.Equal(t, tt.wantKind, Kind(err))

			require.Len(t, h.results.errors, 1)
			assert.Equal(t, tt.wantKind, h.results.errors[0].Kind)
			assert.Equal(t, progress.StatusFailed, h.progress.last().status)
		})
	}
}

func TestRun_NavigationTimeout(t *testing.T) {
	h, _ := hrCockpitHarness(t)
	delete(h.page.visible, linkXPath("Potenzialanalyse"))

	_, err := h.runner().Run(context.Background(), types.RunRequest{Code: hrCode, CodeType: types.CodeTypeHRCockpit})
	require.Error(t, err)
	assert.Equal(t, KindNavigationTimeout, Kind(err))
	assert.Contains(t, err.Error(), "Potenzialanalyse")
	assert.Zero(t, h.page.called("click "+linkXPath("Teilnehmerliste")))
}

func TestRun_LoginFormMissing(t *testing.T) {
	h, _ := hrCockpitHarness(t)
	delete(h.page.visible, h.variant.Login.User)

	_, err := h.runner().Run(context.Background(), types.RunRequest{Code: hrCode, CodeType: types.CodeTypeHRCockpit})
	require.Error(t, err)
	assert.Equal(t, KindNavigationTimeout, Kind(err))
	assert.Zero(t, h.page.called("fill"))
}

func TestRun_InputValidation(t *testing.T) {
	tests := []struct {
		name string
		req  types.RunRequest
	}{
		{"empty code", types.RunRequest{Code: "  ", CodeType: types.CodeTypeHRCockpit}},
		{"unknown code type", types.RunRequest{Code: "X", CodeType: "NOPE"}},
		{"missing code type", types.RunRequest{Code: "X"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := hrCockpitHarness(t)

			_, err := h.runner().Run(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, KindInputValidation, Kind(err))
			assert.Empty(t, h.page.calls, "the page is never touched")
			require.Len(t, h.results.errors, 1)
		})
	}
}

func TestRun_TrimsCode(t *testing.T) {
	h, _ := hrCockpitHarness(t)

	rec, err := h.runner().Run(context.Background(), types.RunRequest{Code: "  " + hrCode + " ", CodeType: types.CodeTypeHRCockpit})
	require.NoError(t, err)
	assert.Equal(t, hrCode, rec.Code)
}

func TestRun_PanicBecomesErrorRecord(t *testing.T) {
	h, _ := hrCockpitHarness(t)
	r := NewRunner(Dependencies{
		Page:        h.page,
		Blobs:       panickingBlobs{},
		Results:     h.results,
		Credentials: h.creds,
		Progress:    h.progress,
		Settings:    h.settings,
		Logger:      discardLogger(),
	})

	rec, err := r.Run(context.Background(), types.RunRequest{Code: hrCode, CodeType: types.CodeTypeHRCockpit})
	require.Error(t, err)
	assert.Nil(t, rec)

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.NotEmpty(t, panicErr.Stack)
	assert.Equal(t, KindUnexpected, Kind(err))

	require.Len(t, h.results.errors, 1)
	assert.Equal(t, KindUnexpected, h.results.errors[0].Kind)
	assert.Equal(t, progress.StatusFailed, h.progress.last().status)
}

func TestRun_BlobStoreFailureIsFatal(t *testing.T) {
	h, _ := hrCockpitHarness(t)
	h.blobs.err = errors.New("disk full")

	_, err := h.runner().Run(context.Background(), types.RunRequest{Code: hrCode, CodeType: types.CodeTypeHRCockpit})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, KindUnexpected, Kind(err))
	assert.Empty(t, h.results.results)
}

func TestRun_ResultStoreFailure(t *testing.T) {
	h, _ := hrCockpitHarness(t)
	h.results.err = errors.New("connection refused")

	_, err := h.runner().Run(context.Background(), types.RunRequest{Code: hrCode, CodeType: types.CodeTypeHRCockpit})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to persist result")
	require.Len(t, h.results.errors, 1, "the error record is still attempted")
	assert.Equal(t, progress.StatusFailed, h.progress.last().status)
}

func TestRun_StepCounterInvariants(t *testing.T) {
	h, links := hrCockpitHarness(t)
	h.page.captures[nthKey(links, 2)] = nil

	_, err := h.runner().Run(context.Background(), types.RunRequest{Code: hrCode, CodeType: types.CodeTypeHRCockpit})
	require.NoError(t, err)

	updates := h.progress.updates
	require.NotEmpty(t, updates)
	assert.Equal(t, progress.StatusStarting, updates[0].status)

	totalChanges := 0
	for i, u := range updates {
		assert.LessOrEqual(t, u.done, u.total, "update %d", i)
		if i == 0 {
			continue
		}
		prev := updates[i-1]
		assert.GreaterOrEqual(t, u.done, prev.done, "done never decreases")
		if u.total != prev.total {
			totalChanges++
		}
	}
	assert.LessOrEqual(t, totalChanges, 1, "total is recomputed at most once")
}

func TestRun_ProgressIsOptional(t *testing.T) {
	h, _ := hrCockpitHarness(t)
	r := NewRunner(Dependencies{
		Page:        h.page,
		Blobs:       h.blobs,
		Results:     h.results,
		Credentials: h.creds,
		Settings:    h.settings,
		Logger:      discardLogger(),
	})

	rec, err := r.Run(context.Background(), types.RunRequest{Code: hrCode, CodeType: types.CodeTypeHRCockpit})
	require.NoError(t, err)
	assert.Len(t, rec.Reports, 4)
}

func TestRun_CancelledContextStopsRetries(t *testing.T) {
	h, links := hrCockpitHarness(t)
	h.page.captures[nthKey(links, 0)] = nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.runner().Run(ctx, types.RunRequest{Code: hrCode, CodeType: types.CodeTypeHRCockpit})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, h.results.errors, 1, "the error record is written despite the cancelled context")
}

func TestForVariant(t *testing.T) {
	for _, ct := range types.AllCodeTypes() {
		t.Run(string(ct), func(t *testing.T) {
			h := newHarness(t, ct, "x")
			wf, err := ForVariant(h.variant)
			require.NoError(t, err)
			assert.NotNil(t, wf)
		})
	}
}

func TestMultiProgress(t *testing.T) {
	a, b := &recordingProgress{}, &recordingProgress{}
	sink := MultiProgress(a, nil, b)

	c := progress.NewStepCounter(2)
	sink.Starting(context.Background(), c, "start")
	c.Advance()
	sink.Running(context.Background(), c, "step")
	sink.Failed(context.Background(), errors.New("boom"), "failed")

	for _, r := range []*recordingProgress{a, b} {
		require.Len(t, r.updates, 3)
		assert.Equal(t, 1, r.updates[1].done)
		assert.Equal(t, "boom", r.updates[2].err)
	}
}

func TestRunner_FailBeforeStart(t *testing.T) {
	req := types.RunRequest{Code: hrCode, CodeType: types.CodeTypeHRCockpit, RunID: "run-3"}
	startErr := errors.New("chrome failed to start")

	t.Run("with result store", func(t *testing.T) {
		results := &memoryResults{}
		rp := &recordingProgress{}
		NewRunner(Dependencies{Results: results, Progress: rp, Logger: discardLogger()}).Fail(context.Background(), req, startErr)

		require.Len(t, results.errors, 1)
		assert.Equal(t, KindUnexpected, results.errors[0].Kind)
		assert.Equal(t, "run-3", results.errors[0].RunID)
		assert.Equal(t, "chrome failed to start", results.errors[0].Error)
		require.Len(t, rp.updates, 1)
		assert.Equal(t, progress.StatusFailed, rp.updates[0].status)
	})

	t.Run("without result store", func(t *testing.T) {
		rp := &recordingProgress{}
		NewRunner(Dependencies{Progress: rp, Logger: discardLogger()}).Fail(context.Background(), req, startErr)

		require.Len(t, rp.updates, 1)
		assert.Equal(t, "chrome failed to start", rp.updates[0].err)
	})
}

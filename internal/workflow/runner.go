package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/jonathan/assessment-scraper/internal/progress"
	"github.com/jonathan/assessment-scraper/internal/schemas"
	"github.com/jonathan/assessment-scraper/internal/types"
	"github.com/jonathan/assessment-scraper/internal/variants"
)

// failureReportTimeout bounds the error-record write and FAILED update after a run failed,
// which may happen after the run context already expired.
const failureReportTimeout = 30 * time.Second

// Dependencies are the collaborators of a Runner.
type Dependencies struct {
	Page        Page
	Blobs       BlobStore
	Results     ResultStore
	Credentials CredentialSource
	Progress    ProgressSink
	Settings    Settings
	Logger      *slog.Logger
}

// Runner is the top-level handler of a run. It is the only place error records and
// FAILED updates are emitted, so every run ends with exactly one terminal report.
type Runner struct {
	deps Dependencies
}

// NewRunner creates a Runner. A nil Progress disables progress reporting.
func NewRunner(deps Dependencies) *Runner {
	if deps.Progress == nil {
		deps.Progress = noopProgress{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Settings.FileAttempts < 1 {
		deps.Settings.FileAttempts = DefaultSettings().FileAttempts
	}
	if deps.Settings.ReportAttempts < 1 {
		deps.Settings.ReportAttempts = DefaultSettings().ReportAttempts
	}
	return &Runner{deps: deps}
}

// Run executes one run for req. On success the result record has been appended to the
// Result Store and a COMPLETED update sent. On failure an error record has been appended,
// a FAILED update sent, and the error is returned.
func (r *Runner) Run(ctx context.Context, req types.RunRequest) (*types.ResultRecord, error) {
	logger := r.runLogger(req)

	rec, err := r.guarded(ctx, &req, logger)
	if err != nil {
		r.fail(ctx, req, logger, err)
		return nil, err
	}
	return rec, nil
}

// Fail emits the terminal error record and FAILED update for a run that could not be
// started, for example because the browser or a store failed to open. Results may be nil,
// in which case only the FAILED update is sent.
func (r *Runner) Fail(ctx context.Context, req types.RunRequest, err error) {
	r.fail(ctx, req, r.runLogger(req), err)
}

func (r *Runner) runLogger(req types.RunRequest) *slog.Logger {
	return r.deps.Logger.With(
		slog.String("code_type", string(req.CodeType)),
		slog.String("code", req.Code),
		slog.String("run_id", req.RunID))
}

// guarded converts a panic inside the run into a PanicError.
func (r *Runner) guarded(ctx context.Context, req *types.RunRequest, logger *slog.Logger) (rec *types.ResultRecord, err error) {
	defer func() {
		if p := recover(); p != nil {
			rec = nil
			err = &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	return r.run(ctx, req, logger)
}

func (r *Runner) run(ctx context.Context, req *types.RunRequest, logger *slog.Logger) (*types.ResultRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	v, err := variants.Lookup(req.CodeType)
	if err != nil {
		return nil, err
	}
	wf, err := ForVariant(v)
	if err != nil {
		return nil, err
	}

	if r.deps.Settings.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.deps.Settings.RunTimeout)
		defer cancel()
	}

	counter := progress.NewStepCounter(FixedSteps + v.ExpectedTargets())
	r.deps.Progress.Starting(ctx, counter, fmt.Sprintf("Starting %s run", v.Name))
	logger.Info("run started",
		slog.String("variant", v.Name),
		slog.Int("provisional_total", counter.Total()))

	user, password, err := r.credentials(v)
	if err != nil {
		return nil, err
	}

	if err := r.deps.Page.Navigate(ctx, v.StartURL); err != nil {
		return nil, err
	}

	x := &Execution{
		run: RunContext{
			Code:     req.Code,
			CodeType: req.CodeType,
			RunID:    req.RunID,
			Variant:  v,
		},
		page:     r.deps.Page,
		blobs:    r.deps.Blobs,
		progress: r.deps.Progress,
		counter:  counter,
		settings: r.deps.Settings,
		logger:   logger,
		user:     user,
		password: password,
	}

	rec, err := wf.Run(ctx, x)
	if err != nil {
		return nil, err
	}

	if err := schemas.ValidateResult(rec); err != nil {
		return nil, fmt.Errorf("result record rejected: %w", err)
	}
	if err := r.deps.Results.AppendResult(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist result: %w", err)
	}
	x.step(ctx, "persist", "Result persisted")

	if !counter.Done() {
		logger.Warn("step count mismatch at completion",
			slog.Int("done", counter.Current()),
			slog.Int("total", counter.Total()))
	}
	r.deps.Progress.Completed(ctx, counter, "Completed")
	logger.Info("run completed",
		slog.Int("reports", len(rec.Reports)),
		slog.Int("rows", len(rec.Data)))
	return rec, nil
}

// credentials resolves the variant's login. Both variables must be set and non-empty.
func (r *Runner) credentials(v variants.Variant) (string, string, error) {
	if r.deps.Credentials == nil {
		return "", "", &MissingCredentialsError{
			CodeType: v.ID,
			Vars:     []string{v.Credentials.UserVar, v.Credentials.PasswordVar},
		}
	}

	var missing []string
	user, ok := r.deps.Credentials.Lookup(v.Credentials.UserVar)
	if !ok {
		missing = append(missing, v.Credentials.UserVar)
	}
	password, ok := r.deps.Credentials.Lookup(v.Credentials.PasswordVar)
	if !ok {
		missing = append(missing, v.Credentials.PasswordVar)
	}
	if len(missing) > 0 {
		return "", "", &MissingCredentialsError{CodeType: v.ID, Vars: missing}
	}
	return user, password, nil
}

// fail emits the terminal error record and FAILED update of a run.
func (r *Runner) fail(ctx context.Context, req types.RunRequest, logger *slog.Logger, err error) {
	kind := Kind(err)

	attrs := []any{
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		attrs = append(attrs, slog.String("stack", string(panicErr.Stack)))
	}
	logger.Error("run failed", attrs...)

	reportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureReportTimeout)
	defer cancel()

	errRec := &types.ErrorRecord{
		Code:     req.Code,
		CodeType: req.CodeType,
		RunID:    req.RunID,
		Kind:     kind,
		Error:    err.Error(),
	}
	if r.deps.Results != nil {
		if appendErr := r.deps.Results.AppendError(reportCtx, errRec); appendErr != nil {
			logger.Error("failed to persist error record", slog.String("error", appendErr.Error()))
		}
	}

	r.deps.Progress.Failed(reportCtx, err, fmt.Sprintf("Run failed (%s)", kind))
}

// Package progress tracks step counts for a run and pushes them to the progress endpoint.
package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Status is the lifecycle state sent with each progress update.
type Status string

// Progress statuses
const (
	StatusStarting  Status = "STARTING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// DefaultTimeout bounds a single progress request.
const DefaultTimeout = 10 * time.Second

// Update is the body posted to the progress endpoint. Done and Total are omitted on FAILED,
// where Error carries the failure message instead.
type Update struct {
	RunID       string `json:"runId"`
	Done        *int   `json:"done,omitempty"`
	Total       *int   `json:"total,omitempty"`
	Status      Status `json:"status"`
	Description string `json:"description,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Reporter pushes progress updates. Delivery failures are logged and never returned.
type Reporter struct {
	client  *resty.Client
	url     string
	runID   string
	logger  *slog.Logger
	enabled bool
}

// Options configures a Reporter.
type Options struct {
	URL     string
	Token   string
	RunID   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewReporter creates a Reporter. Reporting is disabled when RunID or URL is empty.
func NewReporter(opts Options) *Reporter {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json")
	if opts.Token != "" {
		client.SetAuthToken(opts.Token)
	}

	return &Reporter{
		client:  client,
		url:     opts.URL,
		runID:   opts.RunID,
		logger:  opts.Logger,
		enabled: opts.RunID != "" && opts.URL != "",
	}
}

// Enabled reports whether updates are sent at all.
func (r *Reporter) Enabled() bool { return r.enabled }

// Starting announces the start of a run with its provisional total.
func (r *Reporter) Starting(ctx context.Context, c *StepCounter, description string) {
	r.send(ctx, r.counted(StatusStarting, c, description))
}

// Running announces a completed step.
func (r *Reporter) Running(ctx context.Context, c *StepCounter, description string) {
	r.send(ctx, r.counted(StatusRunning, c, description))
}

// Completed announces a successful run. The counter must be done.
func (r *Reporter) Completed(ctx context.Context, c *StepCounter, description string) {
	r.send(ctx, r.counted(StatusCompleted, c, description))
}

// Failed announces a failed run.
func (r *Reporter) Failed(ctx context.Context, err error, description string) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	r.send(ctx, Update{
		RunID:       r.runID,
		Status:      StatusFailed,
		Description: description,
		Error:       msg,
	})
}

func (r *Reporter) counted(status Status, c *StepCounter, description string) Update {
	done, total := c.Current(), c.Total()
	return Update{
		RunID:       r.runID,
		Done:        &done,
		Total:       &total,
		Status:      status,
		Description: description,
	}
}

func (r *Reporter) send(ctx context.Context, u Update) {
	if !r.enabled {
		return
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(u).
		Post(r.url)
	if err != nil {
		r.logger.Warn("progress update failed",
			slog.String("run_id", r.runID),
			slog.String("status", string(u.Status)),
			slog.String("error", err.Error()))
		return
	}
	if !resp.IsSuccess() {
		r.logger.Warn("progress update rejected",
			slog.String("run_id", r.runID),
			slog.String("status", string(u.Status)),
			slog.Int("http_status", resp.StatusCode()),
			slog.String("body", resp.String()))
		return
	}
	r.logger.Debug("progress update sent",
		slog.String("run_id", r.runID),
		slog.String("status", string(u.Status)))
}

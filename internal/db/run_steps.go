package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/assessment-scraper/internal/progress"
	"github.com/jonathan/assessment-scraper/internal/types"
)

// RunStep is one recorded progress transition of a run.
type RunStep struct {
	ID          uuid.UUID       `json:"id"`
	RunID       string          `json:"run_id,omitempty"`
	Code        string          `json:"code"`
	CodeType    types.CodeType  `json:"code_type"`
	Status      progress.Status `json:"status"`
	Done        *int            `json:"done,omitempty"`
	Total       *int            `json:"total,omitempty"`
	Description string          `json:"description,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// StepLog records every progress transition of one run in run_steps. Like the HTTP
// reporter it never fails the run: write errors are logged and dropped.
type StepLog struct {
	db       *DB
	runID    string
	code     string
	codeType types.CodeType
	logger   *slog.Logger
}

// NewStepLog creates a StepLog for the run identified by req.
func NewStepLog(database *DB, req types.RunRequest, logger *slog.Logger) *StepLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &StepLog{
		db:       database,
		runID:    req.RunID,
		code:     req.Code,
		codeType: req.CodeType,
		logger:   logger,
	}
}

// Starting records the start of the run.
func (l *StepLog) Starting(ctx context.Context, c *progress.StepCounter, description string) {
	l.counted(ctx, progress.StatusStarting, c, description)
}

// Running records a completed step.
func (l *StepLog) Running(ctx context.Context, c *progress.StepCounter, description string) {
	l.counted(ctx, progress.StatusRunning, c, description)
}

// Completed records the successful end of the run.
func (l *StepLog) Completed(ctx context.Context, c *progress.StepCounter, description string) {
	l.counted(ctx, progress.StatusCompleted, c, description)
}

// Failed records the failure of the run.
func (l *StepLog) Failed(ctx context.Context, err error, description string) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	l.insert(ctx, RunStep{Status: progress.StatusFailed, Description: description, Error: msg})
}

func (l *StepLog) counted(ctx context.Context, status progress.Status, c *progress.StepCounter, description string) {
	done, total := c.Current(), c.Total()
	l.insert(ctx, RunStep{Status: status, Done: &done, Total: &total, Description: description})
}

func (l *StepLog) insert(ctx context.Context, step RunStep) {
	_, err := l.db.pool.Exec(ctx,
		`INSERT INTO run_steps (id, run_id, code, code_type, status, done, total, description, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New(), nullable(l.runID), l.code, string(l.codeType), string(step.Status),
		step.Done, step.Total, nullable(step.Description), nullable(step.Error),
	)
	if err != nil {
		l.logger.Warn("failed to record run step",
			slog.String("status", string(step.Status)),
			slog.String("error", err.Error()))
	}
}

// ListRunSteps returns the recorded transitions of a run in order.
func (db *DB) ListRunSteps(ctx context.Context, runID string) ([]RunStep, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, COALESCE(run_id, ''), code, code_type, status, done, total,
		        COALESCE(description, ''), COALESCE(error, ''), created_at
		 FROM run_steps
		 WHERE run_id = $1
		 ORDER BY created_at ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list run steps: %w", err)
	}
	defer rows.Close()

	var steps []RunStep
	for rows.Next() {
		var s RunStep
		var codeType, status string
		if err := rows.Scan(&s.ID, &s.RunID, &s.Code, &codeType, &status, &s.Done, &s.Total,
			&s.Description, &s.Error, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run step: %w", err)
		}
		s.CodeType = types.CodeType(codeType)
		s.Status = progress.Status(status)
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

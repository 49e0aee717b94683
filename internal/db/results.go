package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/assessment-scraper/internal/types"
)

// StoredResult is a result record as read back from the database.
type StoredResult struct {
	ID        uuid.UUID           `json:"id"`
	Record    *types.ResultRecord `json:"record"`
	CreatedAt time.Time           `json:"created_at"`
}

// StoredError is an error record as read back from the database.
type StoredError struct {
	ID        uuid.UUID          `json:"id"`
	Record    *types.ErrorRecord `json:"record"`
	CreatedAt time.Time          `json:"created_at"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AppendResult stores the result of a successful run. Results are never updated.
func (db *DB) AppendResult(ctx context.Context, rec *types.ResultRecord) error {
	jsonBytes, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO scrape_results (id, code, code_type, run_id, kind, record)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), rec.Code, string(rec.CodeType), nullable(rec.RunID), string(rec.Kind()), jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to append result for %s/%s: %w", rec.CodeType, rec.Code, err)
	}
	return nil
}

// AppendError stores the error record of a failed run.
func (db *DB) AppendError(ctx context.Context, rec *types.ErrorRecord) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO scrape_errors (id, code, code_type, run_id, kind, message)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), rec.Code, string(rec.CodeType), nullable(rec.RunID), rec.Kind, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to append error for %s/%s: %w", rec.CodeType, rec.Code, err)
	}
	return nil
}

// LatestResult returns the most recent result for a code, or nil if there is none.
func (db *DB) LatestResult(ctx context.Context, codeType types.CodeType, code string) (*StoredResult, error) {
	var stored StoredResult
	var raw []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, record, created_at FROM scrape_results
		 WHERE code_type = $1 AND code = $2
		 ORDER BY created_at DESC LIMIT 1`,
		string(codeType), code,
	).Scan(&stored.ID, &raw, &stored.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest result: %w", err)
	}

	stored.Record = &types.ResultRecord{}
	if err := json.Unmarshal(raw, stored.Record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &stored, nil
}

// ListErrors returns the error records of a code, newest first.
func (db *DB) ListErrors(ctx context.Context, codeType types.CodeType, code string, limit int) ([]StoredError, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, code, code_type, COALESCE(run_id, ''), kind, message, created_at
		 FROM scrape_errors
		 WHERE code_type = $1 AND code = $2
		 ORDER BY created_at DESC LIMIT $3`,
		string(codeType), code, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list errors: %w", err)
	}
	defer rows.Close()

	var out []StoredError
	for rows.Next() {
		var se StoredError
		var rec types.ErrorRecord
		var ct string
		if err := rows.Scan(&se.ID, &rec.Code, &ct, &rec.RunID, &rec.Kind, &rec.Error, &se.CreatedAt); err != nil {
			return nil, err
		}
		rec.CodeType = types.CodeType(ct)
		se.Record = &rec
		out = append(out, se)
	}
	return out, rows.Err()
}

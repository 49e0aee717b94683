package db

// Table names
const (
	TableResults = "scrape_results"
	TableErrors  = "scrape_errors"
	TableBlobs   = "report_blobs"
	TableSteps   = "run_steps"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS scrape_results (
		id          UUID PRIMARY KEY,
		code        TEXT NOT NULL,
		code_type   TEXT NOT NULL,
		run_id      TEXT,
		kind        TEXT NOT NULL,
		record      JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS scrape_results_code_idx ON scrape_results (code_type, code, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS scrape_errors (
		id          UUID PRIMARY KEY,
		code        TEXT NOT NULL,
		code_type   TEXT NOT NULL,
		run_id      TEXT,
		kind        TEXT NOT NULL,
		message     TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS report_blobs (
		id            UUID PRIMARY KEY,
		key           TEXT NOT NULL UNIQUE,
		content_type  TEXT NOT NULL,
		size_bytes    BIGINT NOT NULL,
		data          BYTEA NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS run_steps (
		id           UUID PRIMARY KEY,
		run_id       TEXT,
		code         TEXT NOT NULL,
		code_type    TEXT NOT NULL,
		status       TEXT NOT NULL,
		done         INTEGER,
		total        INTEGER,
		description  TEXT,
		error        TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS run_steps_run_idx ON run_steps (run_id, created_at)`,
}

package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BlobScheme prefixes locators of blobs stored in report_blobs.
const BlobScheme = "pg://report_blobs/"

// Blob is a stored report file.
type Blob struct {
	ID          uuid.UUID
	Key         string
	ContentType string
	Data        []byte
}

// BlobStore stores report files in the report_blobs table.
type BlobStore struct {
	db *DB
}

// NewBlobStore creates a BlobStore on an open database.
func NewBlobStore(database *DB) *BlobStore {
	return &BlobStore{db: database}
}

// Store inserts a blob and returns its pg:// locator.
func (s *BlobStore) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	var id uuid.UUID
	err := s.db.pool.QueryRow(ctx,
		`INSERT INTO report_blobs (id, key, content_type, size_bytes, data)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		uuid.New(), key, contentType, len(data), data,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to store blob %s: %w", key, err)
	}
	return BlobLocator(id), nil
}

// Get reads a blob by its locator, returning nil if it does not exist.
func (s *BlobStore) Get(ctx context.Context, locator string) (*Blob, error) {
	id, err := ParseBlobLocator(locator)
	if err != nil {
		return nil, err
	}

	var b Blob
	err = s.db.pool.QueryRow(ctx,
		`SELECT id, key, content_type, data FROM report_blobs WHERE id = $1`, id,
	).Scan(&b.ID, &b.Key, &b.ContentType, &b.Data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	return &b, nil
}

// BlobLocator formats the locator of a stored blob.
func BlobLocator(id uuid.UUID) string {
	return BlobScheme + id.String()
}

// ParseBlobLocator extracts the blob ID from a pg:// locator.
func ParseBlobLocator(locator string) (uuid.UUID, error) {
	if !strings.HasPrefix(locator, BlobScheme) {
		return uuid.Nil, fmt.Errorf("not a blob locator: %s", locator)
	}
	id, err := uuid.Parse(strings.TrimPrefix(locator, BlobScheme))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid blob locator %s: %w", locator, err)
	}
	return id, nil
}

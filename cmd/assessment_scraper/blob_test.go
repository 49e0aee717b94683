package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/assessment-scraper/internal/blob"
)

func TestBlobCommand_FileLocator(t *testing.T) {
	store, err := blob.NewFileStore(t.TempDir())
	require.NoError(t, err)
	locator, err := store.Store(context.Background(), "HR_COCKPIT/ABC/report.pdf", []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "copy.pdf")
	blobOut = ""
	output, err := executeRoot(t, "blob", locator, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote 8 bytes")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestBlobCommand_UnsupportedLocator(t *testing.T) {
	blobOut = ""
	_, err := executeRoot(t, "blob", "s3://bucket/key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported locator")
}

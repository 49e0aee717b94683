// Package blob stores downloaded report files and builds their storage keys.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// FileScheme prefixes locators of files written by FileStore.
const FileScheme = "file://"

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitize makes s safe to use as one key segment.
func sanitize(s string) string {
	s = unsafeKeyChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "unnamed"
	}
	return s
}

// Key builds the storage key <codeType>/<code>/<name>-<uuid><ext>. The ext is taken from
// fileName; the random suffix keeps repeated runs for the same code from overwriting each other.
func Key(codeType, code, name, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != "" {
		ext = "." + sanitize(strings.TrimPrefix(ext, "."))
	}
	return fmt.Sprintf("%s/%s/%s-%s%s", sanitize(codeType), sanitize(code), sanitize(name), uuid.NewString(), ext)
}

// FileStore writes blobs below a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve blob directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", abs, err)
	}
	return &FileStore{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *FileStore) Root() string { return s.root }

// Store writes data under key and returns a file:// locator. The content type is implied
// by the key's extension and not stored separately.
func (s *FileStore) Store(_ context.Context, key string, data []byte, _ string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(full, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("blob key %q escapes the blob directory", key)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	return FileScheme + filepath.ToSlash(full), nil
}

// ReadLocator reads the blob behind a file:// locator.
func ReadLocator(locator string) ([]byte, error) {
	if !strings.HasPrefix(locator, FileScheme) {
		return nil, fmt.Errorf("not a file locator: %s", locator)
	}
	return os.ReadFile(filepath.FromSlash(strings.TrimPrefix(locator, FileScheme)))
}

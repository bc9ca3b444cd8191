package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore implements Store on the local filesystem under a root
// directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at dir, creating the
// directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir %s: %w", dir, err)
	}
	return &LocalStore{root: dir}, nil
}

// Write persists data under key, creating intermediate directories for
// the key's namespace prefix.
func (s *LocalStore) Write(ctx context.Context, key string, data []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact parent dir for %s: %w", key, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", key, err)
	}

	return nil
}

// Read returns the bytes stored under key, or ErrNotFound.
func (s *LocalStore) Read(ctx context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read artifact %s: %w", key, err)
	}

	return data, nil
}

// resolve sanitizes a key and maps it to a path under the root.
// Keys are normalized the same way on write and read so the namespace
// stays flat and traversal never escapes the root.
func (s *LocalStore) resolve(key string) (string, error) {
	clean := strings.Trim(strings.ReplaceAll(key, "\\", "/"), "/")
	if clean == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	for _, segment := range strings.Split(clean, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}

	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

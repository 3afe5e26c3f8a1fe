// Package filex has filesystem helpers for the local payload store.
package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned by SafeJoin when a key escapes its root.
var ErrOutsideRoot = errors.New("path escapes storage root")

// EnsureDir creates dir (relative paths are resolved against the working
// directory) and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// SafeJoin joins a slash-separated storage key onto root and refuses keys
// that would resolve outside of root. Keys with "." or ".." segments are
// refused outright, so a key always names an entry strictly below root.
func SafeJoin(root, key string) (string, error) {
	if key == "" {
		return "", ErrOutsideRoot
	}
	for _, seg := range strings.Split(filepath.ToSlash(key), "/") {
		if seg == "." || seg == ".." {
			return "", ErrOutsideRoot
		}
	}
	full := filepath.Join(root, filepath.FromSlash(key))
	rel, err := filepath.Rel(root, full)
	if err != nil {
		return "", err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return full, nil
}

package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store provides byte-level read/write access to files under a single
// workspace root. All request paths are resolved against the root and may
// never escape it.
type Store struct {
	root string
}

// NewStore binds a store to the given workspace root.
// The root must exist; the bridge never creates the workspace itself.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root path cannot be empty")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for workspace root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("workspace root is not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %q is not a directory", absRoot)
	}
	return &Store{root: absRoot}, nil
}

// Root returns the absolute workspace root path.
func (s *Store) Root() string {
	return s.root
}

// Resolve maps a request path onto an absolute path inside the workspace.
// Absolute paths must already lie under the root; relative paths are joined
// to it. Any result escaping the root is rejected, never clamped.
func (s *Store) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	var abs string
	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Join(s.root, path)
	}

	if abs != s.root && !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q escapes workspace root", path)
	}
	return abs, nil
}

// Read returns the full contents of the file at a previously resolved path.
func (s *Store) Read(absPath string) ([]byte, error) {
	return os.ReadFile(absPath)
}

// Write replaces the file at a previously resolved path with content.
// The bytes land in a temp file in the target directory first and are renamed
// into place, so a request cancelled mid-write never leaves partial content.
func (s *Store) Write(absPath string, content []byte) error {
	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bridge-write-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, absPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

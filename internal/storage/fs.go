package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/checksum"
	"github.com/starford/focusfive/internal/models"
)

const (
	defaultRenameAttempts = 3
	defaultRenameBackoff  = 20 * time.Millisecond
	tempMarker            = ".tmp."
)

// FS implements Provider backed by the local file system.
type FS struct {
	root     string // absolute path to the data directory
	attempts int
	backoff  time.Duration
	rename   func(oldpath, newpath string) error
}

// FSOption configures an FS.
type FSOption func(*FS)

// WithRenameRetry sets how many times the final rename is attempted and the
// base delay between attempts. The delay grows linearly.
func WithRenameRetry(attempts int, backoff time.Duration) FSOption {
	return func(f *FS) {
		if attempts > 0 {
			f.attempts = attempts
		}
		f.backoff = backoff
	}
}

// WithRenameFunc replaces os.Rename, used to simulate failures.
func WithRenameFunc(fn func(oldpath, newpath string) error) FSOption {
	return func(f *FS) {
		f.rename = fn
	}
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...FSOption) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	f := &FS{
		root:     abs,
		attempts: defaultRenameAttempts,
		backoff:  defaultRenameBackoff,
		rename:   os.Rename,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Root returns the absolute data directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the data root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes data root: %s", rel)
	}
	return abs, nil
}

// List walks dir (relative to root) and returns metadata for every file
// ending in ext. A missing dir yields an empty list.
func (f *FS) List(dir, ext string) ([]models.FileInfo, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.FileInfo
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == base && errors.Is(walkErr, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return walkErr
		}
		if d.IsDir() || isTemp(d.Name()) || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, models.FileInfo{
			Path:      filepath.ToSlash(rel),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a data file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Open opens a data file for reading.
func (f *FS) Open(path string) (io.ReadSeekCloser, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return file, nil
}

// Write atomically writes content: unique tmp file → fsync → rename.
// The rename is retried; if it keeps failing the temp file is removed and
// a *apperr.WriteFailure is returned with the destination untouched.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &apperr.WriteFailure{Path: path, Err: fmt.Errorf("mkdir: %w", err)}
	}

	tmpName := filepath.Join(dir, tempName(filepath.Base(abs)))
	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return &apperr.WriteFailure{Path: path, Err: fmt.Errorf("create temp: %w", err)}
	}

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return &apperr.WriteFailure{Path: path, Err: fmt.Errorf("write temp: %w", err)}
	}
	if err := tmp.Sync(); err != nil {
		return &apperr.WriteFailure{Path: path, Err: fmt.Errorf("fsync: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return &apperr.WriteFailure{Path: path, Err: fmt.Errorf("close temp: %w", err)}
	}

	var renameErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if renameErr = f.rename(tmpName, abs); renameErr == nil {
			break
		}
		if attempt < f.attempts {
			time.Sleep(time.Duration(attempt) * f.backoff)
		}
	}
	if renameErr != nil {
		return &apperr.WriteFailure{Path: path, Attempts: f.attempts, Err: fmt.Errorf("rename: %w", renameErr)}
	}
	success = true
	syncDir(dir)
	return nil
}

// Append writes a copy of path with data appended, then swaps it in
// atomically, so a reader sees either the old or the new ledger.
func (f *FS) Append(path string, data []byte) error {
	existing, err := f.Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if n := len(existing); n > 0 && existing[n-1] != '\n' {
		existing = append(existing, '\n')
	}
	return f.Write(path, append(existing, data...))
}

// Delete removes a file from the data directory.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// SweepTemp removes temp files under root and returns how many were removed.
func (f *FS) SweepTemp() (int, error) {
	removed := 0
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !isTemp(d.Name()) {
			return nil
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("storage: sweep temp: %w", err)
	}
	return removed, nil
}

// tempName is unique per process and instant so concurrent writers never
// share a temp file.
func tempName(base string) string {
	return fmt.Sprintf(".%s%s%d.%d", base, tempMarker, os.Getpid(), time.Now().UnixNano())
}

func isTemp(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, tempMarker)
}

// syncDir flushes the directory entry so the rename survives a crash.
// Some platforms cannot fsync a directory; that is not an error.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

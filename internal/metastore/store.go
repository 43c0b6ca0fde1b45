// Package metastore reads and writes the structured side-data that the day
// text files cannot hold: per-day action metadata, the objective, indicator
// and template collections, the observation ledger, the vision and the
// periodic reviews.
package metastore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/storage"
)

// SchemaVersion is the newest version this build reads and writes.
const SchemaVersion = 1

// File layout under the data root.
const (
	MetaDir          = "meta"
	ObjectivesFile   = "objectives.json"
	IndicatorsFile   = "indicators.json"
	TemplatesFile    = "templates.json"
	ObservationsFile = "observations.ndjson"
	VisionFile       = "vision.json"
	ReviewsDir       = "reviews"
)

// Store is the metadata store. It is safe for concurrent use within one process.
type Store struct {
	fs     storage.Provider
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex // serializes read-modify-write of collections
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store on top of fs.
func New(fs storage.Provider, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{fs: fs, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type versionHeader struct {
	Version int `json:"version"`
}

// loadJSON decodes path into out. A missing file leaves out untouched and
// returns nil. Unreadable or malformed content returns *apperr.MetadataDegraded,
// a newer schema returns *apperr.SchemaVersionMismatch after decoding what it can.
func (s *Store) loadJSON(path string, out any) error {
	data, err := s.fs.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &apperr.MetadataDegraded{Path: path, Err: err}
	}
	var hdr versionHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return &apperr.MetadataDegraded{Path: path, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &apperr.MetadataDegraded{Path: path, Err: err}
	}
	if hdr.Version > SchemaVersion {
		return &apperr.SchemaVersionMismatch{Path: path, Found: hdr.Version, Supported: SchemaVersion}
	}
	return nil
}

func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("metastore: encode %s: %w", path, err)
	}
	if err := s.fs.Write(path, append(data, '\n')); err != nil {
		return fmt.Errorf("metastore: write %s: %w", path, err)
	}
	return nil
}

func (s *Store) logDegraded(err error) {
	if err != nil {
		s.logger.Warn("metastore: degraded read", slog.String("error", err.Error()))
	}
}

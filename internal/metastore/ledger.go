package metastore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

const (
	tailChunk     = 4096
	maxLedgerLine = 1 << 20
)

// AppendObservation validates o against its indicator and appends it to the
// ledger. A missing ID, timestamp or source is filled in.
func (s *Store) AppendObservation(o models.Observation) (models.Observation, error) {
	ind, err := s.Indicator(o.IndicatorID)
	if err != nil {
		return models.Observation{}, fmt.Errorf("metastore: indicator %q: %w", o.IndicatorID, err)
	}
	if err := ind.Metric.ValidateValue(o.Value); err != nil {
		return models.Observation{}, fmt.Errorf("metastore: observation: %w: %w", apperr.ErrInvalid, err)
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.ObservedAt.IsZero() {
		o.ObservedAt = s.now()
	}
	o.ObservedAt = o.ObservedAt.UTC()
	if o.Source == "" {
		o.Source = models.SourceManual
	}
	if err := o.Validate(); err != nil {
		return models.Observation{}, fmt.Errorf("metastore: observation: %w: %w", apperr.ErrInvalid, err)
	}

	line, err := json.Marshal(o)
	if err != nil {
		return models.Observation{}, fmt.Errorf("metastore: encode observation: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Append(ObservationsFile, append(line, '\n')); err != nil {
		return models.Observation{}, fmt.Errorf("metastore: append observation: %w", err)
	}
	return o, nil
}

// Observations scans the whole ledger and returns the observations of
// indicatorID (all indicators when empty) observed within [from, to].
// A zero bound is open.
func (s *Store) Observations(indicatorID string, from, to time.Time) ([]models.Observation, error) {
	r, err := s.fs.Open(ObservationsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("metastore: %w", err)
	}
	defer r.Close()

	var out []models.Observation
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLedgerLine)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		o, ok := s.decodeObservation(sc.Bytes(), lineNo)
		if !ok || !matches(o, indicatorID) {
			continue
		}
		if (!from.IsZero() && o.ObservedAt.Before(from)) || (!to.IsZero() && o.ObservedAt.After(to)) {
			continue
		}
		out = append(out, o)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("metastore: scan ledger: %w", err)
	}
	return out, nil
}

// RecentObservations streams the ledger from its end and returns up to n
// observations of indicatorID in the order they were appended.
func (s *Store) RecentObservations(indicatorID string, n int) ([]models.Observation, error) {
	if n <= 0 {
		return nil, nil
	}
	r, err := s.fs.Open(ObservationsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("metastore: %w", err)
	}
	defer r.Close()

	var out []models.Observation
	err = scanReverse(r, func(line []byte) bool {
		o, ok := s.decodeObservation(line, 0)
		if ok && matches(o, indicatorID) {
			out = append(out, o)
		}
		return len(out) < n
	})
	if err != nil {
		return nil, fmt.Errorf("metastore: tail ledger: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

// LatestObservation returns the most recently appended observation of indicatorID.
func (s *Store) LatestObservation(indicatorID string) (models.Observation, bool, error) {
	recent, err := s.RecentObservations(indicatorID, 1)
	if err != nil || len(recent) == 0 {
		return models.Observation{}, false, err
	}
	return recent[0], true, nil
}

func matches(o models.Observation, indicatorID string) bool {
	return indicatorID == "" || o.IndicatorID == indicatorID
}

func (s *Store) decodeObservation(line []byte, lineNo int) (models.Observation, bool) {
	var o models.Observation
	if len(bytes.TrimSpace(line)) == 0 {
		return o, false
	}
	if err := json.Unmarshal(line, &o); err != nil || o.IndicatorID == "" {
		attrs := []any{slog.Int("line", lineNo)}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		s.logger.Warn("metastore: skipping unreadable ledger line", attrs...)
		return o, false
	}
	return o, true
}

// scanReverse calls fn for each line of r from last to first until fn
// returns false. Lines are only valid for the duration of the call.
func scanReverse(r io.ReadSeeker, fn func(line []byte) bool) error {
	pos, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	buf := make([]byte, tailChunk)
	var carry []byte
	for pos > 0 {
		size := int64(tailChunk)
		if pos < size {
			size = pos
		}
		pos -= size
		if _, err := r.Seek(pos, io.SeekStart); err != nil {
			return err
		}
		if _, err := io.ReadFull(r, buf[:size]); err != nil {
			return err
		}
		data := make([]byte, 0, int(size)+len(carry))
		data = append(append(data, buf[:size]...), carry...)
		for {
			i := bytes.LastIndexByte(data, '\n')
			if i < 0 {
				break
			}
			line := data[i+1:]
			data = data[:i]
			if len(line) > 0 && !fn(line) {
				return nil
			}
		}
		carry = data
	}
	if len(carry) > 0 {
		fn(carry)
	}
	return nil
}

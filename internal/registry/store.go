// Package registry keeps the registered faces: an in-memory label to record
// map that is loaded once at startup and written through on every registration.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/renameio"
	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/mask-sentry/internal/facematch"
	"github.com/kozaktomas/mask-sentry/internal/record"
)

const maxLabelLen = 128

var (
	// ErrInvalidLabel is returned for labels that cannot be used as file names.
	ErrInvalidLabel = errors.New("invalid label")

	// ErrPersist wraps write failures. The in-memory entry is kept regardless.
	ErrPersist = errors.New("persisting record")
)

// Options configures where records live.
type Options struct {
	// Dir is the private record directory read by Load.
	Dir string
	// ExportDir receives a mirror copy of every registered record. Optional.
	ExportDir string
}

// Store maps labels to registered records.
type Store struct {
	opts Options

	mu      sync.RWMutex
	records map[string]record.Record
	index   *index
}

// SkippedFile is a record file that could not be loaded.
type SkippedFile struct {
	Name string
	Err  error
}

// LoadReport summarises a Load call.
type LoadReport struct {
	Loaded  int
	Skipped []SkippedFile
	// Unindexed lists loaded records left out of the search index because
	// their embedding width differs from the majority.
	Unindexed []string
}

// Open prepares the record directories and returns an empty store.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, errors.New("registry: record directory is required")
	}
	for _, dir := range []string{opts.Dir, opts.ExportDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	return &Store{
		opts:    opts,
		records: make(map[string]record.Record),
		index:   newIndex(),
	}, nil
}

// Dir returns the private record directory.
func (s *Store) Dir() string {
	return s.opts.Dir
}

// Load replaces the in-memory state with every decodable record in the private
// directory. Files that fail to read or decode are logged and skipped; only an
// unreadable directory is an error.
func (s *Store) Load() (LoadReport, error) {
	entries, err := os.ReadDir(s.opts.Dir)
	if err != nil {
		return LoadReport{}, fmt.Errorf("reading record directory: %w", err)
	}

	var report LoadReport
	records := make(map[string]record.Record, len(entries))
	idx := newIndex()

	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}

		rec, err := readRecord(filepath.Join(s.opts.Dir, name))
		if err != nil {
			log.WithFields(log.Fields{"file": name, "error": err}).Warn("Skipping record")
			report.Skipped = append(report.Skipped, SkippedFile{Name: name, Err: err})
			continue
		}

		records[name] = rec
		idx.put(name, rec.Embedding)
		report.Loaded++
	}

	report.Unindexed = idx.excluded()
	if len(report.Unindexed) > 0 {
		log.WithFields(log.Fields{
			"labels": report.Unindexed,
			"width":  idx.dim,
		}).Warn("Records with a different embedding width are not searchable")
	}

	s.mu.Lock()
	s.records = records
	s.index = idx
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"dir":     s.opts.Dir,
		"loaded":  report.Loaded,
		"skipped": len(report.Skipped),
	}).Info("Loaded registered faces")

	return report, nil
}

func readRecord(path string) (record.Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return record.Record{}, err
	}
	return record.Decode(data)
}

// ValidateLabel checks that a label is usable as a record file name.
func ValidateLabel(label string) error {
	switch {
	case strings.TrimSpace(label) == "":
		return fmt.Errorf("%w: empty", ErrInvalidLabel)
	case len(label) > maxLabelLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidLabel, maxLabelLen)
	case strings.HasPrefix(label, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidLabel, label)
	case strings.ContainsAny(label, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidLabel, label)
	}
	return nil
}

// Register inserts or overwrites the record for label, then persists it to the
// private directory and the export mirror. A persist failure is returned
// wrapped in ErrPersist, but the in-memory entry stays authoritative.
func (s *Store) Register(label string, rec record.Record) error {
	if err := ValidateLabel(label); err != nil {
		return err
	}
	rec.Title = label

	data, err := record.Encode(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records[label] = rec
	indexed := s.index.put(label, rec.Embedding)
	width := s.index.dim
	s.mu.Unlock()

	if !indexed && len(rec.Embedding) > 0 {
		log.WithFields(log.Fields{
			"label": label,
			"got":   len(rec.Embedding),
			"width": width,
		}).Warn("Embedding width differs from the index, record is not searchable")
	}

	var errs []error
	for _, dir := range []string{s.opts.Dir, s.opts.ExportDir} {
		if dir == "" {
			continue
		}
		if err := renameio.WriteFile(filepath.Join(dir, label), data, 0o600); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.WithFields(log.Fields{"label": label, "error": err}).Error("Failed to persist record")
		return fmt.Errorf("%w %q: %w", ErrPersist, label, err)
	}

	log.WithField("label", label).Info("Registered face")
	return nil
}

// Get returns the record registered under label.
func (s *Store) Get(label string) (record.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[label]
	return rec, ok
}

// Lookup finds a record by name ignoring case and diacritics.
func (s *Store) Lookup(name string) (string, record.Record, bool) {
	if rec, ok := s.Get(name); ok {
		return name, rec, true
	}

	want := facematch.NormalizePersonName(name)
	for _, label := range s.Labels() {
		if facematch.NormalizePersonName(label) == want {
			rec, ok := s.Get(label)
			return label, rec, ok
		}
	}
	return "", record.Record{}, false
}

// Labels returns the registered labels in sorted order.
func (s *Store) Labels() []string {
	s.mu.RLock()
	labels := make([]string, 0, len(s.records))
	for label := range s.records {
		labels = append(labels, label)
	}
	s.mu.RUnlock()

	sort.Strings(labels)
	return labels
}

// Len returns the number of registered records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Nearest returns up to k registered labels closest to query by L2 distance.
// An empty store yields no neighbours and no error.
func (s *Store) Nearest(query []float32, k int) ([]Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.search(query, k)
}

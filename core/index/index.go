// Package index persists the chunk_id → text_hash map between runs and
// computes the change report that tells an external embedding system what
// to re-embed. The persisted map is replaced in full each run; the index
// tracks "what must be re-embedded now", not an audit trail.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/gaurav-prasanna/confpipe/core"
)

// Store reads and writes the persisted index file.
type Store struct {
	Path string
	log  *slog.Logger
}

// NewStore creates a Store for the given file path.
func NewStore(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{Path: path, log: log}
}

// Load returns the previous run's map. A missing file is an empty map, not
// an error. A corrupt file is also recovered as empty, logged loudly since
// it turns the whole corpus into an "everything is new" signal.
func (s *Store) Load() map[string]string {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Error("index unreadable, treating as empty (full re-embed)", "path", s.Path, "err", err)
		}
		return map[string]string{}
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		s.log.Error("index corrupt, treating as empty (full re-embed)", "path", s.Path, "err", err)
		return map[string]string{}
	}
	if m == nil {
		m = map[string]string{}
	}
	return m
}

// Save replaces the persisted index with the current run's map.
func (s *Store) Save(current map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0644); err != nil {
		return fmt.Errorf("writing index %s: %w", s.Path, err)
	}
	return nil
}

// Reconcile diffs the previous map against the current one. Added, changed,
// and removed IDs are enumerated (sorted); unchanged chunks are only
// counted, keeping the report proportional to actual change volume.
func Reconcile(previous, current map[string]string) core.ChangeReport {
	report := core.ChangeReport{
		Added:   []string{},
		Changed: []string{},
		Removed: []string{},
	}

	for id, hash := range current {
		prev, ok := previous[id]
		switch {
		case !ok:
			report.Added = append(report.Added, id)
		case prev != hash:
			report.Changed = append(report.Changed, id)
		default:
			report.UnchangedCount++
		}
	}
	for id := range previous {
		if _, ok := current[id]; !ok {
			report.Removed = append(report.Removed, id)
		}
	}

	sort.Strings(report.Added)
	sort.Strings(report.Changed)
	sort.Strings(report.Removed)
	return report
}

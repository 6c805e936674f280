// Package snapshot persists challenge state as a JSON document on disk,
// one file per challenge instance.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/quantumchildren/propsim/challenge"
)

// FileStore writes snapshots to a single JSON file. Writes go through a
// temp file and rename so a crash mid-write never leaves a truncated
// snapshot behind.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing to path. The parent directory
// must exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot file location.
func (s *FileStore) Path() string { return s.path }

// Save implements challenge.Store.
func (s *FileStore) Save(snap challenge.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot document back. Use challenge.Restore to turn
// it into a running instance.
func (s *FileStore) Load() (challenge.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return challenge.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap challenge.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return challenge.Snapshot{}, fmt.Errorf("parse snapshot %s: %w", s.path, err)
	}
	return snap, nil
}

// DefaultPath returns a timestamped snapshot filename in dir, matching
// the challenge_<date>_<time>.json convention the resume glob expects.
func DefaultPath(dir string, now time.Time) string {
	return filepath.Join(dir, "challenge_"+now.Format("20060102_150405")+".json")
}

// FindLatest returns the most recently modified challenge_*.json in dir,
// or "" when none exists.
func FindLatest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "challenge_*.json"))
	if err != nil {
		return "", err
	}

	var latest string
	var latestMod time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = m
			latestMod = info.ModTime()
		}
	}
	return latest, nil
}

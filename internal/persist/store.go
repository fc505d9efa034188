// Package persist stores the prompt history between sessions.
package persist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
)

// MaxEntries bounds the saved history.
const MaxEntries = 500

// HistorySnapshot is the on-disk history document.
type HistorySnapshot struct {
	Entries []string `json:"entries"`
}

// Store persists prompt history to a single JSON file.
type Store struct {
	path string
	log  pslog.Logger
}

// NewStore constructs a history store writing to path.
func NewStore(path string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("history_file", path)
	}
	return &Store{path: path, log: logger}, nil
}

// Load reads the saved history, oldest first. A missing file is empty.
func (s *Store) Load() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("history load miss")
			}
			return nil, nil
		}
		if s.log != nil {
			s.log.Warn("history load failed", "err", err)
		}
		return nil, err
	}
	var snapshot HistorySnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		if s.log != nil {
			s.log.Warn("history load failed", "err", err)
		}
		return nil, err
	}
	if s.log != nil {
		s.log.Debug("history load ok", "entries", len(snapshot.Entries))
	}
	return snapshot.Entries, nil
}

// Save atomically replaces the history file with the newest MaxEntries
// entries.
func (s *Store) Save(entries []string) error {
	if len(entries) > MaxEntries {
		entries = entries[len(entries)-MaxEntries:]
	}
	data, err := json.MarshalIndent(HistorySnapshot{Entries: entries}, "", "  ")
	if err != nil {
		return s.fail(err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "history-*.json")
	if err != nil {
		return s.fail(err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return s.fail(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return s.fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return s.fail(err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return s.fail(err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return s.fail(err)
	}
	if s.log != nil {
		s.log.Trace("history save ok", "entries", len(entries))
	}
	return nil
}

func (s *Store) fail(err error) error {
	if s.log != nil {
		s.log.Warn("history save failed", "err", err)
	}
	return err
}

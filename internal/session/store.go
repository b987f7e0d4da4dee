package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session ID has no matching file.
var ErrNotFound = fmt.Errorf("session not found")

// ErrPrefixNotFound is returned when no session ID matches a prefix.
var ErrPrefixNotFound = fmt.Errorf("no session matches prefix")

// ErrAmbiguousPrefix is returned when more than one session ID matches a prefix.
type ErrAmbiguousPrefix struct {
	Prefix string
	Count  int
}

func (e *ErrAmbiguousPrefix) Error() string {
	return fmt.Sprintf("prefix %q matches %d sessions", e.Prefix, e.Count)
}

// Store is a file-based session store: each session is a JSON file in
// sessionsDir, written atomically via a .tmp-then-rename sequence.
type Store struct {
	sessionsDir string
	logger      *slog.Logger
}

// NewStore creates a store rooted at configDir/sessions, creating the
// directory if it does not exist.
func NewStore(configDir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Join(configDir, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions directory: %w", err)
	}
	return &Store{sessionsDir: dir, logger: logger}, nil
}

// Save writes a session to disk, replacing any prior contents atomically.
func (s *Store) Save(sess *Session) error {
	path := s.sessionPath(sess.ID)
	tmpPath := path + ".tmp"
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("finalize session: %w", err)
	}
	return nil
}

// Load reads a session by exact UUID.
func (s *Store) Load(id uuid.UUID) (*Session, error) {
	path := s.sessionPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return &sess, nil
}

// LoadByPrefix loads a session by a case-insensitive ID prefix, returning
// ErrAmbiguousPrefix if more than one session matches.
func (s *Store) LoadByPrefix(prefix string) (*Session, error) {
	prefixLower := strings.ToLower(prefix)
	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var matches []uuid.UUID
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		stem := strings.TrimSuffix(name, ".json")
		if !strings.HasPrefix(strings.ToLower(stem), prefixLower) {
			continue
		}
		id, err := uuid.Parse(stem)
		if err != nil {
			continue
		}
		matches = append(matches, id)
	}

	switch len(matches) {
	case 0:
		return nil, ErrPrefixNotFound
	case 1:
		return s.Load(matches[0])
	default:
		return nil, &ErrAmbiguousPrefix{Prefix: prefix, Count: len(matches)}
	}
}

// List returns every session's summary, sorted by UpdatedAt descending.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var summaries []Summary
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		path := filepath.Join(s.sessionsDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("failed to read session", "file", name, "error", err)
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			s.logger.Warn("failed to parse session", "file", name, "error", err)
			continue
		}
		summaries = append(summaries, sess.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// Delete removes a session's file from disk.
func (s *Store) Delete(id uuid.UUID) error {
	path := s.sessionPath(id)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("stat session: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// WriteCompactionArchive writes a markdown archive of a compacted session
// transcript alongside the session's JSON file, returning the archive path.
func (s *Store) WriteCompactionArchive(sessionID uuid.UUID, compactionNumber uint32, markdown string) (string, error) {
	filename := fmt.Sprintf("%s-compact-%d.md", sessionID, compactionNumber)
	path := filepath.Join(s.sessionsDir, filename)
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("write compaction archive: %w", err)
	}
	return path, nil
}

func (s *Store) sessionPath(id uuid.UUID) string {
	return filepath.Join(s.sessionsDir, id.String()+".json")
}

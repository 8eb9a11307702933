// SPDX-License-Identifier: MIT
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"hummer/internal/log"
)

const fileExt = ".json"

var (
	ErrNotFound  = errors.New("session not found")
	ErrInvalidID = errors.New("invalid session id")
)

// FileStore keeps one JSON document per session in a directory.
type FileStore struct {
	dir string
}

// NewFileStore opens (and creates if needed) the vault directory.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("session store directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the vault directory.
func (st *FileStore) Dir() string {
	return st.dir
}

func (st *FileStore) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(st.dir, id+fileExt), nil
}

// Save writes s, replacing any session with the same ID. The document is
// written to a temporary file first so a crash never leaves half a session.
func (st *FileStore) Save(s *Session) error {
	path, err := st.path(s.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", s.ID, err)
	}

	tmp, err := os.CreateTemp(st.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session %s: %w", s.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session %s: %w", s.ID, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store session %s: %w", s.ID, err)
	}

	log.Debugf("Session: saved %s (%d notes)", s.ID, len(s.Notes))
	return nil
}

// Load reads the session with the given ID.
func (st *FileStore) Load(id string) (*Session, error) {
	path, err := st.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &s, nil
}

// List returns every readable session, newest first. Unreadable documents
// are skipped with a warning.
func (st *FileStore) List() ([]*Session, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var out []*Session
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		s, err := st.Load(strings.TrimSuffix(name, fileExt))
		if err != nil {
			log.Warnf("Session: skipping %s: %v", name, err)
			continue
		}
		out = append(out, s)
	}

	slices.SortStableFunc(out, func(a, b *Session) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out, nil
}

// Delete removes the session with the given ID.
func (st *FileStore) Delete(id string) error {
	path, err := st.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	log.Debugf("Session: deleted %s", id)
	return nil
}

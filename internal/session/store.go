// Package session persists the identity of the logged in user in a small
// JSON file so it survives restarts.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/atinyakov/glbkeeper/internal/models"
)

// FileName is the default name of the session file inside the data directory.
const FileName = "session.json"

// Store keeps the current session in a JSON file. Every read goes to the
// file, so a login or logout in another process is seen immediately.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Save records a logged in session. All fields are replaced in one rename,
// so readers see either the old session or the new one. The last writer wins.
func (s *Store) Save(userID int64, username, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(models.Session{
		UserID:   userID,
		Username: username,
		Role:     role,
		LoggedIn: true,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Clear erases the session. Clearing when nobody is logged in is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// IsLoggedIn reports whether a session has been saved and not cleared since.
func (s *Store) IsLoggedIn() bool {
	sess, ok := s.load()
	return ok && sess.LoggedIn
}

// Role returns the role of the logged in user.
func (s *Store) Role() (string, bool) {
	sess, ok := s.load()
	if !ok || sess.Role == "" {
		return "", false
	}
	return sess.Role, true
}

// Username returns the name of the logged in user.
func (s *Store) Username() (string, bool) {
	sess, ok := s.load()
	if !ok || sess.Username == "" {
		return "", false
	}
	return sess.Username, true
}

// UserID returns the identifier of the logged in user.
func (s *Store) UserID() (int64, bool) {
	sess, ok := s.load()
	if !ok {
		return 0, false
	}
	return sess.UserID, true
}

// load reads the session file. A missing or unreadable file means no session.
func (s *Store) load() (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sess models.Session
	data, err := os.ReadFile(s.path)
	if err != nil {
		return sess, false
	}
	if err := json.Unmarshal(data, &sess); err != nil {
		return sess, false
	}
	return sess, sess.LoggedIn
}

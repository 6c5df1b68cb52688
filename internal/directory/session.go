package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tutorfinder/internal/models"
)

// SessionKey names the persisted session.
const SessionKey = "tutorFinder_currentUser"

// Session is the signed-in user as remembered by the client.
type Session struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// CanManage reports whether the session may edit or delete the provider.
func (s Session) CanManage(p Provider) bool {
	return s.Role == models.RoleAdmin || (p.OwnerID != "" && p.OwnerID == s.ID)
}

// CanList reports whether the session may create provider listings.
func (s Session) CanList() bool {
	return s.Role == models.RoleAdmin || s.Role == models.RoleProvider
}

// SessionStore persists one session as a JSON file. There is no expiry.
type SessionStore struct {
	mu   sync.Mutex
	path string
}

// NewSessionStore stores the session under dir.
func NewSessionStore(dir string) *SessionStore {
	return &SessionStore{path: filepath.Join(dir, SessionKey+".json")}
}

// Path returns the session file location.
func (s *SessionStore) Path() string {
	return s.path
}

// Load returns the stored session, or nil when there is none (guest).
func (s *SessionStore) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", s.path, err)
	}
	return &session, nil
}

// Save replaces the stored session.
func (s *SessionStore) Save(session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear forgets the stored session. Clearing an absent session is not an error.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

package quizcli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Nomankaif/debtprotection-quiz/internal/quiz"
)

// SessionStore keeps the last submit time between runs so the cooldown
// holds across invocations.
type SessionStore struct {
	Path string
}

// DefaultSessionStore places the file in the user cache directory.
func DefaultSessionStore() (*SessionStore, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("locate cache dir: %w", err)
	}
	return &SessionStore{Path: filepath.Join(dir, "debtprotection-quiz", "session.json")}, nil
}

// Load starts a fresh session at now, carrying over the stored
// LastSubmitAt. A missing or unreadable file starts clean.
func (s *SessionStore) Load(now time.Time) *quiz.Session {
	session := quiz.NewSession(now)
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return session
	}
	var stored quiz.Session
	if json.Unmarshal(raw, &stored) == nil {
		session.LastSubmitAt = stored.LastSubmitAt
	}
	return session
}

func (s *SessionStore) Save(session *quiz.Session) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.Path, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

package client

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"kuttalk/internal/models"
	"kuttalk/internal/storage"
)

// Session holds the authenticated identity and the session token every
// outbound action is stamped with. The token is read at send time, so a
// rotation mid-session reaches later frames.
type Session struct {
	store *storage.Store
	log   zerolog.Logger

	mu   sync.Mutex
	user *models.User
	sid  string
}

func NewSession(store *storage.Store, log zerolog.Logger) *Session {
	return &Session{store: store, log: log}
}

// Token returns the current session token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sid
}

func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sid != ""
}

// SetIdentity installs a fresh login and persists it so the next launch
// skips the login form.
func (s *Session) SetIdentity(ctx context.Context, user *models.User, sid string) {
	s.mu.Lock()
	s.user = user
	s.sid = sid
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	saved := &storage.SavedSession{SID: sid, UserID: user.UserID, Nickname: user.Nickname}
	if err := s.store.SaveSession(ctx, saved); err != nil {
		s.log.Warn().Err(err).Msg("persist session failed")
	}
}

// Restore loads the persisted session, if any.
func (s *Session) Restore(ctx context.Context) (*storage.SavedSession, error) {
	if s.store == nil {
		return nil, storage.ErrNoRows
	}
	return s.store.GetSession(ctx)
}

// Clear wipes the identity in memory and on disk.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.sid = ""
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	if err := s.store.DeleteSession(ctx); err != nil {
		s.log.Warn().Err(err).Msg("delete persisted session failed")
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrUnknownIdentity is returned when the provider reports a successful sign-in without an identity.
var ErrUnknownIdentity = errors.New("unknown error occurred: sign-in returned no identity")

// Session tracks the signed-in identity of one provider and owns at most one state listener.
type Session struct {
	provider Provider

	mu          sync.Mutex
	listener    ListenerHandle
	hasListener bool
}

// NewSession wraps provider.
func NewSession(provider Provider) *Session {
	return &Session{provider: provider}
}

// SignInAnonymously returns the current uid when already signed in, otherwise signs in through the provider.
func (s *Session) SignInAnonymously(ctx context.Context) (string, error) {
	if id := s.provider.CurrentIdentity(); id != nil {
		return id.UID, nil
	}

	id, err := s.provider.SignInAnonymously(ctx)
	if err != nil {
		return "", fmt.Errorf("anonymous sign-in failed: %w", err)
	}
	if id == nil {
		return "", ErrUnknownIdentity
	}
	log.Debug().Str("uid", id.UID).Msg("signed in anonymously")
	return id.UID, nil
}

// SignOut signs out through the provider. On error the session stays signed in.
func (s *Session) SignOut(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		return fmt.Errorf("sign-out failed: %w", err)
	}
	return nil
}

// AddAuthStateListener registers fn for every identity change, replacing any previous listener.
func (s *Session) AddAuthStateListener(fn StateListener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasListener {
		s.provider.RemoveStateListener(s.listener)
	}
	s.listener = s.provider.AddStateListener(fn)
	s.hasListener = true
}

// RemoveAuthStateListener unregisters the current listener, if any.
func (s *Session) RemoveAuthStateListener() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasListener {
		return
	}
	s.provider.RemoveStateListener(s.listener)
	s.hasListener = false
}

// CurrentUserID returns the signed-in uid.
func (s *Session) CurrentUserID() (string, bool) {
	id := s.provider.CurrentIdentity()
	if id == nil {
		return "", false
	}
	return id.UID, true
}

// CurrentUser returns the signed-in identity or nil.
func (s *Session) CurrentUser() *Identity {
	return s.provider.CurrentIdentity()
}

// IsAuthenticated reports whether an identity is signed in.
func (s *Session) IsAuthenticated() bool {
	return s.provider.CurrentIdentity() != nil
}

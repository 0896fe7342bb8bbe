package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/identity"
	"github.com/matheus3301/huddle/internal/status"
	"github.com/matheus3301/huddle/internal/store"
	"go.uber.org/zap"
)

// ErrBusy is returned by SignIn when a sign-in is running or a user is
// already signed in.
var ErrBusy = errors.New("already signed in or signing in")

// Hook is notified of session changes. The contact directory and the message
// store implement it.
type Hook interface {
	SignedIn(user store.User) error
	SignedOut() error
}

// Store owns the signed-in user.
type Store struct {
	db      *store.DB
	bus     *bus.Bus
	machine *status.Machine
	auth    identity.Authenticator
	hooks   []Hook
	logger  *zap.Logger

	mu   sync.RWMutex
	user *store.User
}

// New creates a session store. Hooks run in order on sign-in and in reverse
// order on sign-out.
func New(db *store.DB, b *bus.Bus, machine *status.Machine, auth identity.Authenticator, logger *zap.Logger, hooks ...Hook) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:      db,
		bus:     b,
		machine: machine,
		auth:    auth,
		hooks:   hooks,
		logger:  logger,
	}
}

// Current returns the signed-in user.
func (s *Store) Current() (store.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return store.User{}, false
	}
	return *s.user, true
}

// Status returns the sign-in state.
func (s *Store) Status() status.State {
	return s.machine.Current()
}

// Restore signs in the persisted user, if there is a valid one.
func (s *Store) Restore() (store.User, bool) {
	var u store.User
	if err := s.db.Load(store.KeyUser, &u); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("stored user unusable, starting signed out", zap.Error(err))
		}
		return store.User{}, false
	}
	if cur := s.machine.Current(); cur != status.SignedOut {
		s.logger.Warn("restore skipped", zap.String("state", string(cur)))
		return store.User{}, false
	}
	s.activate(u)
	if err := s.machine.Transition(status.SignedIn); err != nil {
		s.logger.Warn("restore transition", zap.Error(err))
	}
	s.bus.Emit(bus.SessionSignedIn, u)
	s.logger.Info("session restored", zap.String("user_id", u.ID))
	return u, true
}

// SignIn runs the identity flow and persists the resulting user. On failure
// the state returns to SIGNED_OUT and the caller may retry.
func (s *Store) SignIn(ctx context.Context) (store.User, error) {
	if err := s.machine.Transition(status.SigningIn); err != nil {
		return store.User{}, ErrBusy
	}

	u, err := s.authenticate(ctx)
	if err == nil {
		err = s.db.Save(store.KeyUser, u)
	}
	if err != nil {
		_ = s.machine.Transition(status.SignedOut)
		s.logger.Warn("sign-in failed", zap.Error(err))
		s.bus.Emit(bus.SessionSignInFailed, err.Error())
		return store.User{}, err
	}

	s.activate(u)
	if err := s.machine.Transition(status.SignedIn); err != nil {
		return store.User{}, err
	}
	s.bus.Emit(bus.SessionSignedIn, u)
	s.logger.Info("signed in", zap.String("user_id", u.ID), zap.String("email", u.Email))
	return u, nil
}

// SignOut clears the user and everything persisted for them in one
// transaction. Calling it while signed out only clears storage.
func (s *Store) SignOut() error {
	s.mu.Lock()
	wasSignedIn := s.user != nil
	s.user = nil
	s.mu.Unlock()

	if wasSignedIn {
		for i := len(s.hooks) - 1; i >= 0; i-- {
			if err := s.hooks[i].SignedOut(); err != nil {
				s.logger.Error("sign-out hook failed", zap.Error(err))
			}
		}
	}

	delErr := s.db.Delete(store.StateKeys...)
	if delErr != nil {
		s.logger.Error("failed to clear session state", zap.Error(delErr))
		s.bus.Emit(bus.StorePersistFailed, bus.PersistFailure{Key: store.KeyUser, Err: delErr})
	}

	if wasSignedIn {
		if err := s.machine.Transition(status.SignedOut); err != nil {
			s.logger.Warn("sign-out transition", zap.Error(err))
		}
		s.bus.Emit(bus.SessionSignedOut, nil)
		s.logger.Info("signed out")
	}
	if delErr != nil {
		return fmt.Errorf("clear session state: %w", delErr)
	}
	return nil
}

func (s *Store) authenticate(ctx context.Context) (store.User, error) {
	events, err := s.auth.Authenticate(ctx)
	if err != nil {
		return store.User{}, fmt.Errorf("%w: %v", identity.ErrSignInFailed, err)
	}
	for evt := range events {
		switch evt.Type {
		case identity.EventAuthorizeURL:
			s.logger.Debug("authorize url issued", zap.String("url", evt.URL))
		case identity.EventAuthenticated:
			if err := store.Validate(evt.User); err != nil {
				return store.User{}, fmt.Errorf("%w: %v", identity.ErrSignInFailed, err)
			}
			return evt.User, nil
		case identity.EventAuthFailed:
			return store.User{}, fmt.Errorf("%w: %s", identity.ErrSignInFailed, evt.Message)
		}
	}
	return store.User{}, identity.ErrSignInFailed
}

// activate sets the user and loads per-user state before the state machine
// reports SIGNED_IN, so observers of that transition see a ready store.
func (s *Store) activate(u store.User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()

	for _, h := range s.hooks {
		if err := h.SignedIn(u); err != nil {
			s.logger.Error("sign-in hook failed", zap.Error(err))
		}
	}
}

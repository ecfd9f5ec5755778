package sessionmock

import (
	"context"
	"maps"
	"sync"

	"github.com/eventbot/dashboard/internal/serviceerr"
	"github.com/eventbot/dashboard/internal/session"
)

type RepositoryOption func(*Repository)

type Repository struct {
	mu       sync.Mutex
	logins   map[string]session.PendingLogin
	sessions map[string]session.Session

	loadLoginErr, storeLoginErr, deleteLoginErr       error
	loadSessionErr, storeSessionErr, deleteSessionErr error
}

func WithPendingLogin(login session.PendingLogin) RepositoryOption {
	return func(r *Repository) { r.logins[login.ID] = login }
}
func WithSession(sess session.Session) RepositoryOption {
	return func(r *Repository) { r.sessions[sess.ID] = sess }
}
func WithLoadPendingLoginError(err error) RepositoryOption {
	return func(r *Repository) { r.loadLoginErr = err }
}
func WithStorePendingLoginError(err error) RepositoryOption {
	return func(r *Repository) { r.storeLoginErr = err }
}
func WithDeletePendingLoginError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteLoginErr = err }
}
func WithLoadSessionError(err error) RepositoryOption {
	return func(r *Repository) { r.loadSessionErr = err }
}
func WithStoreSessionError(err error) RepositoryOption {
	return func(r *Repository) { r.storeSessionErr = err }
}
func WithDeleteSessionError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteSessionErr = err }
}

var _ = session.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		logins:   make(map[string]session.PendingLogin),
		sessions: make(map[string]session.Session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) LoadPendingLogin(_ context.Context, id string) (session.PendingLogin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadLoginErr != nil {
		return session.PendingLogin{}, r.loadLoginErr
	}
	if login, ok := r.logins[id]; ok {
		return login, nil
	}
	return session.PendingLogin{}, serviceerr.ErrNotFound
}

func (r *Repository) StorePendingLogin(_ context.Context, login session.PendingLogin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.storeLoginErr != nil {
		return r.storeLoginErr
	}
	if _, ok := r.logins[login.ID]; ok {
		return serviceerr.ErrConflict
	}
	r.logins[login.ID] = login
	return nil
}

func (r *Repository) DeletePendingLogin(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleteLoginErr != nil {
		return r.deleteLoginErr
	}
	delete(r.logins, id)
	return nil
}

func (r *Repository) LoadSession(_ context.Context, sessionID string) (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadSessionErr != nil {
		return session.Session{}, r.loadSessionErr
	}
	if s, ok := r.sessions[sessionID]; ok {
		return s, nil
	}
	return session.Session{}, serviceerr.ErrNotFound
}

func (r *Repository) StoreSession(_ context.Context, sess session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.storeSessionErr != nil {
		return r.storeSessionErr
	}
	r.sessions[sess.ID] = sess
	return nil
}

func (r *Repository) DeleteSession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleteSessionErr != nil {
		return r.deleteSessionErr
	}
	delete(r.sessions, sessionID)
	return nil
}

// PendingLogins returns a copy of the stored pending logins.
func (r *Repository) PendingLogins() map[string]session.PendingLogin {
	r.mu.Lock()
	defer r.mu.Unlock()

	return maps.Clone(r.logins)
}

// Sessions returns a copy of the stored sessions.
func (r *Repository) Sessions() map[string]session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	return maps.Clone(r.sessions)
}

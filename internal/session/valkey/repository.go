package sessionvalkey

import (
	"context"
	"errors"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/eventbot/dashboard/internal/session"
)

type ObjectType string

const (
	objectTypeSession      ObjectType = "session"
	objectTypePendingLogin ObjectType = "login"
)

var (
	ErrGetPendingLogin    = errors.New("getting pending login from store")
	ErrStorePendingLogin  = errors.New("setting pending login into storage")
	ErrDeletePendingLogin = errors.New("deleting pending login from store")
	ErrGetSession         = errors.New("getting session from store")
	ErrStoreSession       = errors.New("setting session into storage")
	ErrDeleteSession      = errors.New("deleting session from store")
)

type Repository struct {
	store *store
}

var _ = session.Repository(&Repository{})

func NewRepository(valkeyClient valkey.Client, prefix string) *Repository {
	return &Repository{
		store: newStore(valkeyClient, prefix),
	}
}

func (r *Repository) LoadPendingLogin(ctx context.Context, id string) (session.PendingLogin, error) {
	var login session.PendingLogin
	if err := r.store.Get(ctx, objectTypePendingLogin, id, &login); err != nil {
		return session.PendingLogin{}, errors.Join(ErrGetPendingLogin, err)
	}

	return login, nil
}

func (r *Repository) StorePendingLogin(ctx context.Context, login session.PendingLogin) error {
	if err := r.store.Set(ctx, objectTypePendingLogin, login.ID, login, time.Until(login.Expiry)); err != nil {
		return errors.Join(ErrStorePendingLogin, err)
	}

	return nil
}

func (r *Repository) DeletePendingLogin(ctx context.Context, id string) error {
	if err := r.store.Destroy(ctx, objectTypePendingLogin, id); err != nil {
		return errors.Join(ErrDeletePendingLogin, err)
	}

	return nil
}

func (r *Repository) LoadSession(ctx context.Context, sessionID string) (session.Session, error) {
	var s session.Session
	if err := r.store.Get(ctx, objectTypeSession, sessionID, &s); err != nil {
		return session.Session{}, errors.Join(ErrGetSession, err)
	}

	return s, nil
}

func (r *Repository) StoreSession(ctx context.Context, s session.Session) error {
	if err := r.store.Set(ctx, objectTypeSession, s.ID, s, time.Until(s.Expiry)); err != nil {
		return errors.Join(ErrStoreSession, err)
	}

	return nil
}

func (r *Repository) DeleteSession(ctx context.Context, sessionID string) error {
	if err := r.store.Destroy(ctx, objectTypeSession, sessionID); err != nil {
		return errors.Join(ErrDeleteSession, err)
	}

	return nil
}

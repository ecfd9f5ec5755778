package session

import "context"

type Repository interface {
	// Pending login operations
	LoadPendingLogin(ctx context.Context, id string) (PendingLogin, error)
	StorePendingLogin(ctx context.Context, login PendingLogin) error
	DeletePendingLogin(ctx context.Context, id string) error
	// Session operations
	LoadSession(ctx context.Context, sessionID string) (Session, error)
	StoreSession(ctx context.Context, session Session) error
	DeleteSession(ctx context.Context, sessionID string) error
}

package dashboardmock

import (
	"context"
	"slices"
	"sync"

	"github.com/eventbot/dashboard/internal/dashboard"
	"github.com/eventbot/dashboard/internal/spotify"
)

type RepositoryOption func(*Repository)

// Repository records every insert in memory.
type Repository struct {
	mu      sync.Mutex
	artists [][]spotify.Artist
	chatIDs []string

	insertArtistsErr, insertChatIDErr error
}

func WithInsertTopArtistsError(err error) RepositoryOption {
	return func(r *Repository) { r.insertArtistsErr = err }
}

func WithInsertTelegramChatIDError(err error) RepositoryOption {
	return func(r *Repository) { r.insertChatIDErr = err }
}

var _ = dashboard.UserConfigRepository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

func (r *Repository) InsertTopArtists(_ context.Context, artists []spotify.Artist) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.insertArtistsErr != nil {
		return r.insertArtistsErr
	}

	r.artists = append(r.artists, slices.Clone(artists))

	return nil
}

func (r *Repository) InsertTelegramChatID(_ context.Context, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.insertChatIDErr != nil {
		return r.insertChatIDErr
	}

	r.chatIDs = append(r.chatIDs, chatID)

	return nil
}

// TopArtistRows returns the artist lists in insertion order.
func (r *Repository) TopArtistRows() [][]spotify.Artist {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.artists)
}

// ChatIDs returns the chat ids in insertion order.
func (r *Repository) ChatIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.chatIDs)
}

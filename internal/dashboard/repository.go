package dashboard

import (
	"context"

	"github.com/eventbot/dashboard/internal/spotify"
)

// UserConfigRepository persists what the dashboard learns about a user.
type UserConfigRepository interface {
	InsertTopArtists(ctx context.Context, artists []spotify.Artist) error
	InsertTelegramChatID(ctx context.Context, chatID string) error
}

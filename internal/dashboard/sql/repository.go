package dashboardsql

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventbot/dashboard/internal/dashboard"
	"github.com/eventbot/dashboard/internal/spotify"
)

type Repository struct {
	db *pgxpool.Pool
}

var _ = dashboard.UserConfigRepository(&Repository{})

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

// InsertTopArtists inserts one user_config row holding the artists as JSON.
func (r *Repository) InsertTopArtists(ctx context.Context, artists []spotify.Artist) error {
	if artists == nil {
		artists = []spotify.Artist{}
	}

	data, err := json.Marshal(artists)
	if err != nil {
		return fmt.Errorf("marshaling artists: %w", err)
	}

	if _, err := r.db.Exec(ctx, `INSERT INTO user_config (top_artists) VALUES ($1::jsonb);`, string(data)); err != nil {
		return fmt.Errorf("inserting top artists into user_config: %w", err)
	}

	return nil
}

// InsertTelegramChatID inserts one user_config row holding the chat ID.
func (r *Repository) InsertTelegramChatID(ctx context.Context, chatID string) error {
	if _, err := r.db.Exec(ctx, `INSERT INTO user_config (telegram_chat_id) VALUES ($1);`, chatID); err != nil {
		return fmt.Errorf("inserting telegram chat id into user_config: %w", err)
	}

	return nil
}

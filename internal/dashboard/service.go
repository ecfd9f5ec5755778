// Package dashboard loads the connected user's artists and relays them to Telegram.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	slogctx "github.com/veqryn/slog-context"

	"github.com/eventbot/dashboard/internal/serviceerr"
	"github.com/eventbot/dashboard/internal/session"
	"github.com/eventbot/dashboard/internal/spotify"
	"github.com/eventbot/dashboard/internal/telegram"
)

// ErrSessionEnded is returned by Load when Spotify rejected the access token and the session was removed.
var ErrSessionEnded = errors.New("spotify rejected the access token")

type ArtistSource interface {
	TopArtists(ctx context.Context, accessToken string, limit int) ([]spotify.Artist, error)
}

type Notifier interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

type SessionStore interface {
	StoreArtists(ctx context.Context, s session.Session, artists []spotify.Artist) (session.Session, error)
	Logout(ctx context.Context, sessionID, pendingID string) error
}

type Service struct {
	artists  ArtistSource
	notifier Notifier
	sessions SessionStore
	repo     UserConfigRepository
	validate *validator.Validate

	mapArea MapArea
	limit   int
}

func NewService(
	artists ArtistSource,
	notifier Notifier,
	sessions SessionStore,
	repo UserConfigRepository,
	mapArea MapArea,
	limit int,
) *Service {
	if limit <= 0 {
		limit = 5
	}

	return &Service{
		artists:  artists,
		notifier: notifier,
		sessions: sessions,
		repo:     repo,
		validate: validator.New(),
		mapArea:  mapArea,
		limit:    limit,
	}
}

func (s *Service) Map() MapArea {
	return s.mapArea
}

// Load builds the dashboard for the session. A nil session yields the logged-out dashboard.
func (s *Service) Load(ctx context.Context, sess *session.Session) (Dashboard, error) {
	if sess == nil || sess.AccessToken == "" {
		return s.disconnected(), nil
	}

	ctx = slogctx.With(ctx, "syncStatus", SyncStatusSyncing)
	slogctx.Debug(ctx, "Fetching top artists")

	artists, err := s.artists.TopArtists(ctx, sess.AccessToken, s.limit)
	if err != nil {
		var apiErr *spotify.APIError
		if errors.As(err, &apiErr) && apiErr.Unauthorized() {
			slogctx.Info(ctx, "Spotify rejected the access token, ending the session")
			if err := s.sessions.Logout(ctx, sess.ID, ""); err != nil {
				slogctx.Error(ctx, "Failed to delete the session", "error", err)
			}

			return s.disconnected(), ErrSessionEnded
		}

		return Dashboard{}, upstreamError("fetching top artists", err)
	}

	if _, err := s.sessions.StoreArtists(ctx, *sess, artists); err != nil {
		slogctx.Warn(ctx, "Failed to cache the artists on the session", "error", err)
	}

	status := SyncStatusSynced
	if err := s.repo.InsertTopArtists(ctx, artists); err != nil {
		slogctx.Error(ctx, "Failed to persist the top artists", "error", err)
		status = SyncStatusError
	}

	slogctx.Debug(ctx, "Top artists synced", "count", len(artists), "status", status)

	return Dashboard{
		Connected:  true,
		Artists:    artists,
		SyncStatus: status,
		Map:        s.mapArea,
	}, nil
}

// LinkTelegram sends the panel notification to the chat and records the chat ID.
func (s *Service) LinkTelegram(ctx context.Context, sess session.Session, req LinkTelegramRequest) error {
	req.ChatID = strings.TrimSpace(req.ChatID)
	if err := s.validate.Struct(req); err != nil {
		return errors.Join(serviceerr.ErrMissingChatID, err)
	}

	names := make([]string, 0, len(sess.Artists))
	for _, a := range sess.Artists {
		names = append(names, a.Name)
	}

	message := telegram.PanelMessage(s.mapArea.AreaName, names)
	if err := s.notifier.SendMessage(ctx, req.ChatID, message); err != nil {
		return upstreamError("sending telegram message", err)
	}

	if err := s.repo.InsertTelegramChatID(ctx, req.ChatID); err != nil {
		slogctx.Error(ctx, "Failed to persist the telegram chat id", "error", err)
	}

	return nil
}

func (s *Service) disconnected() Dashboard {
	return Dashboard{
		Connected:  false,
		Artists:    []spotify.Artist{},
		SyncStatus: SyncStatusDisconnected,
		Map:        s.mapArea,
	}
}

// upstreamError keeps service errors, such as an open circuit breaker, and maps everything else to upstream_failure.
func upstreamError(action string, err error) error {
	var serviceErr *serviceerr.Error
	if errors.As(err, &serviceErr) {
		return fmt.Errorf("%s: %w", action, err)
	}

	var tgErr *telegram.APIError
	if errors.As(err, &tgErr) {
		return errors.Join(serviceerr.New(serviceerr.CodeUpstreamFailure, tgErr.Description), err)
	}

	var apiErr *spotify.APIError
	if errors.As(err, &apiErr) {
		return errors.Join(serviceerr.New(serviceerr.CodeUpstreamFailure, apiErr.Message), err)
	}

	return errors.Join(serviceerr.New(serviceerr.CodeUpstreamFailure, action+" failed"), err)
}

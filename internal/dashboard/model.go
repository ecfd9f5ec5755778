package dashboard

import "github.com/eventbot/dashboard/internal/spotify"

type SyncStatus string

const (
	SyncStatusDisconnected SyncStatus = "disconnected"
	SyncStatusSyncing      SyncStatus = "syncing"
	SyncStatusSynced       SyncStatus = "synced"
	SyncStatusError        SyncStatus = "error"
)

// Dashboard is the payload rendered by the dashboard page.
type Dashboard struct {
	Connected  bool             `json:"connected"`
	Artists    []spotify.Artist `json:"artists"`
	SyncStatus SyncStatus       `json:"sync_status"`
	Map        MapArea          `json:"map"`
}

// MapArea is the coverage area of the event radar.
type MapArea struct {
	AreaName string     `json:"area_name"`
	Center   [2]float64 `json:"center"` // longitude, latitude
	Zoom     float64    `json:"zoom"`
	Style    string     `json:"style"`
	Token    string     `json:"token,omitempty"`
}

type LinkTelegramRequest struct {
	ChatID string `json:"chat_id" validate:"required"`
}

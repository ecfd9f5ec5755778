package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventbot/dashboard/internal/config"
)

func TestLoadConfig_RepositoryConfig(t *testing.T) {
	var cfg config.Config
	require.NoError(t, commoncfg.LoadConfig(&cfg, nil, "../.."))

	assert.Equal(t, "eventbot-dashboard", cfg.Application.Name)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ClientTimeout)
	assert.Equal(t, "eventbot_dashboard", cfg.Database.Name)
	assert.Equal(t, time.Hour, cfg.Session.SessionDuration)
	assert.Equal(t, "__Host-Http-SESSION", cfg.Session.SessionCookieTemplate.Name)
	assert.Equal(t, config.CookieSameSiteLax, cfg.Session.PendingCookieTemplate.SameSite)
	assert.Equal(t, 31536000, cfg.Session.ConsentCookieTemplate.MaxAge)
	assert.Equal(t, []string{"user-top-read"}, cfg.Spotify.Scopes)
	assert.Equal(t, 5, cfg.Spotify.TopArtistsLimit)
	assert.InDelta(t, -100.3899, cfg.Map.Longitude, 1e-9)

	require.NoError(t, cfg.Session.ParseCSRFSecret())
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()

	minimal := map[string]any{
		"application": map[string]any{"name": "eventbot-dashboard"},
		"spotify": map[string]any{
			"clientID": map[string]any{"source": "embedded", "value": "client-id"},
		},
	}
	data, err := yaml.Marshal(minimal)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o600))

	var cfg config.Config
	require.NoError(t, commoncfg.LoadConfig(&cfg, nil, dir))

	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 30, cfg.HTTP.AuthRateLimit)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 10*time.Minute, cfg.Session.LoginDuration)
	assert.Equal(t, "/", cfg.Session.PostLoginRedirect)
	assert.Equal(t, "https://accounts.spotify.com/authorize", cfg.Spotify.AuthURL)
	assert.Equal(t, "https://api.telegram.org", cfg.Telegram.APIURL)
	assert.Equal(t, "Santiago de Querétaro", cfg.Map.AreaName)
	assert.Equal(t, "embedded", cfg.Migrate.Source)
}

func TestLoadConfig_RoundTrip(t *testing.T) {
	var cfg config.Config
	require.NoError(t, commoncfg.LoadConfig(&cfg, nil, "../.."))

	cfg.HTTP.Address = "unix:///tmp/eventbot-dashboard.sock"
	cfg.Database.Port = "15432"

	cfgMap := make(map[string]any)
	require.NoError(t, mapstructure.Decode(cfg, &cfgMap))

	data, err := yaml.Marshal(cfgMap)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o600))

	var reloaded config.Config
	require.NoError(t, commoncfg.LoadConfig(&reloaded, nil, dir))

	assert.Equal(t, "unix:///tmp/eventbot-dashboard.sock", reloaded.HTTP.Address)
	assert.Equal(t, "15432", reloaded.Database.Port)
}

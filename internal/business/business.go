package business

import (
	"context"
	"fmt"
	"net/http"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"

	otlpaudit "github.com/openkcm/common-sdk/pkg/otlp/audit"
	slogctx "github.com/veqryn/slog-context"

	"github.com/eventbot/dashboard/internal/business/server"
	"github.com/eventbot/dashboard/internal/config"
	"github.com/eventbot/dashboard/internal/dashboard"
	"github.com/eventbot/dashboard/internal/session"
	"github.com/eventbot/dashboard/internal/spotify"
	"github.com/eventbot/dashboard/internal/telegram"

	dashboardsql "github.com/eventbot/dashboard/internal/dashboard/sql"
	sessionvalkey "github.com/eventbot/dashboard/internal/session/valkey"
)

// Main starts the public HTTP API server and blocks until ctx is done.
func Main(ctx context.Context, cfg *config.Config) error {
	err := cfg.Session.ParseCSRFSecret()
	if err != nil {
		return fmt.Errorf("parsing csrf secret: %w", err)
	}

	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return fmt.Errorf("making dsn from config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return fmt.Errorf("parsing pgxpool config: %w", err)
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("initialising pgxpool connection: %w", err)
	}
	defer db.Close()

	valkeyClient, err := newValkeyClient(cfg.ValKey)
	if err != nil {
		return err
	}
	defer valkeyClient.Close()

	httpClient := &http.Client{Timeout: cfg.HTTP.ClientTimeout}

	spotifyClient, err := newSpotifyClient(cfg.Spotify, httpClient)
	if err != nil {
		return err
	}

	telegramClient, err := newTelegramClient(cfg.Telegram, httpClient)
	if err != nil {
		return err
	}

	auditLogger, err := otlpaudit.NewLogger(&cfg.Audit)
	if err != nil {
		return fmt.Errorf("creating audit logger: %w", err)
	}

	sessManager, err := session.NewManager(
		&cfg.Session,
		spotifyClient,
		sessionvalkey.NewRepository(valkeyClient, cfg.ValKey.Prefix),
		auditLogger,
	)
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}

	mapArea, err := loadMapArea(cfg.Map)
	if err != nil {
		return err
	}

	dash := dashboard.NewService(
		spotifyClient,
		telegramClient,
		sessManager,
		dashboardsql.NewRepository(db),
		mapArea,
		cfg.Spotify.TopArtistsLimit,
	)

	slogctx.Info(ctx, "Starting dashboard API", "area", mapArea.AreaName)

	return server.StartHTTPServer(ctx, cfg, sessManager, dash)
}

func newValkeyClient(cfg config.ValKey) (valkey.Client, error) {
	valkeyHost, err := commoncfg.LoadValueFromSourceRef(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := commoncfg.LoadValueFromSourceRef(cfg.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := commoncfg.LoadValueFromSourceRef(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	valkeyOpts := valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	}

	if cfg.SecretRef.Type == commoncfg.MTLSSecretType {
		tlsConfig, err := commoncfg.LoadMTLSConfig(&cfg.SecretRef.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading valkey mTLS config from secret ref: %w", err)
		}

		valkeyOpts.TLSConfig = tlsConfig
	}

	valkeyClient, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return valkeyClient, nil
}

func newSpotifyClient(cfg config.Spotify, httpClient *http.Client) (*spotify.Client, error) {
	clientID, err := commoncfg.LoadValueFromSourceRef(cfg.ClientID)
	if err != nil {
		return nil, fmt.Errorf("loading spotify client id: %w", err)
	}

	return spotify.NewClient(&cfg, string(clientID), httpClient), nil
}

// newTelegramClient tolerates a missing bot token; sending then fails with telegram.ErrMissingBotToken.
func newTelegramClient(cfg config.Telegram, httpClient *http.Client) (*telegram.Client, error) {
	var botToken []byte
	if cfg.BotToken.Source != "" {
		var err error
		botToken, err = commoncfg.LoadValueFromSourceRef(cfg.BotToken)
		if err != nil {
			return nil, fmt.Errorf("loading telegram bot token: %w", err)
		}
	}

	return telegram.NewClient(cfg.APIURL, string(botToken), httpClient), nil
}

func loadMapArea(cfg config.Map) (dashboard.MapArea, error) {
	area := dashboard.MapArea{
		AreaName: cfg.AreaName,
		Center:   [2]float64{cfg.Longitude, cfg.Latitude},
		Zoom:     cfg.Zoom,
		Style:    cfg.Style,
	}

	if cfg.Token.Source != "" {
		token, err := commoncfg.LoadValueFromSourceRef(cfg.Token)
		if err != nil {
			return dashboard.MapArea{}, fmt.Errorf("loading map token: %w", err)
		}

		area.Token = string(token)
	}

	return area, nil
}

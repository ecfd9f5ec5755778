// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP HTTPServer `yaml:"http"`

	Database Database `yaml:"database"`
	ValKey   ValKey   `yaml:"valkey"`
	Migrate  Migrate  `yaml:"migrate"`

	Session  SessionManager `yaml:"session"`
	Spotify  Spotify        `yaml:"spotify"`
	Telegram Telegram       `yaml:"telegram"`
	Map      Map            `yaml:"map"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
	// AllowedOrigins is the list of dashboard origins allowed by CORS.
	AllowedOrigins []string `yaml:"allowedOrigins"`
	// AuthRateLimit is the number of /auth requests allowed per client IP and minute.
	AuthRateLimit int `yaml:"authRateLimit" default:"30"`
	// ClientTimeout bounds every outbound call to Spotify and Telegram.
	ClientTimeout time.Duration `yaml:"clientTimeout" default:"10s"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	SSLMode  string              `yaml:"sslMode" default:"require"`
}

type ValKey struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	User      commoncfg.SourceRef `yaml:"user"`
	Password  commoncfg.SourceRef `yaml:"password"`
	Prefix    string              `yaml:"prefix" default:"eventbot-dashboard"`
	SecretRef commoncfg.SecretRef `yaml:"secretRef"`
}

type Migrate struct {
	// Source is "embedded" for the migrations built into the binary, or file://<dir>.
	Source string `yaml:"source" default:"embedded"`
}

type SessionManager struct {
	// SessionDuration is the lifetime of a connected session.
	SessionDuration time.Duration `yaml:"sessionDuration" default:"1h"`
	// LoginDuration is the lifetime of a pending login between the redirect and the callback.
	LoginDuration time.Duration `yaml:"loginDuration" default:"10m"`
	// CodeGuardDuration is how long an exchanged authorization code stays blocked.
	CodeGuardDuration time.Duration `yaml:"codeGuardDuration" default:"10m"`
	// PostLoginRedirect is where the browser lands after the callback, without the code.
	PostLoginRedirect string              `yaml:"postLoginRedirect" default:"/"`
	CSRFSecret        commoncfg.SourceRef `yaml:"csrfSecret"`

	// CSRFSecretParsed is populated from CSRFSecret when the config is loaded.
	CSRFSecretParsed []byte `yaml:"-"`

	SessionCookieTemplate CookieTemplate `yaml:"sessionCookieTemplate"`
	CSRFCookieTemplate    CookieTemplate `yaml:"csrfCookieTemplate"`
	PendingCookieTemplate CookieTemplate `yaml:"pendingCookieTemplate"`
	ConsentCookieTemplate CookieTemplate `yaml:"consentCookieTemplate"`
}

type Spotify struct {
	ClientID    commoncfg.SourceRef `yaml:"clientID"`
	RedirectURI string              `yaml:"redirectURI" default:"http://localhost:8080/auth/callback"`
	Scopes      []string            `yaml:"scopes" default:"[\"user-top-read\"]"`
	AuthURL     string              `yaml:"authURL" default:"https://accounts.spotify.com/authorize"`
	TokenURL    string              `yaml:"tokenURL" default:"https://accounts.spotify.com/api/token"`
	APIURL      string              `yaml:"apiURL" default:"https://api.spotify.com/v1"`
	// TopArtistsLimit is the number of artists requested from /me/top/artists.
	TopArtistsLimit int `yaml:"topArtistsLimit" default:"5"`
}

type Telegram struct {
	BotToken commoncfg.SourceRef `yaml:"botToken"`
	APIURL   string              `yaml:"apiURL" default:"https://api.telegram.org"`
}

// Map describes the coverage area shown on the dashboard map.
type Map struct {
	AreaName  string              `yaml:"areaName" default:"Santiago de Querétaro"`
	Longitude float64             `yaml:"longitude" default:"-100.3899"`
	Latitude  float64             `yaml:"latitude" default:"20.5888"`
	Zoom      float64             `yaml:"zoom" default:"12"`
	Style     string              `yaml:"style" default:"mapbox://styles/mapbox/dark-v11"`
	Token     commoncfg.SourceRef `yaml:"token"`
}

type CookieSameSite string

const (
	CookieSameSiteNone   CookieSameSite = "None"
	CookieSameSiteLax    CookieSameSite = "Lax"
	CookieSameSiteStrict CookieSameSite = "Strict"
)

// CookieTemplate holds every cookie attribute except the value.
type CookieTemplate struct {
	Name     string         `yaml:"name"`
	MaxAge   int            `yaml:"maxAge"`
	Path     string         `yaml:"path"`
	Domain   string         `yaml:"domain"`
	Secure   bool           `yaml:"secure"`
	SameSite CookieSameSite `yaml:"sameSite"`
	HTTPOnly bool           `yaml:"httpOnly"`
}

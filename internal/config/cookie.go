package config

import (
	"net/http"
	"time"
)

// Mode maps the configured value to net/http. Unknown values leave SameSite unset.
func (s CookieSameSite) Mode() http.SameSite {
	switch s {
	case CookieSameSiteNone:
		return http.SameSiteNoneMode
	case CookieSameSiteLax:
		return http.SameSiteLaxMode
	case CookieSameSiteStrict:
		return http.SameSiteStrictMode
	default:
		return 0
	}
}

// ToCookie fills the template with value.
func (ct *CookieTemplate) ToCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     ct.Name,
		Value:    value,
		MaxAge:   ct.MaxAge,
		Path:     ct.Path,
		Domain:   ct.Domain,
		Secure:   ct.Secure,
		HttpOnly: ct.HTTPOnly,
		SameSite: ct.SameSite.Mode(),
	}
}

// ToExpiredCookie returns a cookie that instructs the browser to drop the cookie.
// Name, Path and Domain must match the issued cookie for the browser to replace it.
func (ct *CookieTemplate) ToExpiredCookie() *http.Cookie {
	c := ct.ToCookie("")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)

	return c
}

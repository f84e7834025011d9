package session

import (
	"net/http"
	"strings"
	"time"
)

const DefaultCookieName = "auth-session"

// CookieConfig defines how the session cookie is issued. The cookie is always HttpOnly.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *CookieConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultCookieName
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteLaxMode
	}
}

// SetCookie writes the raw token to the client, expiring with the session.
func (c CookieConfig) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	c.ApplyDefaults()

	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// ClearCookie removes the session cookie from the client.
func (c CookieConfig) ClearCookie(w http.ResponseWriter) {
	c.ApplyDefaults()

	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// ParseSameSite maps a config string to an http.SameSite mode.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// TokenFromRequest returns the session token carried by r. The cookie wins over an
// Authorization bearer header; fromCookie reports which one was used.
func (c CookieConfig) TokenFromRequest(r *http.Request) (token string, fromCookie bool) {
	c.ApplyDefaults()

	if cookie, err := r.Cookie(c.Name); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token), false
	}

	return "", false
}

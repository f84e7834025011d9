package commands

import (
	"net/http"
	"time"

	"github.com/wolfeidau/clubhub/internal/session"
)

type Globals struct {
	Dev     bool
	Version string
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

// SessionFlags configures the session lifetime policy.
type SessionFlags struct {
	TTL           time.Duration `help:"absolute session lifetime on issue and renewal" default:"720h" env:"CLUBHUB_SESSION_TTL"`
	RenewalWindow time.Duration `help:"renew sessions validated within this long of expiry" default:"360h" env:"CLUBHUB_SESSION_RENEWAL_WINDOW"`
}

func (f *SessionFlags) config() *session.Config {
	return &session.Config{
		AbsoluteTTL:   f.TTL,
		RenewalWindow: f.RenewalWindow,
	}
}

// CookieFlags configures the session cookie.
type CookieFlags struct {
	Name     string `help:"session cookie name" default:"auth-session" env:"CLUBHUB_COOKIE_NAME"`
	Domain   string `help:"session cookie domain" default:"" env:"CLUBHUB_COOKIE_DOMAIN"`
	Secure   bool   `help:"mark the session cookie Secure (enable behind TLS)" default:"true" negatable:"" env:"CLUBHUB_COOKIE_SECURE"`
	SameSite string `help:"session cookie SameSite mode" default:"lax" enum:"lax,strict,none" env:"CLUBHUB_COOKIE_SAME_SITE"`
}

func (f *CookieFlags) config() session.CookieConfig {
	return session.CookieConfig{
		Name:     f.Name,
		Path:     "/",
		Domain:   f.Domain,
		Secure:   f.Secure,
		SameSite: session.ParseSameSite(f.SameSite),
	}
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"filippo.io/csrf"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	httpmiddleware "github.com/wolfeidau/clubhub/internal/http"
	"github.com/wolfeidau/clubhub/internal/logger"
	"github.com/wolfeidau/clubhub/internal/seed"
	"github.com/wolfeidau/clubhub/internal/server"
	"github.com/wolfeidau/clubhub/internal/session"
	"github.com/wolfeidau/clubhub/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ServeCmd struct {
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"CLUBHUB_LISTEN"`
	Cert   string `help:"path to TLS cert file, serves plain HTTP when unset" default:"" env:"CLUBHUB_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"CLUBHUB_TLS_KEY"`

	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"https://localhost" env:"CLUBHUB_CORS_ORIGINS"`
	TrustProxy  bool     `help:"trust X-Forwarded-For and X-Real-IP headers for client IPs" default:"false" env:"CLUBHUB_TRUST_PROXY"`

	PurgeInterval time.Duration `help:"interval between expired session sweeps, 0 disables" default:"1h" env:"CLUBHUB_PURGE_INTERVAL"`
	UsersFile     string        `help:"YAML file of users to import on startup" default:"" env:"CLUBHUB_USERS_FILE"`

	Telemetry       bool    `help:"export traces and metrics over OTLP" default:"false" env:"CLUBHUB_TELEMETRY"`
	TraceSampleRate float64 `help:"fraction of root traces to sample" default:"1.0" env:"CLUBHUB_TRACE_SAMPLE_RATE"`

	ShutdownTimeout time.Duration `help:"grace period for in-flight requests on shutdown" default:"15s"`

	Stores  StoreFlags   `embed:""`
	Session SessionFlags `embed:"" prefix:"session-"`
	Cookie  CookieFlags  `embed:"" prefix:"cookie-"`
}

func (c *ServeCmd) Validate() error {
	if (c.Cert == "") != (c.Key == "") {
		return errors.New("TLS certificate and key must be provided together (--cert and --key)")
	}
	return nil
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log.Info().Str("version", globals.Version).Str("listen", c.Listen).Msg("Starting clubhub server")

	if c.Telemetry {
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			Version:     globals.Version,
			SampleRatio: &c.TraceSampleRate,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
		log.Info().Msg("Telemetry enabled")
	}

	stores, err := c.Stores.Open(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	if c.UsersFile != "" {
		users, err := seed.LoadFile(c.UsersFile)
		if err != nil {
			return err
		}
		if _, err := seed.Import(ctx, stores.Users, users); err != nil {
			return fmt.Errorf("failed to import users: %w", err)
		}
	}

	manager, err := stores.NewManager(c.Session.config())
	if err != nil {
		return fmt.Errorf("invalid session configuration: %w", err)
	}

	if c.PurgeInterval > 0 {
		go runPurger(ctx, manager, c.PurgeInterval)
	}

	srv := server.NewServer(manager, c.Cookie.config())
	mux := srv.Handler()

	corsHandler := withCORS(c.CORSOrigins, mux)
	protection := csrf.New()
	csrfHandler := protection.Handler(mux)

	// API routes get CORS, cookie routes get CSRF
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPIRoute(r.URL.Path) {
			corsHandler.ServeHTTP(w, r)
		} else {
			csrfHandler.ServeHTTP(w, r)
		}
	})

	handler = logger.RequestLogger(log.Logger)(handler)
	handler = httpmiddleware.ClientIPMiddleware(c.TrustProxy)(handler)
	if c.Telemetry {
		handler = otelhttp.NewHandler(handler, "clubhub")
	}

	httpServer := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		if c.Cert != "" {
			if _, err := os.Stat(c.Cert); err != nil {
				errCh <- fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
				return
			}
			log.Info().Str("addr", c.Listen).Msg("Starting HTTPS server")
			errCh <- httpServer.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		log.Info().Str("addr", c.Listen).Msg("Starting HTTP server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

// runPurger sweeps expired sessions until ctx is done. Validation already purges lazily;
// this bounds how long abandoned sessions linger in the store.
func runPurger(ctx context.Context, manager *session.Manager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := manager.PurgeExpired(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to purge expired sessions")
			}
		}
	}
}

// isAPIRoute returns true if the path is an API route that needs CORS instead of CSRF
func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/authz/") ||
		strings.HasPrefix(path, "/clubs/") ||
		path == "/healthz"
}

func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true, // Required for cookie-based authentication
	})
	return middleware.Handler(h)
}

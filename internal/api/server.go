// Package api serves the booking-platform REST surface from an in-memory
// fixture store. It is what the dashboard talks to in development and in
// tests, and it mirrors the envelope quirks of the real backend.
package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/config"
	"github.com/staffdesk/staffdesk/internal/scheduler"
)

// SnapshotScheduler defines the scheduler operations the API needs.
type SnapshotScheduler interface {
	IsScheduled(resource string) bool
	Trigger(resource string) error
	Status() []SnapshotStatus
	IsRunning() bool
}

// SnapshotStatus is an alias for scheduler.SnapshotStatus.
type SnapshotStatus = scheduler.SnapshotStatus

type ctxKey int

const (
	resourceKey ctxKey = iota
	sessionKey
)

// Server represents the fixture HTTP server.
type Server struct {
	cfg         *config.Config
	store       *Store
	scheduler   SnapshotScheduler
	logger      *slog.Logger
	router      chi.Router
	server      *http.Server
	rateLimiter *RateLimiter
}

// NewServer creates a new fixture server. sched may be nil.
func NewServer(cfg *config.Config, store *Store, sched SnapshotScheduler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		cfg:       cfg,
		store:     store,
		scheduler: sched,
		logger:    logger,
	}
	s.router = s.setupRouter()
	return s
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	corsConfig := CORSConfig{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: s.cfg.Server.CORSCredentials,
		MaxAge:           s.cfg.Server.CORSMaxAge,
	}
	if corsConfig.MaxAge == 0 && len(corsConfig.AllowedOrigins) > 0 {
		corsConfig.MaxAge = 86400
	}
	r.Use(CORSMiddleware(corsConfig))

	// 10 req/sec with burst of 20
	s.rateLimiter = NewRateLimiter(10, 20)
	r.Use(RateLimitMiddleware(s.rateLimiter))

	r.Get("/health", s.handleHealth)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.apiKeyMiddleware)
		r.Get("/snapshots", s.handleSnapshotStatus)
		r.Post("/snapshots/{resource}", s.handleTriggerSnapshot)
	})

	r.Route("/{resource}", func(r chi.Router) {
		r.Use(s.resourceMiddleware)
		r.Use(s.sessionMiddleware)

		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Get("/{key}", s.handleListOrGet)
		r.Put("/{key}", s.handleUpdate)
		r.Delete("/{key}", s.handleDelete)
	})

	return r
}

// Start begins listening for HTTP requests.
// Returns an error if the security posture is invalid.
func (s *Server) Start() error {
	if err := s.cfg.Server.ValidateSecure(); err != nil {
		return err
	}

	bindAddr := s.cfg.Server.BindAddr
	if bindAddr == "" {
		bindAddr = "127.0.0.1"
	}
	addr := net.JoinHostPort(bindAddr, strconv.Itoa(s.cfg.Server.APIPort))

	if s.cfg.Server.APIKey == "" && !s.store.HasSessions() {
		s.logger.Warn("fixture server accepts any bearer token; seed sessions or set [server] api_key in config.toml")
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting fixture server", "addr", addr, "resources", len(s.store.Names()))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
	if s.server == nil {
		return nil
	}
	s.logger.Info("shutting down fixture server")
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// loggerMiddleware logs HTTP requests.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// credential returns the token presented in the Authorization or
// X-API-Key header, without any Bearer prefix.
func credential(r *http.Request) string {
	v := r.Header.Get("Authorization")
	if v == "" {
		v = r.Header.Get("X-API-Key")
	}
	if len(v) > 7 && strings.EqualFold(v[:7], "Bearer ") {
		v = v[7:]
	}
	return strings.TrimSpace(v)
}

func (s *Server) isAPIKey(token string) bool {
	key := s.cfg.Server.APIKey
	return key != "" && subtle.ConstantTimeCompare([]byte(token), []byte(key)) == 1
}

// apiKeyMiddleware guards the admin routes with the server API key.
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !s.isAPIKey(credential(r)) {
			s.logger.Warn("unauthorized admin request",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// resourceMiddleware resolves the {resource} URL parameter against the
// catalog.
func (s *Server) resourceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "resource")
		res, ok := catalog.Lookup(name)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "Unknown resource: "+name)
			return
		}
		ctx := context.WithValue(r.Context(), resourceKey, res)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionMiddleware enforces bearer authentication on resources that
// require a token. A seeded session token or the server API key is
// accepted. With neither configured any non-empty token is.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := resourceFrom(r)
		if !res.RequiresToken {
			next.ServeHTTP(w, r)
			return
		}

		token := credential(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "Unauthenticated.")
			return
		}

		user, known := s.store.SessionUser(token)
		switch {
		case known, s.isAPIKey(token):
		case s.cfg.Server.APIKey == "" && !s.store.HasSessions():
		default:
			s.logger.Warn("rejected bearer token",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			writeError(w, http.StatusUnauthorized, "unauthenticated", "Invalid or expired token.")
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func resourceFrom(r *http.Request) catalog.Resource {
	res, _ := r.Context().Value(resourceKey).(catalog.Resource)
	return res
}

// sessionUser returns the user id of the request's session token, or ""
// when the caller authenticated some other way.
func sessionUser(r *http.Request) string {
	user, _ := r.Context().Value(sessionKey).(string)
	return user
}

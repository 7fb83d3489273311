package adapthttp

import (
	"log/slog"
	"net/http"
	"time"

	"weightlog/internal/adapter/auth"
	"weightlog/internal/app"
)

// DeviceNotices reports a pending device login, if any.
type DeviceNotices interface {
	Current() (auth.DeviceNotice, bool)
}

// Server is the driving HTTP adapter that routes requests to the session.
type Server struct {
	session     *app.Session
	logger      *slog.Logger
	metrics     http.Handler
	notices     DeviceNotices
	webDir      string
	authTimeout time.Duration
	unlockWait  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithWebDir serves a single-page app from dir for non-API paths.
func WithWebDir(dir string) Option {
	return func(s *Server) { s.webDir = dir }
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithDeviceNotices exposes pending device logins on the session endpoints.
func WithDeviceNotices(n DeviceNotices) Option {
	return func(s *Server) { s.notices = n }
}

// WithAuthTimeout bounds how long an unlock attempt may stay pending.
func WithAuthTimeout(d time.Duration) Option {
	return func(s *Server) { s.authTimeout = d }
}

// WithUnlockWait sets how long the unlock request waits for a result before
// answering 202 Accepted.
func WithUnlockWait(d time.Duration) Option {
	return func(s *Server) { s.unlockWait = d }
}

// New creates a Server for the given session.
func New(session *app.Session, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		session:     session,
		logger:      logger.With("component", "http"),
		authTimeout: 5 * time.Minute,
		unlockWait:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("GET /session", s.handleSessionState)
	api.HandleFunc("POST /session/unlock", s.handleUnlock)
	api.HandleFunc("POST /session/lock", s.handleLock)

	api.HandleFunc("GET /entries", s.handleListEntries)
	api.HandleFunc("POST /entries", s.handleAddEntry)
	api.HandleFunc("POST /entries/delete", s.handleDeleteEntries)
	api.HandleFunc("GET /entries/{id}", s.handleGetEntry)
	api.HandleFunc("PUT /entries/{id}", s.handleUpdateEntry)
	api.HandleFunc("DELETE /entries/{id}", s.handleDeleteEntry)
	api.HandleFunc("GET /difference", s.handleDifference)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", withNoCache(api)))
	if s.metrics != nil {
		root.Handle("GET /metrics", s.metrics)
	}
	if s.webDir != "" {
		root.Handle("/", withNoCache(spaFromDisk(s.webDir)))
	}

	return s.loggingMiddleware(root)
}

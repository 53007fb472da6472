package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-weather/internal/api"
	"github.com/joeblew999/plat-weather/internal/db"
	"github.com/joeblew999/plat-weather/internal/humastar"
	"github.com/joeblew999/plat-weather/internal/journal"
	"github.com/joeblew999/plat-weather/internal/session"
	"github.com/joeblew999/plat-weather/internal/web"
	"github.com/joeblew999/plat-weather/pkg/weatherclient"
)

// Pages that never open their stream are dropped after this long.
const idleSessionAge = 2 * time.Minute

// Config holds the server configuration.
type Config struct {
	Host       string
	Port       string
	BackendURL string // weather backend serving /api/config and /api/weather/layers
	DataDir    string // journal database location; empty keeps it in memory
	Logger     *zap.Logger
	// StreamGrace keeps a session alive this long after its stream drops so
	// the browser can reconnect. Zero disposes at once.
	StreamGrace time.Duration

	// Backend overrides the HTTP client built from BackendURL.
	Backend session.Backend
}

// Server is the weather map HTTP server.
type Server struct {
	config     Config
	backendURL string
	log        *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
	humaAPI    huma.API
	db         *sql.DB
	sessions   *session.Manager
}

// New creates a new weather map server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	log := cfg.Logger
	mux := http.NewServeMux()

	// Links are derived once routes exist; the transformer reads them per request.
	links := humastar.Links{}

	humaConfig := huma.DefaultConfig("plat-weather API", api.Version)
	humaConfig.Info.Description = "Weather overlay map: layer registry, per-page map sessions and toggle journal."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	humaAPI := humago.New(mux, humaConfig)

	backend, backendURL := cfg.Backend, cfg.BackendURL
	if backend == nil {
		client := weatherclient.New(cfg.BackendURL)
		backend, backendURL = client, client.BaseURL()
	}

	s := &Server{
		config:     cfg,
		backendURL: backendURL,
		log:        log,
		mux:        mux,
		humaAPI:    humaAPI,
	}

	// The journal is optional: without a database toggles are only logged.
	var recorder session.Recorder
	var store *journal.Store
	conn, err := db.Open(db.Config{DataDir: cfg.DataDir, DBName: "weather"})
	if err == nil {
		store, err = journal.New(context.Background(), conn)
	}
	if err != nil {
		log.Warn("journal unavailable", zap.Error(err))
		if conn != nil {
			conn.Close()
		}
	} else {
		s.db = conn
		recorder = store
	}

	s.sessions = session.NewManager(session.ManagerConfig{
		Backend:     backend,
		Recorder:    recorder,
		Logger:      log,
		ClickAction: web.ToggleAction,
	})

	s.routes(store)
	links.Derive(humaAPI, "browser")

	s.handler = cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Datastar-Request"},
		ExposedHeaders: []string{"Link"},
		MaxAge:         300,
	})(s.logRequests(mux))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Sessions returns the live session manager.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close disposes all sessions and closes the journal database.
func (s *Server) Close() error {
	s.sessions.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes(store *journal.Store) {
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(&api.Services{
		Sessions:    s.sessions,
		Journal:     store,
		Logger:      s.log,
		StreamGrace: s.config.StreamGrace,
	}))
	api.NewInfoHandler(s.backendURL, s.config.DataDir, s.db != nil).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db, store).RegisterRoutes(s.humaAPI)

	s.mux.Handle("/static/", http.StripPrefix("/static/", web.Static()))
	s.mux.HandleFunc("/", s.handleRoot)
}

// handleRoot starts a new map session and serves its page.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.sessions.Sweep(idleSessionAge)
	c, err := s.sessions.Create()
	if err != nil {
		s.log.Error("creating session", zap.Error(err))
		http.Error(w, "could not start a map session", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := web.Render(w, c.ID()); err != nil {
		s.log.Error("rendering page", zap.String("session", c.ID()), zap.Error(err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

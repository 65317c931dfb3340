package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/income-trader/internal/config"
	"github.com/aristath/income-trader/internal/database"
	"github.com/aristath/income-trader/internal/modules/optimization"
	"github.com/aristath/income-trader/internal/modules/universe"
)

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	DB      *database.DB
	Config  *config.Config
	DevMode bool
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	db     *database.DB
	cfg    *config.Config
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		db:     cfg.DB,
		cfg:    cfg.Config,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg.Log)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes wires the module handlers onto the router
func (s *Server) setupRoutes(log zerolog.Logger) {
	securityRepo := universe.NewSecurityRepository(s.db.Conn(), log)
	historyDB := universe.NewHistoryDB(s.cfg.HistoryDir, log)
	universeHandlers := universe.NewHandlers(securityRepo, historyDB, s.cfg.SmoothingWindow, log)

	optimizerService := optimization.NewService(log)
	snapshotRepo := optimization.NewSnapshotRepository(s.db.Conn(), log)
	optimizerHandlers := optimization.NewHandler(
		optimizerService,
		securityRepo,
		historyDB,
		snapshotRepo,
		optimization.Defaults{
			Budget:           s.cfg.DefaultBudget,
			MaxConcentration: s.cfg.MaxConcentration,
			SmoothingWindow:  s.cfg.SmoothingWindow,
		},
		log,
	)

	// Health check
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// System
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		// Universe
		r.Route("/securities", func(r chi.Router) {
			r.Get("/", universeHandlers.HandleGetSecurities)
			r.Post("/", universeHandlers.HandleUpsertSecurity)
			r.Get("/{symbol}", universeHandlers.HandleGetSecurity)
			r.Put("/{symbol}/price", universeHandlers.HandleUpdatePrice)
		})

		// Optimizer
		r.Route("/optimizer", func(r chi.Router) {
			r.Get("/", optimizerHandlers.HandleGetStatus)
			r.Post("/run", optimizerHandlers.HandleRun)
			r.Get("/snapshots", optimizerHandlers.HandleListSnapshots)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

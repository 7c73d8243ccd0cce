package services

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/echohire/backend/repository"
	ws "github.com/echohire/backend/websocket"
)

// Server holds all server dependencies
type Server struct {
	config     *Config
	repo       *repository.GORMRepository
	healthPool *pgxpool.Pool

	geminiService     *GeminiService
	elevenLabsService *ElevenLabsService
	audioCache        *AudioCache
	manager           *InterviewManager
	reports           *ReportAggregator

	interviewEndpoints *InterviewEndpoints
	uploadEndpoints    *UploadEndpoints

	wsHub    *ws.Hub
	upgrader websocket.Upgrader
}

// NewServer creates a new server instance
func NewServer(config *Config) *Server {
	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, config.WebSocket.AllowedOrigins)
			},
		},
	}
}

// SetDatabase sets the repository and the pool used by health checks.
func (s *Server) SetDatabase(repo *repository.GORMRepository, healthPool *pgxpool.Pool) {
	s.repo = repo
	s.healthPool = healthPool
}

// InitializeServices wires up AI services, the interview manager and the
// HTTP endpoint handlers.
func (s *Server) InitializeServices() error {
	if s.config.AI.GeminiAPIKey != "" {
		s.geminiService = NewGeminiService(s.config.AI.GeminiAPIKey)
		slog.Info("Gemini service initialized")
	} else {
		slog.Warn("Gemini API key not configured, AI features unavailable")
	}

	s.audioCache = NewAudioCache(s.config.Audio.CacheDir)

	if s.config.AI.ElevenLabsKey != "" {
		s.elevenLabsService = NewElevenLabsService(s.config.AI.ElevenLabsKey, s.config.AI.ElevenLabsVoice, s.audioCache)
		slog.Info("ElevenLabs service initialized", "voice_id", s.config.AI.ElevenLabsVoice)
	} else {
		slog.Warn("ElevenLabs API key not configured, responses will be text-only")
	}

	s.wsHub = ws.NewHub()
	go s.wsHub.Run()

	if s.repo != nil && s.geminiService != nil {
		pipeline := NewScoringPipeline(s.geminiService, s.geminiService)
		var synth SpeechSynthesizer = noopSynthesizer{}
		if s.elevenLabsService != nil {
			synth = s.elevenLabsService
		}

		s.manager = NewInterviewManager(s.repo, s.geminiService, pipeline, synth, s.wsHub)
		s.reports = NewReportAggregator(s.repo)
		s.interviewEndpoints = NewInterviewEndpoints(s.manager, s.reports, s.repo)
		s.uploadEndpoints = NewUploadEndpoints(s.repo, s.geminiService)
		slog.Info("Interview services initialized")
	}

	return nil
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health endpoint
	r.Get("/health", s.healthHandler)

	// API v1 route group
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.apiV1Handler)

		if s.uploadEndpoints != nil {
			s.uploadEndpoints.RegisterRoutes(r)
		}
		if s.interviewEndpoints != nil {
			s.interviewEndpoints.RegisterRoutes(r)
			r.Get("/interviews/{id}/events", s.sessionEventsHandler)
		}
	})

	return r
}

// Start starts the HTTP server
func (s *Server) Start() {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.SetupRoutes(),
	}

	// Graceful shutdown
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}

// CheckOrigin validates the origin of WebSocket connections to prevent
// cross-site hijacking. An empty allow-list denies everything.
func CheckOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	allowedOrigins := strings.Split(allowedOriginsStr, ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	for _, allowed := range allowedOrigins {
		if allowed == origin {
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "not configured"

	if s.healthPool != nil {
		if err := s.healthPool.Ping(r.Context()); err != nil {
			dbStatus = "down"
			status = "degraded"
		} else {
			dbStatus = "up"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"` + status + `","database":"` + dbStatus + `"}`))
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"API v1","version":"1.0.0"}`))
}

// sessionEventsHandler attaches a websocket observer to an interview so a
// monitoring UI can follow answer-by-answer progress live.
func (s *Server) sessionEventsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return
	}

	session, err := s.repo.GetInterviewSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	if session == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err, "session_id", sessionID)
		return
	}

	client := s.wsHub.RegisterObserver(conn, sessionID)
	go client.WritePump()
	go client.ReadPump()

	slog.Info("Session observer connected", "session_id", sessionID, "client_id", client.ID)
}

// noopSynthesizer stands in when no TTS provider is configured; answers
// still flow, text-only.
type noopSynthesizer struct{}

func (noopSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return nil, ErrSynthesisFailure
}

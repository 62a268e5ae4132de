package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-scoreboard/internal/auth"
	"github.com/npezzotti/go-scoreboard/internal/config"
	"github.com/npezzotti/go-scoreboard/internal/credentials"
	"github.com/npezzotti/go-scoreboard/internal/registry"
	"github.com/npezzotti/go-scoreboard/internal/server"
	"github.com/npezzotti/go-scoreboard/internal/stats"
)

type ScoreboardApp struct {
	log            *log.Logger
	mux            *http.Server
	registry       *registry.Registry
	sessions       *auth.SessionManager
	hub            *server.Hub
	store          credentials.Store
	stats          stats.StatsProvider
	allowedOrigins []string
}

func NewScoreboardApp(
	mux *http.ServeMux,
	logger *log.Logger,
	reg *registry.Registry,
	sessions *auth.SessionManager,
	hub *server.Hub,
	store credentials.Store,
	su stats.StatsProvider,
	cfg *config.Config,
) *ScoreboardApp {
	s := &ScoreboardApp{
		log:            logger,
		registry:       reg,
		sessions:       sessions,
		hub:            hub,
		store:          store,
		stats:          su,
		allowedOrigins: cfg.AllowedOrigins,
	}

	for _, metric := range []string{stats.NumRooms, stats.NumParticipants, stats.ScoreUpdates, stats.FailedLogins} {
		su.RegisterMetric(metric)
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)

	mux.HandleFunc("POST /api/admin/login", s.login)
	mux.HandleFunc("POST /api/admin/password", s.adminMiddleware(s.changePassword))
	mux.HandleFunc("POST /api/admin/rooms", s.adminMiddleware(s.createRoom))
	mux.HandleFunc("GET /api/admin/rooms", s.adminMiddleware(s.listRoomsAdmin))
	mux.HandleFunc("DELETE /api/admin/rooms/{roomId}", s.adminMiddleware(s.deleteRoom))

	mux.HandleFunc("GET /api/rooms", s.listRooms)
	mux.HandleFunc("GET /api/rooms/{roomId}", s.getRoom)
	mux.HandleFunc("GET /api/rooms/{roomId}/participants", s.listParticipants)
	mux.HandleFunc("POST /api/rooms/{roomId}/participants", s.joinRoom)

	mux.HandleFunc("PUT /api/participants/{participantId}/score", s.adminMiddleware(s.updateScore))
	mux.HandleFunc("DELETE /api/participants/{participantId}", s.adminMiddleware(s.deleteParticipant))

	mux.HandleFunc("GET /ws/rooms/{roomId}", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", adminTokenHeader}),
	)(mux)

	h = s.errorHandler(h)

	s.mux = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *ScoreboardApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ScoreboardApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

// Package server exposes the chat over HTTP: the REST collaborators, the
// live WebSocket channel, metrics and health.
package server

import (
	"log/slog"
	"net/http"
	"roomchat/domain"
	"roomchat/observability"
	"roomchat/services"
	"roomchat/session"

	"github.com/gorilla/websocket"
)

type Config struct {
	AllowedOrigins []string
	Conn           session.ConnConfig
}

type Server struct {
	log      *slog.Logger
	authn    session.Authenticator
	accounts services.IAuthService
	rooms    services.IRoomService
	admin    services.IAdminService
	sessions *session.Handler
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
	cfg      Config
}

func New(
	log *slog.Logger,
	authn session.Authenticator,
	accounts services.IAuthService,
	rooms services.IRoomService,
	admin services.IAdminService,
	sessions *session.Handler,
	metrics *observability.Metrics,
	cfg Config,
) *Server {
	return &Server{
		log:      log,
		authn:    authn,
		accounts: accounts,
		rooms:    rooms,
		admin:    admin,
		sessions: sessions,
		metrics:  metrics,
		upgrader: makeUpgrader(cfg.AllowedOrigins),
		cfg:      cfg,
	}
}

// Routes builds the full HTTP surface.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /signup", s.signup)
	mux.HandleFunc("POST /admin-signup", s.adminSignup)
	mux.HandleFunc("POST /token", s.login)

	user := func(h http.HandlerFunc) http.Handler { return s.Authenticate(h) }
	admin := func(h http.HandlerFunc) http.Handler {
		return s.Authenticate(RequireRole(domain.RoleAdmin, h))
	}

	mux.Handle("POST /rooms/{$}", user(s.createRoom))
	mux.Handle("GET /rooms/{$}", user(s.listRooms))
	mux.Handle("PUT /rooms/{room_id}", admin(s.updateRoom))
	mux.Handle("DELETE /rooms/{room_id}", admin(s.deleteRoom))
	mux.Handle("GET /rooms/{room_id}/members", user(s.listMembers))

	mux.Handle("GET /admin/users", admin(s.listUsers))
	mux.Handle("POST /admin/promote/{user_id}", admin(s.promote))

	mux.HandleFunc("GET /ws/{room_id}", s.serveWS)

	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return CORS(s.cfg.AllowedOrigins, mux)
}

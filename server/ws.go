package server

import (
	"net/http"
	"roomchat/domain"
	"roomchat/session"
	"strconv"

	"github.com/gorilla/websocket"
)

func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			return originSet[origin]
		},
	}
}

// serveWS upgrades first and authenticates afterwards, so that token and
// room failures reach the client as close codes.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.Atoi(r.PathValue("room_id"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "room_id must be an integer")
		return
	}
	token := r.URL.Query().Get("token")

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("WebSocket upgrade failed", "room_id", roomID, "error", err)
		return
	}
	conn := session.NewConn(ws, s.cfg.Conn, s.log)
	s.sessions.Serve(r.Context(), conn, domain.RoomID(roomID), token)
}

package handlers

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *brackets.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler accepts upgrades from allowedOrigins; "*" allows any
// origin.
func NewWebSocketHandler(hub *brackets.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowAll := slices.Contains(allowedOrigins, "*")
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// ServeBracketWs подписывает пользователя на обновления его собственного прогноза.
func (h *WebSocketHandler) ServeBracketWs(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	h.serve(w, r, brackets.UserRoom(userID))
}

// ServeLeaderboardWs is public.
func (h *WebSocketHandler) ServeLeaderboardWs(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, brackets.RoomLeaderboard)
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже отправил HTTP ошибку клиенту.
		h.logger.WarnContext(r.Context(), "Failed to upgrade websocket connection", slog.String("room", room), slog.Any("error", err))
		return
	}

	client := brackets.NewClient(h.hub, conn, room)
	if !h.hub.Join(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	h.logger.DebugContext(r.Context(), "WebSocket connection upgraded", slog.String("room", room))

	go client.WritePump()
	go client.ReadPump()
}

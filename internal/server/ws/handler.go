package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iudanet/whiteboard/internal/server/auth"
	"github.com/iudanet/whiteboard/pkg/api"
)

// Handler принимает websocket соединения на GET /ws.
// Токен проверяется до апгрейда: неаутентифицированный клиент
// получает обычный HTTP 401 без установки соединения.
type Handler struct {
	logger     *slog.Logger
	hub        *Hub
	authConfig auth.Config
	upgrader   websocket.Upgrader
}

// NewHandler создает websocket handler.
// allowedOrigins задает список разрешенных Origin; пустой список
// или "*" разрешает любые (для локальной разработки).
func NewHandler(logger *slog.Logger, hub *Hub, authConfig auth.Config, allowedOrigins []string) *Handler {
	return &Handler{
		logger:     logger,
		hub:        hub,
		authConfig: authConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	allowedMap := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		allowedMap[origin] = true
	}
	return func(r *http.Request) bool {
		return allowedMap[r.Header.Get("Origin")]
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenString := extractToken(r)
	if tokenString == "" {
		http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.VerifyToken(h.authConfig, tokenString)
	if err != nil {
		h.logger.Warn("Websocket auth failed", "error", err)
		http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам пишет ответ клиенту
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	c := newConn(h.hub, ws, uuid.New().String(), api.SocketUser{
		UserID:    claims.UserID,
		UserName:  claims.UserName,
		UserEmail: claims.UserEmail,
	}, h.logger)

	h.logger.Info("Websocket connected",
		"conn_id", c.id,
		"user_id", c.user.UserID,
		"remote_addr", r.RemoteAddr,
	)

	go c.writePump()
	go c.readPump()
}

// extractToken достает токен из заголовка Authorization или из
// query параметра token (браузерный WebSocket API не умеет
// выставлять заголовки)
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

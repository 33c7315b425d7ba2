package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/whiteboard/pkg/api"
)

const (
	// writeWait время на запись одного сообщения клиенту
	writeWait = 10 * time.Second

	// pongWait максимальное время ожидания pong от клиента.
	// Соединение считается мертвым после двух пропущенных ping интервалов.
	pongWait = 85 * time.Second

	// pingPeriod интервал отправки ping клиенту, должен быть меньше pongWait
	pingPeriod = 25 * time.Second

	// maxMessageSize максимальный размер входящего сообщения
	maxMessageSize = 512 * 1024

	// sendBufferSize размер исходящей очереди соединения.
	// При переполнении соединение закрывается: медленный клиент
	// не должен тормозить рассылку всей комнате.
	sendBufferSize = 256
)

// Conn представляет одно websocket соединение аутентифицированного
// пользователя. Один пользователь может держать несколько соединений
// (несколько вкладок), каждое со своим connection id.
type Conn struct {
	hub    *Hub
	ws     *websocket.Conn
	logger *slog.Logger

	send   chan []byte
	sendMu sync.Mutex
	closed bool

	id   string
	user api.SocketUser

	// joined документы, к которым присоединено это соединение.
	// Защищен мьютексом Hub: membership меняют и read goroutine,
	// и synchronizer (teardown при исчезновении документа).
	joined map[string]bool
}

func newConn(hub *Hub, ws *websocket.Conn, id string, user api.SocketUser, logger *slog.Logger) *Conn {
	return &Conn{
		hub:    hub,
		ws:     ws,
		logger: logger,
		send:   make(chan []byte, sendBufferSize),
		id:     id,
		user:   user,
		joined: make(map[string]bool),
	}
}

// sendEvent сериализует событие и ставит его в исходящую очередь
func (c *Conn) sendEvent(ev *api.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("Failed to marshal event", "event", ev.Event, "error", err)
		return
	}
	c.trySend(data)
}

// trySend неблокирующая отправка в исходящую очередь.
// При переполнении очереди соединение закрывается.
func (c *Conn) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		// Клиент не успевает читать, обрываем соединение
		c.logger.Warn("Send buffer full, dropping connection",
			"conn_id", c.id, "user_id", c.user.UserID)
		c.closed = true
		close(c.send)
		return false
	}
}

// closeSend закрывает исходящую очередь, что завершает write goroutine
func (c *Conn) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump читает сообщения из websocket и диспетчеризует их.
// Завершение read goroutine всегда ведет к полной очистке соединения.
func (c *Conn) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("Unexpected close",
					"conn_id", c.id, "user_id", c.user.UserID, "error", err)
			}
			return
		}
		c.handleMessage(message)
	}
}

// writePump пишет исходящую очередь в websocket и шлет ping по таймеру
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Очередь закрыта, прощаемся с клиентом
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

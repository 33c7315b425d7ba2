package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/whiteboard/internal/server/handlers"
	"github.com/iudanet/whiteboard/internal/server/storage"
	"github.com/iudanet/whiteboard/pkg/api"
)

// presenceSweepInterval период вычистки протухших курсоров
const presenceSweepInterval = 10 * time.Minute

// Hub реестр активных комнат документов.
// Владеет членством соединений в комнатах, жизненным циклом комнат
// и synchronizer'ов. Комната существует, пока в ней есть хотя бы одно
// соединение.
type Hub struct {
	logger  *slog.Logger
	storage storage.DocumentStorage

	mu    sync.Mutex
	rooms map[string]*room

	done chan struct{}
}

// NewHub создает реестр комнат и запускает фоновую вычистку presence
func NewHub(logger *slog.Logger, store storage.DocumentStorage) *Hub {
	h := &Hub{
		logger:  logger,
		storage: store,
		rooms:   make(map[string]*room),
		done:    make(chan struct{}),
	}
	go h.sweepPresence()
	return h
}

// Close останавливает фоновые задачи реестра
func (h *Hub) Close() {
	close(h.done)
}

// sweepPresence периодически удаляет курсоры, не обновлявшиеся
// дольше cursorTTL
func (h *Hub) sweepPresence() {
	ticker := time.NewTicker(presenceSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.mu.Lock()
			for id, rm := range h.rooms {
				if removed := rm.presence.prune(cursorTTL); removed > 0 {
					h.logger.Debug("Pruned stale cursors",
						"document_id", id, "removed", removed)
				}
			}
			h.mu.Unlock()
		case <-h.done:
			return
		}
	}
}

// Join присоединяет соединение к комнате документа.
// Документ должен существовать и быть доступен пользователю на чтение.
// Отправителю уходит join-result, остальным user-joined (только для
// первого соединения пользователя) и обновленный users-online.
func (h *Hub) Join(ctx context.Context, c *Conn, documentID string) {
	doc, err := h.storage.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			c.sendEvent(api.NewEvent(api.EventError, documentID, api.ErrorNotice{
				Code:    api.ErrorCodeNotFound,
				Message: "document not found",
			}))
		} else {
			h.logger.Error("Failed to load document for join",
				"document_id", documentID, "error", err)
			c.sendEvent(api.NewEvent(api.EventError, documentID, api.ErrorNotice{
				Code:    api.ErrorCodePersistence,
				Message: "failed to load document",
			}))
		}
		c.sendEvent(api.NewEvent(api.EventJoinResult, documentID, api.JoinResult{Success: false}))
		return
	}

	if !doc.CanView(c.user.UserID) {
		c.sendEvent(api.NewEvent(api.EventPermissionDenied, documentID, api.ErrorNotice{
			Message: "you do not have access to this document",
		}))
		c.sendEvent(api.NewEvent(api.EventJoinResult, documentID, api.JoinResult{Success: false}))
		return
	}

	h.mu.Lock()
	rm, ok := h.rooms[documentID]
	if !ok {
		rm = newRoom(documentID)
		rm.sync = newSynchronizer(h, h.storage, h.logger, documentID)
		go rm.sync.run()
		h.rooms[documentID] = rm
	}
	firstConn := !rm.hasUser(c.user.UserID)
	rm.conns[c] = struct{}{}
	c.joined[documentID] = true
	users := rm.onlineUsers()
	cursors := rm.presence.Snapshot()
	h.mu.Unlock()

	h.logger.Info("User joined document",
		"document_id", documentID,
		"user_id", c.user.UserID,
		"conn_id", c.id,
		"online", len(users),
	)

	liveCursors := make([]api.CursorUpdate, 0, len(cursors))
	for _, cur := range cursors {
		liveCursors = append(liveCursors, api.CursorUpdate{
			UserID:   cur.UserID,
			UserName: cur.UserName,
			Position: cur.Position,
			Color:    cur.Color,
		})
	}

	apiDoc := handlers.DocumentToAPI(doc)
	c.sendEvent(api.NewEvent(api.EventJoinResult, documentID, api.JoinResult{
		Success:     true,
		Document:    &apiDoc,
		OnlineUsers: users,
		Cursors:     liveCursors,
	}))

	if firstConn {
		h.broadcast(documentID, api.NewEvent(api.EventUserJoined, documentID, c.user), c)
	}
	h.broadcast(documentID, api.NewEvent(api.EventUsersOnline, documentID, api.UsersOnline{Users: users}), nil)
}

// Leave выводит соединение из комнаты документа.
// Когда уходит последнее соединение пользователя, остальным уходит
// user-left и чистится его курсор. Пустая комната удаляется вместе
// с synchronizer'ом.
func (h *Hub) Leave(c *Conn, documentID string) {
	h.mu.Lock()
	delete(c.joined, documentID)
	rm, ok := h.rooms[documentID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(rm.conns, c)

	userGone := !rm.hasUser(c.user.UserID)
	if userGone {
		rm.presence.Remove(c.user.UserID)
	}

	empty := len(rm.conns) == 0
	var users []api.SocketUser
	if empty {
		delete(h.rooms, documentID)
		rm.sync.stop()
	} else {
		users = rm.onlineUsers()
	}
	h.mu.Unlock()

	h.logger.Info("User left document",
		"document_id", documentID,
		"user_id", c.user.UserID,
		"conn_id", c.id,
	)

	if empty {
		return
	}
	if userGone {
		h.broadcast(documentID, api.NewEvent(api.EventUserLeft, documentID, api.UserLeft{UserID: c.user.UserID}), nil)
	}
	h.broadcast(documentID, api.NewEvent(api.EventUsersOnline, documentID, api.UsersOnline{Users: users}), nil)
}

// Disconnect выводит соединение из всех комнат и закрывает исходящую
// очередь. Вызывается при завершении read goroutine.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	documentIDs := make([]string, 0, len(c.joined))
	for documentID := range c.joined {
		documentIDs = append(documentIDs, documentID)
	}
	h.mu.Unlock()

	for _, documentID := range documentIDs {
		h.Leave(c, documentID)
	}
	c.closeSend()
}

// isJoined проверяет членство соединения в комнате документа
func (h *Hub) isJoined(c *Conn, documentID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return c.joined[documentID]
}

// UpdateCursor обновляет позицию курсора пользователя и рассылает
// cursor-moved остальным участникам комнаты
func (h *Hub) UpdateCursor(c *Conn, documentID string, position int, color string) {
	h.mu.Lock()
	rm, ok := h.rooms[documentID]
	if ok {
		rm.presence.Update(c.user.UserID, c.user.UserName, position, color)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	h.broadcast(documentID, api.NewEvent(api.EventCursorMoved, documentID, api.CursorUpdate{
		UserID:   c.user.UserID,
		UserName: c.user.UserName,
		Position: position,
		Color:    color,
	}), c)
}

// enqueueOp передает операцию в очередь synchronizer'а комнаты.
// Лок держится на время неблокирующей отправки: очередь закрывается
// только после удаления комнаты из rooms под тем же локом, поэтому
// отправка в закрытый канал исключена.
func (h *Hub) enqueueOp(documentID string, req opRequest) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[documentID]
	if !ok {
		return false
	}
	return rm.sync.enqueue(req.conn, req.op)
}

// broadcast рассылает событие всем соединениям комнаты, кроме except.
// Отправка неблокирующая: соединение с переполненной очередью
// закрывается и вычищается своим read goroutine.
func (h *Hub) broadcast(documentID string, ev *api.Event, except *Conn) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast event", "event", ev.Event, "error", err)
		return
	}

	h.mu.Lock()
	rm, ok := h.rooms[documentID]
	if !ok {
		h.mu.Unlock()
		return
	}
	conns := make([]*Conn, 0, len(rm.conns))
	for c := range rm.conns {
		if c != except {
			conns = append(conns, c)
		}
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.trySend(data)
	}
}

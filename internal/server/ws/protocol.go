package ws

import (
	"context"
	"encoding/json"

	"github.com/iudanet/whiteboard/internal/models"
	"github.com/iudanet/whiteboard/internal/validation"
	"github.com/iudanet/whiteboard/pkg/api"
)

// handleMessage разбирает входящее сообщение и выполняет его.
// Вызывается только из read goroutine соединения.
func (c *Conn) handleMessage(raw []byte) {
	var ev api.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.sendError("", api.ErrorCodeValidation, "invalid message format")
		return
	}

	if ev.DocumentID == "" {
		c.sendError("", api.ErrorCodeValidation, "document_id is required")
		return
	}

	switch ev.Event {
	case api.EventJoinDocument:
		ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
		defer cancel()
		c.hub.Join(ctx, c, ev.DocumentID)

	case api.EventLeaveDocument:
		if !c.requireJoined(ev.DocumentID) {
			return
		}
		c.hub.Leave(c, ev.DocumentID)

	case api.EventTextOperation:
		if !c.requireJoined(ev.DocumentID) {
			return
		}
		c.handleTextOperation(&ev)

	case api.EventCursorUpdate:
		if !c.requireJoined(ev.DocumentID) {
			return
		}
		c.handleCursorUpdate(&ev)

	case api.EventUserTyping, api.EventUserStoppedTyping:
		if !c.requireJoined(ev.DocumentID) {
			return
		}
		// Индикатор набора текста не хранит состояние на сервере,
		// просто ретранслируется остальным участникам
		c.hub.broadcast(ev.DocumentID, api.NewEvent(ev.Event, ev.DocumentID, api.TypingNotice{
			UserID:   c.user.UserID,
			UserName: c.user.UserName,
		}), c)

	default:
		c.sendError(ev.DocumentID, api.ErrorCodeValidation, "unknown event: "+ev.Event)
	}
}

// requireJoined проверяет, что соединение присоединено к документу.
// События до join-document (или после leave-document) отклоняются.
func (c *Conn) requireJoined(documentID string) bool {
	if c.hub.isJoined(c, documentID) {
		return true
	}
	c.sendError(documentID, api.ErrorCodeNotJoined, "join the document before sending events")
	return false
}

func (c *Conn) handleTextOperation(ev *api.Event) {
	var payload api.TextOperation
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		c.sendError(ev.DocumentID, api.ErrorCodeValidation, "invalid operation payload")
		return
	}

	// UserID всегда берется из аутентифицированного соединения,
	// значение из payload игнорируется
	op := &models.Operation{
		Type:      models.OperationType(payload.Type),
		Position:  payload.Position,
		Content:   payload.Content,
		Length:    payload.Length,
		UserID:    c.user.UserID,
		Timestamp: payload.Timestamp,
	}

	if err := validation.ValidateOperation(op); err != nil {
		c.sendError(ev.DocumentID, api.ErrorCodeValidation, err.Error())
		return
	}

	if !c.hub.enqueueOp(ev.DocumentID, opRequest{conn: c, op: op}) {
		c.sendError(ev.DocumentID, api.ErrorCodePersistence, "document is overloaded, try again")
	}
}

func (c *Conn) handleCursorUpdate(ev *api.Event) {
	var payload api.CursorUpdate
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		c.sendError(ev.DocumentID, api.ErrorCodeValidation, "invalid cursor payload")
		return
	}

	if payload.Position < 0 {
		c.sendError(ev.DocumentID, api.ErrorCodeValidation, "cursor position must be non-negative")
		return
	}

	if payload.Color == "" {
		payload.Color = defaultCursorColor
	}

	c.hub.UpdateCursor(c, ev.DocumentID, payload.Position, payload.Color)
}

// sendError отправляет событие error только отправителю
func (c *Conn) sendError(documentID, code, message string) {
	c.sendEvent(api.NewEvent(api.EventError, documentID, api.ErrorNotice{
		Code:    code,
		Message: message,
	}))
}

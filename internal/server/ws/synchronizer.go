package ws

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iudanet/whiteboard/internal/models"
	"github.com/iudanet/whiteboard/internal/server/storage"
	"github.com/iudanet/whiteboard/internal/validation"
	"github.com/iudanet/whiteboard/pkg/api"
)

const (
	// opQueueSize размер очереди операций одного документа
	opQueueSize = 512

	// applyTimeout лимит на применение одной операции (чтение + запись)
	applyTimeout = 5 * time.Second
)

// opRequest операция вместе с соединением-отправителем
type opRequest struct {
	conn *Conn
	op   *models.Operation
}

// synchronizer сериализует все мутации содержимого одного документа.
// Одна goroutine на документ применяет операции строго в порядке
// поступления: fetch документа, проверка прав, применение к текущему
// содержимому, инкремент версии, сохранение, рассылка. Конкурентные
// операции разных пользователей никогда не применяются к одному и
// тому же снимку содержимого.
type synchronizer struct {
	hub        *Hub
	storage    storage.DocumentStorage
	logger     *slog.Logger
	documentID string
	queue      chan opRequest
}

func newSynchronizer(hub *Hub, store storage.DocumentStorage, logger *slog.Logger, documentID string) *synchronizer {
	return &synchronizer{
		hub:        hub,
		storage:    store,
		logger:     logger,
		documentID: documentID,
		queue:      make(chan opRequest, opQueueSize),
	}
}

// enqueue ставит операцию в очередь применения.
// Возвращает false при переполнении очереди.
func (s *synchronizer) enqueue(c *Conn, op *models.Operation) bool {
	select {
	case s.queue <- opRequest{conn: c, op: op}:
		return true
	default:
		return false
	}
}

// stop закрывает очередь; run дорабатывает оставшиеся операции и выходит
func (s *synchronizer) stop() {
	close(s.queue)
}

func (s *synchronizer) run() {
	for req := range s.queue {
		s.apply(req)
	}
}

// apply применяет одну операцию к документу.
// Документ читается из хранилища заново для каждой операции: права
// доступа и содержимое проверяются по актуальному состоянию, а не по
// снимку на момент join.
func (s *synchronizer) apply(req opRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()

	c := req.conn
	op := req.op

	doc, err := s.storage.GetDocument(ctx, s.documentID)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			// Документ исчез под живой комнатой: сессия отправителя
			// в этой комнате сворачивается
			c.sendEvent(api.NewEvent(api.EventError, s.documentID, api.ErrorNotice{
				Code:    api.ErrorCodeNotFound,
				Message: "document not found",
			}))
			s.hub.Leave(c, s.documentID)
			return
		}
		s.logger.Error("Failed to load document for operation",
			"document_id", s.documentID, "error", err)
		c.sendEvent(api.NewEvent(api.EventError, s.documentID, api.ErrorNotice{
			Code:    api.ErrorCodePersistence,
			Message: "failed to load document",
		}))
		return
	}

	if !doc.CanEdit(op.UserID) {
		c.sendEvent(api.NewEvent(api.EventPermissionDenied, s.documentID, api.ErrorNotice{
			Message: "you do not have permission to edit this document",
		}))
		return
	}

	newContent, err := op.ApplyTo(doc.Content)
	if err != nil {
		// Границы проверяются относительно текущего серверного содержимого;
		// устаревшая клиентская позиция отклоняется без применения
		c.sendEvent(api.NewEvent(api.EventError, s.documentID, api.ErrorNotice{
			Code:    api.ErrorCodeValidation,
			Message: err.Error(),
		}))
		return
	}

	if err := validation.ValidateContent(newContent); err != nil {
		c.sendEvent(api.NewEvent(api.EventError, s.documentID, api.ErrorNotice{
			Code:    api.ErrorCodeValidation,
			Message: err.Error(),
		}))
		return
	}

	doc.Content = newContent
	doc.Version++
	doc.LastModified = time.Now()
	doc.TouchCollaborator(op.UserID)

	if err := s.storage.SaveDocument(ctx, doc); err != nil {
		s.logger.Error("Failed to save document after operation",
			"document_id", s.documentID, "version", doc.Version, "error", err)
		c.sendEvent(api.NewEvent(api.EventError, s.documentID, api.ErrorNotice{
			Code:    api.ErrorCodePersistence,
			Message: "failed to save document",
		}))
		return
	}

	s.logger.Debug("Operation applied",
		"document_id", s.documentID,
		"user_id", op.UserID,
		"type", string(op.Type),
		"version", doc.Version,
	)

	// Примененная операция уходит остальным участникам комнаты;
	// отправитель свое эхо не получает
	s.hub.broadcast(s.documentID, api.NewEvent(api.EventDocumentUpdated, s.documentID, api.TextOperation{
		Type:      string(op.Type),
		Position:  op.Position,
		Content:   op.Content,
		Length:    op.Length,
		UserID:    op.UserID,
		Timestamp: op.Timestamp,
		Version:   doc.Version,
	}), c)
}

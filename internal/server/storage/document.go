package storage

import (
	"context"

	"github.com/iudanet/whiteboard/internal/models"
)

// DocumentStorage определяет интерфейс хранилища документов.
// Реализации: sqlite (основная), boltdb (embedded).
// Для одного документа чтение после записи строго консистентно
// в пределах одного процесса.
type DocumentStorage interface {
	// CreateDocument сохраняет новый документ
	CreateDocument(ctx context.Context, doc *models.Document) error

	// GetDocument возвращает документ по id.
	// Возвращает ErrDocumentNotFound, если документа нет.
	GetDocument(ctx context.Context, id string) (*models.Document, error)

	// SaveDocument перезаписывает существующий документ целиком
	// (содержимое, версию, участников, метаданные).
	// Возвращает ErrDocumentNotFound, если документа нет.
	SaveDocument(ctx context.Context, doc *models.Document) error

	// DeleteDocument удаляет документ.
	// Возвращает ErrDocumentNotFound, если документа нет.
	DeleteDocument(ctx context.Context, id string) error

	// ListUserDocuments возвращает документы, где пользователь владелец
	// или участник, отсортированные по last_modified (новые первыми).
	ListUserDocuments(ctx context.Context, userID string, limit int) ([]*models.Document, error)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/whiteboard/internal/models"
	"github.com/iudanet/whiteboard/internal/server/storage"
)

// CreateDocument сохраняет новый документ вместе со списком участников
func (s *Storage) CreateDocument(ctx context.Context, doc *models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO documents (
			id, title, content, owner_id, owner_name,
			is_public, version, created_at, last_modified
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		doc.ID,
		doc.Title,
		doc.Content,
		doc.OwnerID,
		doc.OwnerName,
		boolToInt(doc.IsPublic),
		doc.Version,
		doc.CreatedAt.Unix(),
		doc.LastModified.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDocumentAlreadyExists
		}
		return fmt.Errorf("failed to insert document: %w", err)
	}

	if err := insertCollaborators(ctx, tx, doc.ID, doc.Collaborators); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetDocument возвращает документ по id вместе с участниками
func (s *Storage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	query := `
		SELECT id, title, content, owner_id, owner_name,
		       is_public, version, created_at, last_modified
		FROM documents
		WHERE id = ?
	`

	var doc models.Document
	var isPublic int
	var createdAt, lastModified int64

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.Title,
		&doc.Content,
		&doc.OwnerID,
		&doc.OwnerName,
		&isPublic,
		&doc.Version,
		&createdAt,
		&lastModified,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.IsPublic = isPublic != 0
	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.LastModified = time.Unix(lastModified, 0)

	collaborators, err := s.getCollaborators(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Collaborators = collaborators

	return &doc, nil
}

// SaveDocument перезаписывает документ целиком.
// Участники заменяются на переданный список (delete + insert в одной транзакции).
func (s *Storage) SaveDocument(ctx context.Context, doc *models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE documents
		SET title = ?, content = ?, owner_id = ?, owner_name = ?,
		    is_public = ?, version = ?, last_modified = ?
		WHERE id = ?
	`

	result, err := tx.ExecContext(ctx, query,
		doc.Title,
		doc.Content,
		doc.OwnerID,
		doc.OwnerName,
		boolToInt(doc.IsPublic),
		doc.Version,
		doc.LastModified.Unix(),
		doc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrDocumentNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_collaborators WHERE document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("failed to delete collaborators: %w", err)
	}

	if err := insertCollaborators(ctx, tx, doc.ID, doc.Collaborators); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteDocument удаляет документ. Участники удаляются каскадно.
func (s *Storage) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrDocumentNotFound
	}

	return nil
}

// ListUserDocuments возвращает документы, где пользователь владелец или участник,
// отсортированные по last_modified (новые первыми)
func (s *Storage) ListUserDocuments(ctx context.Context, userID string, limit int) ([]*models.Document, error) {
	query := `
		SELECT DISTINCT d.id, d.title, d.content, d.owner_id, d.owner_name,
		       d.is_public, d.version, d.created_at, d.last_modified
		FROM documents d
		LEFT JOIN document_collaborators c ON c.document_id = d.id
		WHERE d.owner_id = ? OR c.user_id = ?
		ORDER BY d.last_modified DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, userID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	documents := make([]*models.Document, 0)

	for rows.Next() {
		var doc models.Document
		var isPublic int
		var createdAt, lastModified int64

		if err := rows.Scan(
			&doc.ID,
			&doc.Title,
			&doc.Content,
			&doc.OwnerID,
			&doc.OwnerName,
			&isPublic,
			&doc.Version,
			&createdAt,
			&lastModified,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		doc.IsPublic = isPublic != 0
		doc.CreatedAt = time.Unix(createdAt, 0)
		doc.LastModified = time.Unix(lastModified, 0)

		documents = append(documents, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	// Загружаем участников для каждого документа
	for _, doc := range documents {
		collaborators, err := s.getCollaborators(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		doc.Collaborators = collaborators
	}

	return documents, nil
}

// getCollaborators возвращает участников документа
func (s *Storage) getCollaborators(ctx context.Context, documentID string) ([]models.Collaborator, error) {
	query := `
		SELECT user_id, user_name, user_email, role, joined_at, last_active
		FROM document_collaborators
		WHERE document_id = ?
		ORDER BY joined_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get collaborators: %w", err)
	}
	defer rows.Close()

	collaborators := make([]models.Collaborator, 0)

	for rows.Next() {
		var c models.Collaborator
		var role string
		var joinedAt, lastActive int64

		if err := rows.Scan(&c.UserID, &c.UserName, &c.UserEmail, &role, &joinedAt, &lastActive); err != nil {
			return nil, fmt.Errorf("failed to scan collaborator: %w", err)
		}

		c.Role = models.Role(role)
		c.JoinedAt = time.Unix(joinedAt, 0)
		c.LastActive = time.Unix(lastActive, 0)

		collaborators = append(collaborators, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collaborators: %w", err)
	}

	return collaborators, nil
}

// insertCollaborators вставляет записи участников в рамках транзакции
func insertCollaborators(ctx context.Context, tx *sql.Tx, documentID string, collaborators []models.Collaborator) error {
	query := `
		INSERT INTO document_collaborators (
			document_id, user_id, user_name, user_email, role, joined_at, last_active
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	for _, c := range collaborators {
		if _, err := tx.ExecContext(ctx, query,
			documentID,
			c.UserID,
			c.UserName,
			c.UserEmail,
			string(c.Role),
			c.JoinedAt.Unix(),
			c.LastActive.Unix(),
		); err != nil {
			return fmt.Errorf("failed to insert collaborator: %w", err)
		}
	}

	return nil
}

// isUniqueViolation проверяет ошибку нарушения уникальности первичного ключа
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// modernc.org/sqlite не экспортирует типизированные ошибки,
	// поэтому проверяем по тексту (SQLITE_CONSTRAINT_PRIMARYKEY)
	return strings.Contains(err.Error(), "constraint failed")
}

// boolToInt конвертирует bool в int для SQLite
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

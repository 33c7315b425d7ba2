package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/iudanet/whiteboard/internal/models"
	"github.com/iudanet/whiteboard/internal/server/storage"
)

// CreateDocument сохраняет новый документ
func (s *Storage) CreateDocument(ctx context.Context, doc *models.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketDocuments)

		if bucket.Get([]byte(doc.ID)) != nil {
			return storage.ErrDocumentAlreadyExists
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}

		if err := bucket.Put([]byte(doc.ID), data); err != nil {
			return fmt.Errorf("failed to put document: %w", err)
		}

		return nil
	})
}

// GetDocument возвращает документ по id
func (s *Storage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc *models.Document

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocuments).Get([]byte(id))
		if data == nil {
			return storage.ErrDocumentNotFound
		}

		doc = &models.Document{}
		if err := json.Unmarshal(data, doc); err != nil {
			return fmt.Errorf("failed to unmarshal document: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// SaveDocument перезаписывает существующий документ целиком
func (s *Storage) SaveDocument(ctx context.Context, doc *models.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketDocuments)

		if bucket.Get([]byte(doc.ID)) == nil {
			return storage.ErrDocumentNotFound
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}

		if err := bucket.Put([]byte(doc.ID), data); err != nil {
			return fmt.Errorf("failed to put document: %w", err)
		}

		return nil
	})
}

// DeleteDocument удаляет документ
func (s *Storage) DeleteDocument(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketDocuments)

		if bucket.Get([]byte(id)) == nil {
			return storage.ErrDocumentNotFound
		}

		if err := bucket.Delete([]byte(id)); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}

		return nil
	})
}

// ListUserDocuments возвращает документы, где пользователь владелец или участник.
// BoltDB не поддерживает вторичные индексы, поэтому полный проход по bucket.
func (s *Storage) ListUserDocuments(ctx context.Context, userID string, limit int) ([]*models.Document, error) {
	documents := make([]*models.Document, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).ForEach(func(_, data []byte) error {
			var doc models.Document
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("failed to unmarshal document: %w", err)
			}

			if doc.OwnerID == userID || doc.Collaborator(userID) != nil {
				documents = append(documents, &doc)
			}

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Сортировка по last_modified, новые первыми
	sort.Slice(documents, func(i, j int) bool {
		return documents[i].LastModified.After(documents[j].LastModified)
	})

	if limit > 0 && len(documents) > limit {
		documents = documents[:limit]
	}

	return documents, nil
}

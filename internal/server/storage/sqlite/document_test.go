package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/whiteboard/internal/models"
	"github.com/iudanet/whiteboard/internal/server/storage"
)

// setupTestStorage создает in-memory SQLite хранилище для тестов
func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(context.Background(), ":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func testStorageDocument(id, ownerID string) *models.Document {
	now := time.Now().Truncate(time.Second)
	return &models.Document{
		ID:        id,
		Title:     "Test document",
		Content:   "hello",
		OwnerID:   ownerID,
		OwnerName: "Owner",
		Collaborators: []models.Collaborator{
			{
				UserID:     ownerID,
				UserName:   "Owner",
				UserEmail:  "owner@example.com",
				Role:       models.RoleOwner,
				JoinedAt:   now,
				LastActive: now,
			},
		},
		Version:      0,
		CreatedAt:    now,
		LastModified: now,
	}
}

func TestStorage_CreateAndGetDocument(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	doc := testStorageDocument("doc-1", "owner-1")
	require.NoError(t, s.CreateDocument(ctx, doc))

	got, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)

	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, doc.OwnerID, got.OwnerID)
	assert.Equal(t, doc.Version, got.Version)
	assert.False(t, got.IsPublic)
	require.Len(t, got.Collaborators, 1)
	assert.Equal(t, models.RoleOwner, got.Collaborators[0].Role)
	assert.Equal(t, "owner@example.com", got.Collaborators[0].UserEmail)
}

func TestStorage_CreateDocument_Duplicate(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	doc := testStorageDocument("doc-1", "owner-1")
	require.NoError(t, s.CreateDocument(ctx, doc))

	err := s.CreateDocument(ctx, testStorageDocument("doc-1", "owner-2"))
	assert.ErrorIs(t, err, storage.ErrDocumentAlreadyExists)
}

func TestStorage_GetDocument_NotFound(t *testing.T) {
	s := setupTestStorage(t)

	_, err := s.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrDocumentNotFound)
}

func TestStorage_SaveDocument(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	doc := testStorageDocument("doc-1", "owner-1")
	require.NoError(t, s.CreateDocument(ctx, doc))

	doc.Content = "hello world"
	doc.Version = 1
	doc.IsPublic = true
	doc.LastModified = time.Now().Truncate(time.Second)
	doc.AddCollaborator("editor-1", "Editor", "editor@example.com", models.RoleEditor)

	require.NoError(t, s.SaveDocument(ctx, doc))

	got, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "hello world", got.Content)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, got.IsPublic)
	require.Len(t, got.Collaborators, 2)
}

func TestStorage_SaveDocument_NotFound(t *testing.T) {
	s := setupTestStorage(t)

	doc := testStorageDocument("missing", "owner-1")
	err := s.SaveDocument(context.Background(), doc)
	assert.ErrorIs(t, err, storage.ErrDocumentNotFound)
}

func TestStorage_DeleteDocument(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateDocument(ctx, testStorageDocument("doc-1", "owner-1")))
	require.NoError(t, s.DeleteDocument(ctx, "doc-1"))

	_, err := s.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, storage.ErrDocumentNotFound)

	err = s.DeleteDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, storage.ErrDocumentNotFound)
}

func TestStorage_DeleteDocument_CascadesCollaborators(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	doc := testStorageDocument("doc-1", "owner-1")
	doc.AddCollaborator("editor-1", "Editor", "editor@example.com", models.RoleEditor)
	require.NoError(t, s.CreateDocument(ctx, doc))
	require.NoError(t, s.DeleteDocument(ctx, "doc-1"))

	// Участники удаляются каскадно вместе с документом
	var count int
	err := s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM document_collaborators WHERE document_id = ?`, "doc-1",
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStorage_ListUserDocuments(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	// owner-1 владеет doc-1, участвует в doc-2, не имеет отношения к doc-3
	doc1 := testStorageDocument("doc-1", "owner-1")
	doc1.LastModified = time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, s.CreateDocument(ctx, doc1))

	doc2 := testStorageDocument("doc-2", "owner-2")
	doc2.AddCollaborator("owner-1", "Owner", "owner@example.com", models.RoleEditor)
	require.NoError(t, s.CreateDocument(ctx, doc2))

	doc3 := testStorageDocument("doc-3", "owner-3")
	require.NoError(t, s.CreateDocument(ctx, doc3))

	docs, err := s.ListUserDocuments(ctx, "owner-1", 50)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// сортировка по last_modified, новые первыми
	assert.Equal(t, "doc-2", docs[0].ID)
	assert.Equal(t, "doc-1", docs[1].ID)
}

func TestStorage_ListUserDocuments_Limit(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	for _, id := range []string{"doc-1", "doc-2", "doc-3"} {
		require.NoError(t, s.CreateDocument(ctx, testStorageDocument(id, "owner-1")))
	}

	docs, err := s.ListUserDocuments(ctx, "owner-1", 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

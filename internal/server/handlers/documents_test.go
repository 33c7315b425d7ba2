package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/whiteboard/internal/models"
	"github.com/iudanet/whiteboard/internal/server/storage"
	"github.com/iudanet/whiteboard/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

// mockDocumentStorage in-memory реализация DocumentStorage для тестов
type mockDocumentStorage struct {
	documents map[string]*models.Document
	saveErr   error
}

func newMockDocumentStorage() *mockDocumentStorage {
	return &mockDocumentStorage{documents: make(map[string]*models.Document)}
}

func (m *mockDocumentStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, exists := m.documents[doc.ID]; exists {
		return storage.ErrDocumentAlreadyExists
	}
	m.documents[doc.ID] = doc.Clone()
	return nil
}

func (m *mockDocumentStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, exists := m.documents[id]
	if !exists {
		return nil, storage.ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

func (m *mockDocumentStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, exists := m.documents[doc.ID]; !exists {
		return storage.ErrDocumentNotFound
	}
	m.documents[doc.ID] = doc.Clone()
	return nil
}

func (m *mockDocumentStorage) DeleteDocument(ctx context.Context, id string) error {
	if _, exists := m.documents[id]; !exists {
		return storage.ErrDocumentNotFound
	}
	delete(m.documents, id)
	return nil
}

func (m *mockDocumentStorage) ListUserDocuments(ctx context.Context, userID string, limit int) ([]*models.Document, error) {
	docs := make([]*models.Document, 0)
	for _, doc := range m.documents {
		if doc.OwnerID == userID || doc.Collaborator(userID) != nil {
			docs = append(docs, doc.Clone())
		}
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// requestWithUser добавляет идентичность пользователя в контекст запроса,
// как это делает AuthMiddleware
func requestWithUser(req *http.Request, userID, userName string) *http.Request {
	ctx := context.WithValue(req.Context(), UserIDKey, userID)
	ctx = context.WithValue(ctx, UserNameKey, userName)
	ctx = context.WithValue(ctx, UserEmailKey, userName+"@example.com")
	return req.WithContext(ctx)
}

func seedDocument(m *mockDocumentStorage, id, ownerID string) *models.Document {
	now := time.Now()
	doc := &models.Document{
		ID:        id,
		Title:     "Seeded",
		Content:   "hello",
		OwnerID:   ownerID,
		OwnerName: "Owner",
		Collaborators: []models.Collaborator{
			{UserID: ownerID, UserName: "Owner", Role: models.RoleOwner, JoinedAt: now, LastActive: now},
		},
		CreatedAt:    now,
		LastModified: now,
	}
	m.documents[id] = doc
	return doc
}

func TestDocumentsHandler_Create(t *testing.T) {
	mock := newMockDocumentStorage()
	handler := NewDocumentsHandler(setupTestLogger(), mock)

	body, err := json.Marshal(api.CreateDocumentRequest{Title: "My doc", Content: "hi"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader(body))
	req = requestWithUser(req, "user-1", "Alice")
	w := httptest.NewRecorder()

	handler.Create(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp api.DocumentResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.Equal(t, "My doc", resp.Document.Title)
	assert.Equal(t, "hi", resp.Document.Content)
	assert.Equal(t, "user-1", resp.Document.OwnerID)
	assert.Equal(t, int64(0), resp.Document.Version)
	// создатель становится владельцем-участником
	require.Len(t, resp.Document.Collaborators, 1)
	assert.Equal(t, "owner", resp.Document.Collaborators[0].Role)
}

func TestDocumentsHandler_Create_InvalidTitle(t *testing.T) {
	handler := NewDocumentsHandler(setupTestLogger(), newMockDocumentStorage())

	body, _ := json.Marshal(api.CreateDocumentRequest{Title: "   "})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader(body))
	req = requestWithUser(req, "user-1", "Alice")
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentsHandler_Get_AccessDenied(t *testing.T) {
	mock := newMockDocumentStorage()
	seedDocument(mock, "doc-1", "owner-1")
	handler := NewDocumentsHandler(setupTestLogger(), mock)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1", nil)
	req.SetPathValue("id", "doc-1")
	req = requestWithUser(req, "stranger", "Bob")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDocumentsHandler_Get_PublicDocument(t *testing.T) {
	mock := newMockDocumentStorage()
	doc := seedDocument(mock, "doc-1", "owner-1")
	doc.IsPublic = true
	handler := NewDocumentsHandler(setupTestLogger(), mock)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1", nil)
	req.SetPathValue("id", "doc-1")
	req = requestWithUser(req, "stranger", "Bob")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDocumentsHandler_Get_NotFound(t *testing.T) {
	handler := NewDocumentsHandler(setupTestLogger(), newMockDocumentStorage())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/missing", nil)
	req.SetPathValue("id", "missing")
	req = requestWithUser(req, "user-1", "Alice")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentsHandler_Update(t *testing.T) {
	mock := newMockDocumentStorage()
	seedDocument(mock, "doc-1", "owner-1")
	handler := NewDocumentsHandler(setupTestLogger(), mock)

	newContent := "updated content"
	body, _ := json.Marshal(api.UpdateDocumentRequest{Content: &newContent})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/documents/doc-1", bytes.NewReader(body))
	req.SetPathValue("id", "doc-1")
	req = requestWithUser(req, "owner-1", "Owner")
	w := httptest.NewRecorder()

	handler.Update(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.DocumentResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "updated content", resp.Document.Content)
	// любая мутация увеличивает версию ровно на 1
	assert.Equal(t, int64(1), resp.Document.Version)
	// заголовок не менялся
	assert.Equal(t, "Seeded", resp.Document.Title)
}

func TestDocumentsHandler_Update_PermissionDenied(t *testing.T) {
	mock := newMockDocumentStorage()
	doc := seedDocument(mock, "doc-1", "owner-1")
	doc.AddCollaborator("viewer-1", "Viewer", "viewer@example.com", models.RoleViewer)
	handler := NewDocumentsHandler(setupTestLogger(), mock)

	newContent := "hacked"
	body, _ := json.Marshal(api.UpdateDocumentRequest{Content: &newContent})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/documents/doc-1", bytes.NewReader(body))
	req.SetPathValue("id", "doc-1")
	req = requestWithUser(req, "viewer-1", "Viewer")
	w := httptest.NewRecorder()

	handler.Update(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	// состояние не изменилось
	assert.Equal(t, "hello", mock.documents["doc-1"].Content)
	assert.Equal(t, int64(0), mock.documents["doc-1"].Version)
}

func TestDocumentsHandler_Delete_OnlyOwner(t *testing.T) {
	mock := newMockDocumentStorage()
	doc := seedDocument(mock, "doc-1", "owner-1")
	doc.AddCollaborator("editor-1", "Editor", "editor@example.com", models.RoleEditor)
	handler := NewDocumentsHandler(setupTestLogger(), mock)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doc-1", nil)
	req.SetPathValue("id", "doc-1")
	req = requestWithUser(req, "editor-1", "Editor")
	w := httptest.NewRecorder()

	handler.Delete(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doc-1", nil)
	req.SetPathValue("id", "doc-1")
	req = requestWithUser(req, "owner-1", "Owner")
	w = httptest.NewRecorder()

	handler.Delete(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, mock.documents)
}

func TestDocumentsHandler_AddCollaborator(t *testing.T) {
	mock := newMockDocumentStorage()
	seedDocument(mock, "doc-1", "owner-1")
	handler := NewDocumentsHandler(setupTestLogger(), mock)

	body, _ := json.Marshal(api.AddCollaboratorRequest{
		UserID:    "editor-1",
		UserName:  "Editor",
		UserEmail: "editor@example.com",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-1/collaborators", bytes.NewReader(body))
	req.SetPathValue("id", "doc-1")
	req = requestWithUser(req, "owner-1", "Owner")
	w := httptest.NewRecorder()

	handler.AddCollaborator(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.DocumentResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Document.Collaborators, 2)
	// роль по умолчанию editor
	assert.Equal(t, "editor", resp.Document.Collaborators[1].Role)
}

func TestDocumentsHandler_AddCollaborator_NotOwner(t *testing.T) {
	mock := newMockDocumentStorage()
	doc := seedDocument(mock, "doc-1", "owner-1")
	doc.AddCollaborator("editor-1", "Editor", "editor@example.com", models.RoleEditor)
	handler := NewDocumentsHandler(setupTestLogger(), mock)

	body, _ := json.Marshal(api.AddCollaboratorRequest{UserID: "friend-1"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-1/collaborators", bytes.NewReader(body))
	req.SetPathValue("id", "doc-1")
	req = requestWithUser(req, "editor-1", "Editor")
	w := httptest.NewRecorder()

	handler.AddCollaborator(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDocumentsHandler_List(t *testing.T) {
	mock := newMockDocumentStorage()
	seedDocument(mock, "doc-1", "user-1")
	seedDocument(mock, "doc-2", "someone-else")
	handler := NewDocumentsHandler(setupTestLogger(), mock)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req = requestWithUser(req, "user-1", "Alice")
	w := httptest.NewRecorder()

	handler.List(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.DocumentListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "doc-1", resp.Documents[0].ID)
}

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/whiteboard/internal/models"
	"github.com/iudanet/whiteboard/internal/server/storage"
	"github.com/iudanet/whiteboard/internal/validation"
	"github.com/iudanet/whiteboard/pkg/api"
)

// maxListLimit максимальное количество документов в списке
const maxListLimit = 50

// DocumentsHandler обрабатывает CRUD запросы документов
type DocumentsHandler struct {
	logger  *slog.Logger
	storage storage.DocumentStorage
}

// NewDocumentsHandler создает новый handler для документов
func NewDocumentsHandler(logger *slog.Logger, docStorage storage.DocumentStorage) *DocumentsHandler {
	return &DocumentsHandler{
		logger:  logger,
		storage: docStorage,
	}
}

// Create обрабатывает POST /api/v1/documents
// Создание нового документа; создатель становится владельцем
func (h *DocumentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	userName, _ := GetUserName(ctx)
	userEmail, _ := GetUserEmail(ctx)

	var req api.CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode create request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateTitle(req.Title); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateContent(req.Content); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now()
	doc := &models.Document{
		ID:        uuid.New().String(),
		Title:     req.Title,
		Content:   req.Content,
		OwnerID:   userID,
		OwnerName: userName,
		IsPublic:  req.IsPublic,
		Collaborators: []models.Collaborator{
			{
				UserID:     userID,
				UserName:   userName,
				UserEmail:  userEmail,
				Role:       models.RoleOwner,
				JoinedAt:   now,
				LastActive: now,
			},
		},
		Version:      0,
		CreatedAt:    now,
		LastModified: now,
	}

	if err := h.storage.CreateDocument(ctx, doc); err != nil {
		h.logger.ErrorContext(ctx, "failed to create document", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "document created",
		slog.String("document_id", doc.ID),
		slog.String("owner_id", userID))

	h.sendJSON(w, api.DocumentResponse{Document: DocumentToAPI(doc)}, http.StatusCreated)
}

// List обрабатывает GET /api/v1/documents
// Список документов, где пользователь владелец или участник
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	docs, err := h.storage.ListUserDocuments(ctx, userID, maxListLimit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list documents", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.DocumentListResponse{
		Documents: make([]api.Document, 0, len(docs)),
	}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, DocumentToAPI(doc))
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// Get обрабатывает GET /api/v1/documents/{id}
// Требует права просмотра
func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	doc, found := h.getDocument(w, r)
	if !found {
		return
	}

	if !doc.CanView(userID) {
		h.logger.WarnContext(ctx, "view access denied",
			slog.String("document_id", doc.ID),
			slog.String("user_id", userID))
		h.sendError(w, "access denied", http.StatusForbidden)
		return
	}

	h.sendJSON(w, api.DocumentResponse{Document: DocumentToAPI(doc)}, http.StatusOK)
}

// Update обрабатывает PUT /api/v1/documents/{id}
// Обновление заголовка, содержимого или публичности; требует права редактирования.
// Обновление содержимого через REST — грубый путь в обход очереди операций;
// версия при этом увеличивается на 1, как и для любой мутации.
func (h *DocumentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode update request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	doc, found := h.getDocument(w, r)
	if !found {
		return
	}

	if !doc.CanEdit(userID) {
		h.logger.WarnContext(ctx, "edit access denied",
			slog.String("document_id", doc.ID),
			slog.String("user_id", userID))
		h.sendError(w, "you do not have permission to edit this document", http.StatusForbidden)
		return
	}

	if req.Title != nil {
		if err := validation.ValidateTitle(*req.Title); err != nil {
			h.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		doc.Title = *req.Title
	}
	if req.Content != nil {
		if err := validation.ValidateContent(*req.Content); err != nil {
			h.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		doc.Content = *req.Content
	}
	if req.IsPublic != nil {
		doc.IsPublic = *req.IsPublic
	}

	doc.Version++
	doc.LastModified = time.Now()
	doc.TouchCollaborator(userID)

	if err := h.storage.SaveDocument(ctx, doc); err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			h.sendError(w, "document not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to save document", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "document updated",
		slog.String("document_id", doc.ID),
		slog.String("user_id", userID),
		slog.Int64("version", doc.Version))

	h.sendJSON(w, api.DocumentResponse{Document: DocumentToAPI(doc)}, http.StatusOK)
}

// Delete обрабатывает DELETE /api/v1/documents/{id}
// Удалять документ может только владелец
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	doc, found := h.getDocument(w, r)
	if !found {
		return
	}

	if doc.OwnerID != userID {
		h.sendError(w, "only the owner can delete this document", http.StatusForbidden)
		return
	}

	if err := h.storage.DeleteDocument(ctx, doc.ID); err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			h.sendError(w, "document not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to delete document", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "document deleted",
		slog.String("document_id", doc.ID),
		slog.String("user_id", userID))

	w.WriteHeader(http.StatusNoContent)
}

// AddCollaborator обрабатывает POST /api/v1/documents/{id}/collaborators
// Добавлять участников может только владелец
func (h *DocumentsHandler) AddCollaborator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.AddCollaboratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode collaborator request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserID == "" {
		h.sendError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	role := models.RoleEditor
	if req.Role != "" {
		role = models.Role(req.Role)
		if err := validation.ValidateRole(role); err != nil {
			h.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	// Второго владельца быть не может
	if role == models.RoleOwner {
		h.sendError(w, "document already has an owner", http.StatusBadRequest)
		return
	}

	doc, found := h.getDocument(w, r)
	if !found {
		return
	}

	if doc.OwnerID != userID {
		h.sendError(w, "only the owner can add collaborators", http.StatusForbidden)
		return
	}

	if len(doc.Collaborators) >= validation.MaxCollaborators {
		h.sendError(w, "collaborator limit reached", http.StatusBadRequest)
		return
	}

	if added := doc.AddCollaborator(req.UserID, req.UserName, req.UserEmail, role); added {
		doc.LastModified = time.Now()
		if err := h.storage.SaveDocument(ctx, doc); err != nil {
			h.logger.ErrorContext(ctx, "failed to save document", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}

	h.logger.InfoContext(ctx, "collaborator added",
		slog.String("document_id", doc.ID),
		slog.String("collaborator_id", req.UserID),
		slog.String("role", string(role)))

	h.sendJSON(w, api.DocumentResponse{Document: DocumentToAPI(doc)}, http.StatusOK)
}

// getDocument извлекает id из пути и загружает документ.
// При ошибке пишет ответ и возвращает found=false.
func (h *DocumentsHandler) getDocument(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	ctx := r.Context()

	id := r.PathValue("id")
	if id == "" {
		h.sendError(w, "document id is required", http.StatusBadRequest)
		return nil, false
	}

	doc, err := h.storage.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			h.sendError(w, "document not found", http.StatusNotFound)
			return nil, false
		}
		h.logger.ErrorContext(ctx, "failed to get document", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}

	return doc, true
}

// DocumentToAPI конвертирует документ в API представление
func DocumentToAPI(doc *models.Document) api.Document {
	collaborators := make([]api.Collaborator, 0, len(doc.Collaborators))
	for _, c := range doc.Collaborators {
		collaborators = append(collaborators, api.Collaborator{
			UserID:     c.UserID,
			UserName:   c.UserName,
			UserEmail:  c.UserEmail,
			Role:       string(c.Role),
			JoinedAt:   c.JoinedAt,
			LastActive: c.LastActive,
		})
	}

	return api.Document{
		ID:            doc.ID,
		Title:         doc.Title,
		Content:       doc.Content,
		OwnerID:       doc.OwnerID,
		OwnerName:     doc.OwnerName,
		Collaborators: collaborators,
		Version:       doc.Version,
		IsPublic:      doc.IsPublic,
		CreatedAt:     doc.CreatedAt,
		LastModified:  doc.LastModified,
	}
}

// sendJSON отправляет JSON ответ
func (h *DocumentsHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h *DocumentsHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	h.sendJSON(w, resp, statusCode)
}

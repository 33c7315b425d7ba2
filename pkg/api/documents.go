package api

import "time"

// Collaborator представляет участника документа в API ответах
type Collaborator struct {
	JoinedAt   time.Time `json:"joined_at"`   // время добавления в документ
	LastActive time.Time `json:"last_active"` // время последней активности
	UserID     string    `json:"user_id"`     // UUID пользователя
	UserName   string    `json:"user_name"`   // отображаемое имя
	UserEmail  string    `json:"user_email"`  // email пользователя
	Role       string    `json:"role"`        // роль: owner, editor, viewer
}

// Document представляет документ в API ответах
type Document struct {
	CreatedAt     time.Time      `json:"created_at"`    // время создания
	LastModified  time.Time      `json:"last_modified"` // время последнего изменения
	ID            string         `json:"id"`            // UUID документа
	Title         string         `json:"title"`         // заголовок
	Content       string         `json:"content"`       // текущее содержимое
	OwnerID       string         `json:"owner_id"`      // UUID владельца
	OwnerName     string         `json:"owner_name"`    // имя владельца
	Collaborators []Collaborator `json:"collaborators"` // список участников
	Version       int64          `json:"version"`       // монотонная версия содержимого
	IsPublic      bool           `json:"is_public"`     // доступен ли документ всем на чтение
}

// CreateDocumentRequest представляет запрос на создание документа
type CreateDocumentRequest struct {
	Title    string `json:"title"`              // заголовок (обязательный)
	Content  string `json:"content,omitempty"`  // начальное содержимое
	IsPublic bool   `json:"is_public,omitempty"`
}

// UpdateDocumentRequest представляет запрос на обновление документа.
// Поля-указатели: nil означает "не менять".
type UpdateDocumentRequest struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	IsPublic *bool   `json:"is_public,omitempty"`
}

// AddCollaboratorRequest представляет запрос на добавление участника
type AddCollaboratorRequest struct {
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	Role      string `json:"role,omitempty"` // по умолчанию editor
}

// DocumentResponse представляет ответ с одним документом
type DocumentResponse struct {
	Document Document `json:"document"`
	Message  string   `json:"message,omitempty"`
}

// DocumentListResponse представляет ответ со списком документов пользователя
type DocumentListResponse struct {
	Documents []Document `json:"documents"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

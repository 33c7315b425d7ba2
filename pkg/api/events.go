package api

import "encoding/json"

// Имена событий websocket протокола.
// client -> server
const (
	EventJoinDocument      = "join-document"
	EventLeaveDocument     = "leave-document"
	EventTextOperation     = "text-operation"
	EventCursorUpdate      = "cursor-update"
	EventUserTyping        = "user-typing"
	EventUserStoppedTyping = "user-stopped-typing"
)

// server -> client
const (
	EventJoinResult       = "join-result"
	EventUsersOnline      = "users-online"
	EventUserJoined       = "user-joined"
	EventUserLeft         = "user-left"
	EventDocumentUpdated  = "document-updated"
	EventCursorMoved      = "cursor-moved"
	EventPermissionDenied = "permission-denied"
	EventError            = "error"
)

// Коды ошибок для события EventError (см. таксономию ошибок сервиса)
const (
	ErrorCodeNotFound    = "not_found"
	ErrorCodeValidation  = "validation"
	ErrorCodeNotJoined   = "not_joined"
	ErrorCodePersistence = "persistence"
)

// Event представляет конверт websocket сообщения.
// Data интерпретируется в зависимости от Event.
type Event struct {
	Event      string          `json:"event"`
	DocumentID string          `json:"document_id,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// NewEvent собирает конверт с сериализованным payload.
// Ошибка маршалинга payload — программная ошибка, поэтому паника.
func NewEvent(event, documentID string, payload any) *Event {
	e := &Event{
		Event:      event,
		DocumentID: documentID,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			panic("api: failed to marshal event payload: " + err.Error())
		}
		e.Data = data
	}
	return e
}

// SocketUser представляет пользователя, подключенного к документу
type SocketUser struct {
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// TextOperation представляет позиционную операцию над текстом документа.
// Version заполняется сервером после успешного применения
// (равна новой версии документа).
type TextOperation struct {
	Type      string `json:"type"`                // insert или delete
	Position  int    `json:"position"`            // смещение в текущем содержимом
	Content   string `json:"content,omitempty"`   // вставляемый текст (insert)
	Length    int    `json:"length,omitempty"`    // количество удаляемых символов (delete)
	UserID    string `json:"user_id,omitempty"`   // автор (заполняется сервером)
	Timestamp int64  `json:"timestamp,omitempty"` // клиентское время создания (unix millis)
	Version   int64  `json:"version,omitempty"`   // версия документа после применения
}

// CursorUpdate представляет позицию курсора пользователя
type CursorUpdate struct {
	UserID   string `json:"user_id,omitempty"`   // заполняется сервером
	UserName string `json:"user_name,omitempty"` // заполняется сервером
	Position int    `json:"position"`
	Color    string `json:"color,omitempty"`
}

// JoinResult представляет ответ на join-document.
// Cursors содержит живые курсоры уже присутствующих участников,
// чтобы клиент мог отрисовать их сразу после подключения.
type JoinResult struct {
	Document    *Document      `json:"document,omitempty"`
	Message     string         `json:"message,omitempty"`
	OnlineUsers []SocketUser   `json:"online_users,omitempty"`
	Cursors     []CursorUpdate `json:"cursors,omitempty"`
	Success     bool           `json:"success"`
}

// UsersOnline представляет текущий список пользователей комнаты
type UsersOnline struct {
	Users []SocketUser `json:"users"`
}

// TypingNotice представляет индикатор набора текста
type TypingNotice struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
}

// UserLeft представляет уведомление об уходе пользователя из комнаты
type UserLeft struct {
	UserID string `json:"user_id"`
}

// ErrorNotice представляет ошибку, адресованную только отправителю
type ErrorNotice struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

package models

import (
	"errors"
	"time"
)

// Role определяет роль участника документа
type Role string

const (
	// RoleOwner владелец документа, полный доступ
	RoleOwner Role = "owner"
	// RoleEditor может читать и изменять содержимое
	RoleEditor Role = "editor"
	// RoleViewer может только читать
	RoleViewer Role = "viewer"
)

// IsValid проверяет, что роль одна из известных
func (r Role) IsValid() bool {
	return r == RoleOwner || r == RoleEditor || r == RoleViewer
}

// CanEdit возвращает true, если роль дает право изменять содержимое
func (r Role) CanEdit() bool {
	return r == RoleOwner || r == RoleEditor
}

// Collaborator представляет участника документа
type Collaborator struct {
	JoinedAt   time.Time `json:"joined_at"`   // время добавления в документ
	LastActive time.Time `json:"last_active"` // время последней активности
	UserID     string    `json:"user_id"`     // UUID пользователя
	UserName   string    `json:"user_name"`   // отображаемое имя
	UserEmail  string    `json:"user_email"`  // email пользователя
	Role       Role      `json:"role"`        // роль участника
}

// Document представляет документ совместного редактирования.
// Version строго возрастает на 1 при каждой успешно примененной
// мутирующей операции; Content и Version всегда меняются вместе.
type Document struct {
	CreatedAt     time.Time      `json:"created_at"`
	LastModified  time.Time      `json:"last_modified"`
	ID            string         `json:"id"`      // UUID документа
	Title         string         `json:"title"`   // заголовок
	Content       string         `json:"content"` // каноническое содержимое
	OwnerID       string         `json:"owner_id"`
	OwnerName     string         `json:"owner_name"`
	Collaborators []Collaborator `json:"collaborators"`
	Version       int64          `json:"version"`
	IsPublic      bool           `json:"is_public"`
}

// Collaborator возвращает запись участника по userID или nil
func (d *Document) Collaborator(userID string) *Collaborator {
	for i := range d.Collaborators {
		if d.Collaborators[i].UserID == userID {
			return &d.Collaborators[i]
		}
	}
	return nil
}

// CanView проверяет право пользователя читать документ:
// публичный документ, владелец или любой участник.
// Чистая функция над текущим состоянием документа, без side effects.
func (d *Document) CanView(userID string) bool {
	if d.IsPublic {
		return true
	}
	if d.OwnerID == userID {
		return true
	}
	return d.Collaborator(userID) != nil
}

// CanEdit проверяет право пользователя изменять содержимое:
// владелец или участник с ролью editor/owner.
func (d *Document) CanEdit(userID string) bool {
	if d.OwnerID == userID {
		return true
	}
	c := d.Collaborator(userID)
	return c != nil && c.Role.CanEdit()
}

// AddCollaborator добавляет участника, если его еще нет.
// Возвращает true, если список изменился.
func (d *Document) AddCollaborator(userID, userName, userEmail string, role Role) bool {
	if d.Collaborator(userID) != nil {
		return false
	}
	now := time.Now()
	d.Collaborators = append(d.Collaborators, Collaborator{
		UserID:     userID,
		UserName:   userName,
		UserEmail:  userEmail,
		Role:       role,
		JoinedAt:   now,
		LastActive: now,
	})
	return true
}

// RemoveCollaborator удаляет участника из списка.
// Возвращает true, если участник был найден и удален.
func (d *Document) RemoveCollaborator(userID string) bool {
	for i := range d.Collaborators {
		if d.Collaborators[i].UserID == userID {
			d.Collaborators = append(d.Collaborators[:i], d.Collaborators[i+1:]...)
			return true
		}
	}
	return false
}

// TouchCollaborator обновляет время последней активности участника
func (d *Document) TouchCollaborator(userID string) {
	if c := d.Collaborator(userID); c != nil {
		c.LastActive = time.Now()
	}
}

// Clone создает глубокую копию документа
func (d *Document) Clone() *Document {
	clone := *d
	clone.Collaborators = make([]Collaborator, len(d.Collaborators))
	copy(clone.Collaborators, d.Collaborators)
	return &clone
}

// Cursor представляет живую позицию курсора пользователя в документе.
// Эфемерное состояние: не персистится, вытесняется по TTL.
type Cursor struct {
	LastUpdated time.Time `json:"last_updated"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	Color       string    `json:"color"`
	Position    int       `json:"position"`
}

// OperationType тип позиционной операции над текстом
type OperationType string

const (
	// OpInsert вставка текста по смещению
	OpInsert OperationType = "insert"
	// OpDelete удаление length символов начиная со смещения
	OpDelete OperationType = "delete"
)

// Ошибки применения операции к содержимому
var (
	// ErrPositionOutOfRange позиция операции вне границ текущего содержимого
	ErrPositionOutOfRange = errors.New("operation position out of range")

	// ErrLengthOutOfRange длина удаления выходит за границы содержимого
	ErrLengthOutOfRange = errors.New("operation length out of range")

	// ErrUnknownOperation неизвестный тип операции
	ErrUnknownOperation = errors.New("unknown operation type")
)

// Operation представляет позиционную операцию над каноническим содержимым.
// Позиция всегда интерпретируется относительно серверного содержимого
// в момент применения, без трансформации под локальное состояние клиента.
type Operation struct {
	Type      OperationType `json:"type"`
	Content   string        `json:"content,omitempty"` // для insert
	UserID    string        `json:"user_id"`
	Position  int           `json:"position"`
	Length    int           `json:"length,omitempty"` // для delete
	Timestamp int64         `json:"timestamp"`        // клиентское время (unix millis)
}

// ApplyTo применяет операцию к содержимому и возвращает результат.
// Позиции считаются в рунах, чтобы сплайс не разрывал многобайтовые символы.
// Содержимое не меняется при ошибке границ.
func (op *Operation) ApplyTo(content string) (string, error) {
	runes := []rune(content)

	if op.Position < 0 || op.Position > len(runes) {
		return "", ErrPositionOutOfRange
	}

	switch op.Type {
	case OpInsert:
		result := make([]rune, 0, len(runes)+len([]rune(op.Content)))
		result = append(result, runes[:op.Position]...)
		result = append(result, []rune(op.Content)...)
		result = append(result, runes[op.Position:]...)
		return string(result), nil
	case OpDelete:
		if op.Length < 0 || op.Position+op.Length > len(runes) {
			return "", ErrLengthOutOfRange
		}
		result := make([]rune, 0, len(runes)-op.Length)
		result = append(result, runes[:op.Position]...)
		result = append(result, runes[op.Position+op.Length:]...)
		return string(result), nil
	default:
		return "", ErrUnknownOperation
	}
}

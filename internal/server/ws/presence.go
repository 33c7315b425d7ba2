package ws

import (
	"sync"
	"time"

	"github.com/iudanet/whiteboard/internal/models"
)

const (
	// cursorTTL время жизни позиции курсора без обновлений.
	// Протухшие курсоры вычищаются периодическим sweep'ом.
	cursorTTL = time.Hour

	// defaultCursorColor цвет курсора, если клиент не прислал свой
	defaultCursorColor = "#007bff"
)

// presenceTracker хранит живые позиции курсоров пользователей комнаты.
// Состояние эфемерное: не персистится и теряется при рестарте.
// Для каждого пользователя хранится последняя позиция (last write wins
// по времени поступления).
type presenceTracker struct {
	mu      sync.Mutex
	cursors map[string]*models.Cursor
}

func newPresenceTracker() *presenceTracker {
	return &presenceTracker{
		cursors: make(map[string]*models.Cursor),
	}
}

// Update записывает новую позицию курсора пользователя
func (p *presenceTracker) Update(userID, userName string, position int, color string) *models.Cursor {
	p.mu.Lock()
	defer p.mu.Unlock()

	cursor := &models.Cursor{
		UserID:      userID,
		UserName:    userName,
		Position:    position,
		Color:       color,
		LastUpdated: time.Now(),
	}
	p.cursors[userID] = cursor
	return cursor
}

// Remove удаляет курсор пользователя (при уходе из комнаты)
func (p *presenceTracker) Remove(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.cursors, userID)
}

// Snapshot возвращает копии всех живых курсоров комнаты
func (p *presenceTracker) Snapshot() []models.Cursor {
	p.mu.Lock()
	defer p.mu.Unlock()

	cursors := make([]models.Cursor, 0, len(p.cursors))
	for _, c := range p.cursors {
		cursors = append(cursors, *c)
	}
	return cursors
}

// prune удаляет курсоры, не обновлявшиеся дольше ttl.
// Возвращает количество удаленных записей.
func (p *presenceTracker) prune(ttl time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	removed := 0
	for userID, c := range p.cursors {
		if now.Sub(c.LastUpdated) > ttl {
			delete(p.cursors, userID)
			removed++
		}
	}
	return removed
}

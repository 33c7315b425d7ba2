package ws

import "github.com/iudanet/whiteboard/pkg/api"

// room представляет множество соединений, присоединенных к одному
// документу, вместе с живым состоянием присутствия и очередью операций.
// Комната создается лениво при первом join и удаляется, когда
// последнее соединение уходит. Membership защищен мьютексом Hub.
type room struct {
	documentID string
	conns      map[*Conn]struct{}
	presence   *presenceTracker
	sync       *synchronizer
}

func newRoom(documentID string) *room {
	return &room{
		documentID: documentID,
		conns:      make(map[*Conn]struct{}),
		presence:   newPresenceTracker(),
	}
}

// hasUser проверяет, есть ли в комнате хотя бы одно соединение пользователя
func (r *room) hasUser(userID string) bool {
	for c := range r.conns {
		if c.user.UserID == userID {
			return true
		}
	}
	return false
}

// onlineUsers возвращает список пользователей комнаты.
// Пользователь с несколькими соединениями входит в список один раз.
func (r *room) onlineUsers() []api.SocketUser {
	seen := make(map[string]bool, len(r.conns))
	users := make([]api.SocketUser, 0, len(r.conns))
	for c := range r.conns {
		if seen[c.user.UserID] {
			continue
		}
		seen[c.user.UserID] = true
		users = append(users, c.user)
	}
	return users
}

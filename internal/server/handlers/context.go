package handlers

import "context"

// contextKey тип для ключей контекста
type contextKey string

const (
	// UserIDKey ключ для хранения user_id в контексте
	UserIDKey contextKey = "user_id"
	// UserNameKey ключ для хранения имени пользователя в контексте
	UserNameKey contextKey = "user_name"
	// UserEmailKey ключ для хранения email пользователя в контексте
	UserEmailKey contextKey = "user_email"
)

// GetUserID извлекает user_id из контекста запроса
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUserName извлекает имя пользователя из контекста запроса
func GetUserName(ctx context.Context) (string, bool) {
	userName, ok := ctx.Value(UserNameKey).(string)
	return userName, ok
}

// GetUserEmail извлекает email пользователя из контекста запроса
func GetUserEmail(ctx context.Context) (string, bool) {
	userEmail, ok := ctx.Value(UserEmailKey).(string)
	return userEmail, ok
}

package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iudanet/whiteboard/internal/models"
)

const (
	// MaxTitleLen максимальная длина заголовка документа
	MaxTitleLen = 200
	// MaxContentLen максимальный размер содержимого документа (в рунах)
	MaxContentLen = 1_000_000
	// MaxCollaborators максимальное количество участников документа
	MaxCollaborators = 100
	// MaxOperationLen максимальный размер одной insert операции (в рунах)
	MaxOperationLen = 100_000
)

// ValidateTitle проверяет заголовок документа.
// Заголовок обязателен, не длиннее MaxTitleLen символов.
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return fmt.Errorf("title cannot be empty")
	}

	if utf8.RuneCountInString(trimmed) > MaxTitleLen {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLen)
	}

	return nil
}

// ValidateContent проверяет размер содержимого документа
func ValidateContent(content string) error {
	if utf8.RuneCountInString(content) > MaxContentLen {
		return fmt.Errorf("document content must not exceed %d characters", MaxContentLen)
	}

	return nil
}

// ValidateRole проверяет, что роль участника известна
func ValidateRole(role models.Role) error {
	if !role.IsValid() {
		return fmt.Errorf("role must be one of: owner, editor, viewer")
	}

	return nil
}

// ValidateOperation проверяет форму операции до ее постановки в очередь
// применения. Границы относительно текущего содержимого проверяются
// позже, в момент применения операции.
func ValidateOperation(op *models.Operation) error {
	if op == nil {
		return fmt.Errorf("operation is required")
	}

	if op.Position < 0 {
		return fmt.Errorf("operation position must be non-negative")
	}

	switch op.Type {
	case models.OpInsert:
		if op.Content == "" {
			return fmt.Errorf("insert operation requires content")
		}
		if utf8.RuneCountInString(op.Content) > MaxOperationLen {
			return fmt.Errorf("insert content must not exceed %d characters", MaxOperationLen)
		}
	case models.OpDelete:
		if op.Length <= 0 {
			return fmt.Errorf("delete operation requires positive length")
		}
	default:
		return fmt.Errorf("operation type must be insert or delete")
	}

	return nil
}

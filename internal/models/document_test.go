package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument() *Document {
	return &Document{
		ID:      "doc-1",
		Title:   "Test",
		Content: "hello",
		OwnerID: "owner-1",
		Collaborators: []Collaborator{
			{UserID: "owner-1", Role: RoleOwner},
			{UserID: "editor-1", Role: RoleEditor},
			{UserID: "viewer-1", Role: RoleViewer},
		},
	}
}

func TestDocument_CanView(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		isPublic bool
		expected bool
	}{
		{name: "owner", userID: "owner-1", expected: true},
		{name: "editor collaborator", userID: "editor-1", expected: true},
		{name: "viewer collaborator", userID: "viewer-1", expected: true},
		{name: "stranger on private doc", userID: "stranger", expected: false},
		{name: "stranger on public doc", userID: "stranger", isPublic: true, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testDocument()
			doc.IsPublic = tt.isPublic
			assert.Equal(t, tt.expected, doc.CanView(tt.userID))
		})
	}
}

func TestDocument_CanEdit(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		isPublic bool
		expected bool
	}{
		{name: "owner", userID: "owner-1", expected: true},
		{name: "editor collaborator", userID: "editor-1", expected: true},
		{name: "viewer collaborator", userID: "viewer-1", expected: false},
		{name: "stranger", userID: "stranger", expected: false},
		// публичность дает только чтение
		{name: "stranger on public doc", userID: "stranger", isPublic: true, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testDocument()
			doc.IsPublic = tt.isPublic
			assert.Equal(t, tt.expected, doc.CanEdit(tt.userID))
		})
	}
}

func TestDocument_AddCollaborator(t *testing.T) {
	doc := testDocument()

	added := doc.AddCollaborator("new-user", "New User", "new@example.com", RoleEditor)
	assert.True(t, added)
	require.NotNil(t, doc.Collaborator("new-user"))
	assert.Equal(t, RoleEditor, doc.Collaborator("new-user").Role)

	// повторное добавление не дублирует запись
	added = doc.AddCollaborator("new-user", "New User", "new@example.com", RoleViewer)
	assert.False(t, added)
	assert.Equal(t, RoleEditor, doc.Collaborator("new-user").Role)
	assert.Len(t, doc.Collaborators, 4)
}

func TestDocument_RemoveCollaborator(t *testing.T) {
	doc := testDocument()

	assert.True(t, doc.RemoveCollaborator("editor-1"))
	assert.Nil(t, doc.Collaborator("editor-1"))
	assert.Len(t, doc.Collaborators, 2)

	assert.False(t, doc.RemoveCollaborator("unknown"))
}

func TestDocument_Clone(t *testing.T) {
	original := testDocument()
	clone := original.Clone()

	require.Equal(t, original, clone)

	// изменение клона не трогает оригинал
	clone.Content = "changed"
	clone.Collaborators[0].Role = RoleViewer

	assert.Equal(t, "hello", original.Content)
	assert.Equal(t, RoleOwner, original.Collaborators[0].Role)
}

func TestOperation_ApplyTo_Insert(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		op       *Operation
		expected string
		wantErr  error
	}{
		{
			name:     "insert into empty content",
			content:  "",
			op:       &Operation{Type: OpInsert, Position: 0, Content: "hi"},
			expected: "hi",
		},
		{
			name:     "insert at end",
			content:  "hi",
			op:       &Operation{Type: OpInsert, Position: 2, Content: "!"},
			expected: "hi!",
		},
		{
			name:     "insert in the middle",
			content:  "hlo",
			op:       &Operation{Type: OpInsert, Position: 1, Content: "el"},
			expected: "hello",
		},
		{
			name:    "insert past end",
			content: "hi",
			op:      &Operation{Type: OpInsert, Position: 3, Content: "x"},
			wantErr: ErrPositionOutOfRange,
		},
		{
			name:    "negative position",
			content: "hi",
			op:      &Operation{Type: OpInsert, Position: -1, Content: "x"},
			wantErr: ErrPositionOutOfRange,
		},
		{
			// позиции считаются в рунах, не в байтах
			name:     "insert after multibyte runes",
			content:  "привет",
			op:       &Operation{Type: OpInsert, Position: 6, Content: "!"},
			expected: "привет!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op.ApplyTo(tt.content)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestOperation_ApplyTo_Delete(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		op       *Operation
		expected string
		wantErr  error
	}{
		{
			name:     "delete from start",
			content:  "hello",
			op:       &Operation{Type: OpDelete, Position: 0, Length: 2},
			expected: "llo",
		},
		{
			name:     "delete from end",
			content:  "hello",
			op:       &Operation{Type: OpDelete, Position: 3, Length: 2},
			expected: "hel",
		},
		{
			name:     "delete everything",
			content:  "hello",
			op:       &Operation{Type: OpDelete, Position: 0, Length: 5},
			expected: "",
		},
		{
			name:    "delete past end",
			content: "hello",
			op:      &Operation{Type: OpDelete, Position: 4, Length: 2},
			wantErr: ErrLengthOutOfRange,
		},
		{
			name:    "negative length",
			content: "hello",
			op:      &Operation{Type: OpDelete, Position: 0, Length: -1},
			wantErr: ErrLengthOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op.ApplyTo(tt.content)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestOperation_ApplyTo_UnknownType(t *testing.T) {
	op := &Operation{Type: "retain", Position: 0}
	_, err := op.ApplyTo("hello")
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/whiteboard/internal/models"
)

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{name: "valid title", title: "Meeting notes", wantErr: false},
		{name: "empty title", title: "", wantErr: true},
		{name: "whitespace only", title: "   ", wantErr: true},
		{name: "max length", title: strings.Repeat("a", MaxTitleLen), wantErr: false},
		{name: "too long", title: strings.Repeat("a", MaxTitleLen+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTitle(tt.title)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRole(t *testing.T) {
	assert.NoError(t, ValidateRole(models.RoleOwner))
	assert.NoError(t, ValidateRole(models.RoleEditor))
	assert.NoError(t, ValidateRole(models.RoleViewer))
	assert.Error(t, ValidateRole(models.Role("admin")))
	assert.Error(t, ValidateRole(models.Role("")))
}

func TestValidateOperation(t *testing.T) {
	tests := []struct {
		name    string
		op      *models.Operation
		wantErr bool
	}{
		{
			name:    "valid insert",
			op:      &models.Operation{Type: models.OpInsert, Position: 0, Content: "hi"},
			wantErr: false,
		},
		{
			name:    "valid delete",
			op:      &models.Operation{Type: models.OpDelete, Position: 3, Length: 2},
			wantErr: false,
		},
		{
			name:    "nil operation",
			op:      nil,
			wantErr: true,
		},
		{
			name:    "negative position",
			op:      &models.Operation{Type: models.OpInsert, Position: -1, Content: "hi"},
			wantErr: true,
		},
		{
			name:    "insert without content",
			op:      &models.Operation{Type: models.OpInsert, Position: 0},
			wantErr: true,
		},
		{
			name:    "delete with zero length",
			op:      &models.Operation{Type: models.OpDelete, Position: 0},
			wantErr: true,
		},
		{
			name:    "delete with negative length",
			op:      &models.Operation{Type: models.OpDelete, Position: 0, Length: -5},
			wantErr: true,
		},
		{
			name:    "unknown type",
			op:      &models.Operation{Type: "retain", Position: 0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOperation(tt.op)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

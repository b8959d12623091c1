package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected Role
		ok       bool
	}{
		{"user", RoleUser, true},
		{"editor", RoleEditor, true},
		{"admin", RoleAdmin, true},
		{"Admin", Role("Admin"), false},
		{"", Role(""), false},
		{"superuser", Role("superuser"), false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role, ok := Parse(tt.input)
			assert.Equal(t, tt.expected, role)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestRole_In(t *testing.T) {
	assert.True(t, RoleAdmin.In(Staff...))
	assert.True(t, RoleEditor.In(Staff...))
	assert.False(t, RoleUser.In(Staff...))
	assert.False(t, RoleEditor.In(RoleAdmin))
}

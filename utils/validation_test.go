package utils

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type assertBody struct {
	Key       string `validate:"required,identifier"`
	Operation string `validate:"omitempty,oneof=write delete"`
	Version   int64  `validate:"gte=0"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		assert.NoError(t, ValidateStruct(&assertBody{Key: "w-1", Operation: "write"}))
	})

	t.Run("missing required field", func(t *testing.T) {
		err := ValidateStruct(&assertBody{})
		assert.True(t, IsValidationError(err))
		assert.Equal(t, "Key is required", GetValidationFields(err)["Key"])
	})

	t.Run("identifier tag", func(t *testing.T) {
		err := ValidateStruct(&assertBody{Key: "../etc/passwd"})
		assert.Equal(t, "Key must be a valid identifier", GetValidationFields(err)["Key"])
	})

	t.Run("oneof and gte", func(t *testing.T) {
		err := ValidateStruct(&assertBody{Key: "k", Operation: "purge", Version: -1})
		fields := GetValidationFields(err)
		assert.Equal(t, "Operation must be one of: write delete", fields["Operation"])
		assert.Equal(t, "Version must be greater than or equal to 0", fields["Version"])
	})
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		value   string
		wantErr string
	}{
		{"admins", ""},
		{"admin_audit", ""},
		{"user@example.org", ""},
		{"550e8400-e29b-41d4-a716-446655440000", ""},
		{"", "key is required"},
		{"_leading", "key must be a valid identifier"},
		{"has space", "key must be a valid identifier"},
		{"a/b", "key must be a valid identifier"},
		{strings.Repeat("k", 256), "key must be a valid identifier"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := ValidateIdentifier(tt.value, "key")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestValidationErrorHelpers(t *testing.T) {
	err := &ValidationError{Message: "Validation failed", Fields: map[string]string{"Key": "Key is required"}}
	assert.Equal(t, "Validation failed", err.Error())
	assert.True(t, IsValidationError(err))
	assert.False(t, IsValidationError(errors.New("plain")))
	assert.Nil(t, GetValidationFields(errors.New("plain")))
}

package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsz/skyfleet/models"
)

type testStruct struct {
	Name  string  `json:"name" validate:"required"`
	Email string  `json:"email" validate:"required,email"`
	Age   int     `json:"age" validate:"gte=0,lte=150"`
	Date  string  `json:"date" validate:"omitempty,isodate"`
	Kind  string  `json:"kind" validate:"omitempty,oneof=a b"`
	Score float64 `validate:"gte=0"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		s := testStruct{Name: "John Doe", Email: "john@example.com", Age: 30, Date: "2024-05-01", Kind: "a"}
		assert.NoError(t, ValidateStruct(&s))
	})

	t.Run("fields reported by json name", func(t *testing.T) {
		s := testStruct{Email: "invalid-email", Age: 30, Score: -1}

		err := ValidateStruct(&s)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Equal(t, MsgValidationFailed, err.Error())

		fields := GetValidationFields(err)
		assert.Equal(t, "name is required", fields["name"])
		assert.Equal(t, "email must be a valid email", fields["email"])
		assert.Contains(t, fields, "Score")
	})

	t.Run("isodate", func(t *testing.T) {
		s := testStruct{Name: "x", Email: "x@example.com", Date: "05/01/2024"}

		fields := GetValidationFields(ValidateStruct(&s))
		assert.Equal(t, "date must be a date (YYYY-MM-DD)", fields["date"])

		s.Date = "2024-05-01T10:00:00Z"
		assert.NoError(t, ValidateStruct(&s))
	})

	t.Run("oneof", func(t *testing.T) {
		s := testStruct{Name: "x", Email: "x@example.com", Kind: "c"}

		fields := GetValidationFields(ValidateStruct(&s))
		assert.Equal(t, "kind must be one of: a b", fields["kind"])
	})
}

func TestValidateStruct_NestedPaths(t *testing.T) {
	pilot := models.Pilot{
		Name:    "Alice",
		Email:   "alice@example.com",
		Contact: "555-0100",
		Certifications: []models.Certification{
			{Type: "Part 107", Issued: "2023-01-01", Expires: "soon"},
		},
	}

	fields := GetValidationFields(ValidateStruct(&pilot))
	assert.Contains(t, fields, "certifications[0].expires")
}

func TestNewFieldError(t *testing.T) {
	err := NewFieldError("pilotId", "pilotId must reference your own pilot profile")

	assert.True(t, IsValidationError(err))
	assert.Equal(t, map[string]string{"pilotId": "pilotId must reference your own pilot profile"}, GetValidationFields(err))
}

func TestGetValidationFields_NotValidation(t *testing.T) {
	assert.Nil(t, GetValidationFields(errors.New("regular")))
	assert.False(t, IsValidationError(errors.New("regular")))
}

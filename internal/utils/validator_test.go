// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleInput struct {
	Username string `validate:"required,username"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,strong_password"`
}

func TestValidateStruct(t *testing.T) {
	valid := sampleInput{
		Username: "seller_01",
		Email:    "seller@example.com",
		Password: "Sup3rSecret!",
	}
	assert.NoError(t, ValidateStruct(&valid))

	invalid := sampleInput{
		Username: "x",
		Email:    "not-an-email",
		Password: "weak",
	}
	err := ValidateStruct(&invalid)
	assert.Error(t, err)

	fields := FieldErrors(err)
	assert.Len(t, fields, 3)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
		assert.NotEmpty(t, f.Message)
	}
	assert.Contains(t, names, "username")
	assert.Contains(t, names, "email")
	assert.Contains(t, names, "password")
}

func TestFieldErrorsNonValidatorError(t *testing.T) {
	assert.Empty(t, FieldErrors(assert.AnError))
}

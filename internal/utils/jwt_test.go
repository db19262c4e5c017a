// internal/utils/jwt_test.go
package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestJWTRoundTrip(t *testing.T) {
	SetJWTSecret("test-secret")

	userID := uuid.New()
	token, err := GenerateJWT(userID, "seller_01", 1)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ValidateJWT(token)
	assert.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "seller_01", claims.Username)
}

func TestValidateJWTRejectsTampering(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateJWT(uuid.New(), "seller_01", 1)
	assert.NoError(t, err)

	_, err = ValidateJWT(token + "x")
	assert.Error(t, err)

	SetJWTSecret("different-secret")
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

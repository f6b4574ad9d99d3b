package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-key-min-32-chars-for-testing"

func TestGenerateAndValidate(t *testing.T) {
	manager := NewJWTManager(testSecret, zap.NewNop())

	token, err := manager.GenerateToken(42, "la-cevicheria", RoleRestaurantAdmin)
	require.NoError(t, err)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, RoleRestaurantAdmin, claims.Role)
	assert.Equal(t, "la-cevicheria", claims.Username)
}

func TestValidate_WrongSecret(t *testing.T) {
	token, err := NewJWTManager("another-secret-key-min-32-chars-long", zap.NewNop()).GenerateToken(1, "x", RoleSupplier)
	require.NoError(t, err)

	_, err = NewJWTManager(testSecret, zap.NewNop()).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	manager := NewJWTManager(testSecret, zap.NewNop())
	manager.ttl = -time.Minute

	token, err := manager.GenerateToken(1, "x", RoleSupplier)
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_NonNumericSubject(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewJWTManager(testSecret, zap.NewNop()).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Garbage(t *testing.T) {
	_, err := NewJWTManager(testSecret, zap.NewNop()).ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

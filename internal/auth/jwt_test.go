package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT("admin-1", "ops@example.com", RoleAdmin, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, "admin-1", claims.Subject)
	assert.Equal(t, "ops@example.com", claims.Email)
	assert.True(t, claims.IsAdmin())
}

func TestGenerateJWT_UnknownRoleIsCustomer(t *testing.T) {
	token, err := GenerateJWT("cust-1", "", "superuser", testSecret, time.Hour)
	require.NoError(t, err)
	claims, err := ValidateJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, claims.Role)
	assert.False(t, claims.IsAdmin())
}

func TestGenerateJWT_RequiresSubject(t *testing.T) {
	_, err := GenerateJWT("", "", RoleAdmin, testSecret, time.Hour)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestValidateJWT_Rejects(t *testing.T) {
	token, err := GenerateJWT("cust-1", "", RoleCustomer, testSecret, time.Hour)
	require.NoError(t, err)
	_, err = ValidateJWT(token, "other-secret")
	assert.Error(t, err)

	expired, err := GenerateJWT("cust-1", "", RoleCustomer, testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateJWT(expired, testSecret)
	assert.Error(t, err)

	_, err = ValidateJWT("not.a.jwt", testSecret)
	assert.Error(t, err)
}

func signClaims(t *testing.T, claims jwt.Claims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestValidateJWT_SubjectFallback(t *testing.T) {
	token := signClaims(t, jwt.MapClaims{"sub": "cust-7", "role": RoleCustomer})
	claims, err := ValidateJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "cust-7", claims.UserID)
}

func TestValidateJWT_RejectsTokenWithoutUser(t *testing.T) {
	token := signClaims(t, jwt.MapClaims{"userId": "cust-42", "role": RoleCustomer})
	_, err := ValidateJWT(token, testSecret)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

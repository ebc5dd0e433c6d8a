package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	identity := Identity{UserID: "user_42", Email: "a@b.c", Name: "Ada", AvatarURL: "https://img/a.png"}
	token, err := GenerateToken(identity, "secret", "idp", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "secret", "idp")
	require.NoError(t, err)
	assert.Equal(t, "user_42", claims.UserID())
	assert.Equal(t, "a@b.c", claims.Email)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, "https://img/a.png", claims.Picture)
}

func TestValidateToken_Rejects(t *testing.T) {
	valid, err := GenerateToken(Identity{UserID: "u1"}, "secret", "idp", time.Minute)
	require.NoError(t, err)
	expired, err := GenerateToken(Identity{UserID: "u1"}, "secret", "idp", -time.Minute)
	require.NoError(t, err)
	noSubject, err := GenerateToken(Identity{}, "secret", "idp", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
		issuer string
	}{
		{"wrong secret", valid, "other", "idp"},
		{"wrong issuer", valid, "secret", "someone-else"},
		{"expired", expired, "secret", "idp"},
		{"no subject", noSubject, "secret", "idp"},
		{"garbage", "invalid.token.here", "secret", "idp"},
		{"empty", "", "secret", "idp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateToken(tt.token, tt.secret, tt.issuer)
			assert.Error(t, err)
		})
	}
}

package security

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUsername(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"user", "user"},
		{"  User  ", "user"},
		{"ADMIN", "admin"},
		{"ｕｓｅｒ", "user"}, // fullwidth compatibility form
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeUsername(c.input), "NormalizeUsername(%q)", c.input)
	}
}

func TestValidateUsername(t *testing.T) {
	require.NoError(t, ValidateUsername("john_doe"))
	require.NoError(t, ValidateUsername("j.doe-2"))
	require.Error(t, ValidateUsername("jo"))
	require.Error(t, ValidateUsername(strings.Repeat("a", 51)))
	require.Error(t, ValidateUsername("john doe"))
	require.Error(t, ValidateUsername("john@doe"))
}

func TestValidatePassword(t *testing.T) {
	require.NoError(t, ValidatePassword("secret"))
	require.Error(t, ValidatePassword("short"))
	require.Error(t, ValidatePassword(strings.Repeat("x", 73)))
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", hash)
	assert.True(t, CheckPassword("secret", hash))
	assert.False(t, CheckPassword("Secret", hash))
	assert.False(t, CheckPassword("secret", "not-a-bcrypt-hash"))
}

func TestMemoryAuthenticatorConfiguredPassword(t *testing.T) {
	auth, generated, err := NewMemoryAuthenticator("user", "secret")
	require.NoError(t, err)
	assert.Empty(t, generated)

	user, err := auth.Authenticate(context.Background(), "USER", "secret")
	require.NoError(t, err)
	assert.Equal(t, "user", user.Username)
	assert.NotEmpty(t, user.PasswordHash)

	_, err = auth.Authenticate(context.Background(), "user", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Authenticate(context.Background(), "other", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMemoryAuthenticatorGeneratedPassword(t *testing.T) {
	auth, generated, err := NewMemoryAuthenticator("user", "")
	require.NoError(t, err)
	require.Len(t, generated, 36)

	_, err = auth.Authenticate(context.Background(), "user", generated)
	require.NoError(t, err)

	other, otherGenerated, err := NewMemoryAuthenticator("user", "")
	require.NoError(t, err)
	assert.NotEqual(t, generated, otherGenerated)
	_, err = other.Authenticate(context.Background(), "user", generated)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMemoryAuthenticatorCanceledContext(t *testing.T) {
	auth, _, err := NewMemoryAuthenticator("user", "secret")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = auth.Authenticate(ctx, "user", "secret")
	assert.ErrorIs(t, err, context.Canceled)
}

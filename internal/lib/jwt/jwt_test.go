package jwt

import (
	"strings"
	"testing"
	"time"

	"authd/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *models.User {
	return &models.User{ID: 42, Username: "alice"}
}

func TestGenerateParse(t *testing.T) {
	codec := NewCodec("test-secret")

	token, err := codec.Generate(testUser(), time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt.Time, 2*time.Second)
}

func TestGenerate_UniquePerCall(t *testing.T) {
	codec := NewCodec("test-secret")

	first, err := codec.Generate(testUser(), time.Minute)
	require.NoError(t, err)
	second, err := codec.Generate(testUser(), time.Minute)
	require.NoError(t, err)

	// jti differs even when both tokens are minted within the same second
	assert.NotEqual(t, first, second)
}

func TestParse_Expired(t *testing.T) {
	codec := NewCodec("test-secret")

	token, err := codec.Generate(testUser(), -time.Minute)
	require.NoError(t, err)

	_, err = codec.Parse(token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := NewCodec("secret-one").Generate(testUser(), time.Minute)
	require.NoError(t, err)

	_, err = NewCodec("secret-two").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParse_TamperedPayload(t *testing.T) {
	codec := NewCodec("test-secret")

	token, err := codec.Generate(testUser(), time.Minute)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	parts[1] = "eyJ1aWQiOjk5OX0"
	_, err = codec.Parse(strings.Join(parts, "."))
	assert.Error(t, err)
}

func TestParse_Malformed(t *testing.T) {
	codec := NewCodec("test-secret")

	for _, garbage := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		_, err := codec.Parse(garbage)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", garbage)
	}
}

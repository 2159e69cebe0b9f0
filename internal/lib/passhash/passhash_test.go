package passhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerify(t *testing.T) {
	hash, err := Hash("Abcd1234!")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, Verify("Abcd1234!", hash))
	assert.False(t, Verify("Abcd1234?", hash))
}

func TestHash_Salted(t *testing.T) {
	first, err := Hash("Abcd1234!")
	require.NoError(t, err)
	second, err := Hash("Abcd1234!")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerify_MalformedDigest(t *testing.T) {
	assert.False(t, Verify("Abcd1234!", nil))
	assert.False(t, Verify("Abcd1234!", []byte("not-a-bcrypt-digest")))
}

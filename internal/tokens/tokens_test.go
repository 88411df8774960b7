package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureTokenLength(t *testing.T) {
	token, err := GenerateSecureToken(DefaultByteLength)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	short, err := GenerateSecureToken(8)
	require.NoError(t, err)
	assert.Len(t, short, 16)

	fallback, err := GenerateSecureToken(0)
	require.NoError(t, err)
	assert.Len(t, fallback, 64)
}

func TestGenerateSecureTokenUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		token, err := GenerateSecureToken(DefaultByteLength)
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}
}

func TestHashDeterministic(t *testing.T) {
	assert.Equal(t, Hash("abc"), Hash("abc"))
	assert.NotEqual(t, Hash("abc"), Hash("abd"))
	assert.NotEqual(t, "abc", Hash("abc"))
}

func TestVerifyExactTokenOnly(t *testing.T) {
	token, err := GenerateSecureToken(DefaultByteLength)
	require.NoError(t, err)
	digest := Hash(token)

	require.True(t, Verify(token, digest))

	for i := range token {
		mutated := []byte(token)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		assert.False(t, Verify(string(mutated), digest), "mutation at %d verified", i)
	}

	assert.False(t, Verify("", digest))
	assert.False(t, Verify(token, ""))
	assert.False(t, Verify(token+"0", digest))
}

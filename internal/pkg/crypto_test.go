package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomString(t *testing.T) {
	t.Run("returns string of correct length", func(t *testing.T) {
		s, err := GenerateRandomString(16)
		require.NoError(t, err)
		assert.Len(t, s, 32, "16 bytes -> 32 hex chars")
	})

	t.Run("different lengths produce different sized outputs", func(t *testing.T) {
		s8, err := GenerateRandomString(8)
		require.NoError(t, err)
		assert.Len(t, s8, 16)

		s32, err := GenerateRandomString(32)
		require.NoError(t, err)
		assert.Len(t, s32, 64)
	})

	t.Run("zero length returns empty string", func(t *testing.T) {
		s, err := GenerateRandomString(0)
		require.NoError(t, err)
		assert.Equal(t, "", s)
	})

	t.Run("each call generates unique output", func(t *testing.T) {
		s1, err := GenerateRandomString(16)
		require.NoError(t, err)
		s2, err := GenerateRandomString(16)
		require.NoError(t, err)
		assert.NotEqual(t, s1, s2)
	})

	t.Run("output is valid hex", func(t *testing.T) {
		s, err := GenerateRandomString(32)
		require.NoError(t, err)
		for _, c := range s {
			assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'),
				"expected hex char, got: %c", c)
		}
	})
}

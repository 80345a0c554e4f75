package usecase

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	t.Run("CryptoRandom", func(t *testing.T) {
		uc := New(Dependency{})

		seen := map[string]struct{}{}
		for range 20 {
			code, err := uc.generateCode(6)
			require.NoError(t, err)
			assert.Regexp(t, `^\d{6}$`, code)
			seen[code] = struct{}{}
		}
		assert.Greater(t, len(seen), 1)
	})

	t.Run("Lengths", func(t *testing.T) {
		uc := New(Dependency{})

		for _, n := range []int{4, 8, 10} {
			code, err := uc.generateCode(n)
			require.NoError(t, err)
			assert.Len(t, code, n)
		}
	})

	t.Run("InvalidLength", func(t *testing.T) {
		uc := New(Dependency{})

		_, err := uc.generateCode(0)
		assert.Error(t, err)
	})

	t.Run("ExhaustedSource", func(t *testing.T) {
		uc := New(Dependency{Random: bytes.NewReader(nil)})

		_, err := uc.generateCode(6)
		assert.Error(t, err)
	})
}

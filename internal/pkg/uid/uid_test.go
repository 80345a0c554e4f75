package uid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectIDGenerator(t *testing.T) {
	g, err := NewObjectIDGenerator()
	require.NoError(t, err)

	seen := map[string]bool{}
	for range 100 {
		id := g.Generate()
		assert.Len(t, id, 64)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestSnowflakeNode(t *testing.T) {
	s, err := NewSnowflakeNode(1)
	require.NoError(t, err)

	a, b := s.Generate(), s.Generate()
	assert.Greater(t, b, a)

	_, err = NewSnowflakeNode(4096)
	assert.Error(t, err)
}

func TestUUID(t *testing.T) {
	id := NewUUID().Generate()
	assert.Len(t, id, 36)
	assert.NotEqual(t, id, NewUUID().Generate())
}

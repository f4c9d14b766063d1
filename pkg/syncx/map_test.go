package syncx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapLoadStoreDelete(t *testing.T) {
	var m Map[string, int]

	_, ok := m.Load("a")
	assert.False(t, ok)

	m.Store("a", 1)
	value, ok := m.Load("a")
	assert.True(t, ok)
	assert.Equal(t, 1, value)

	m.Delete("a")
	_, ok = m.Load("a")
	assert.False(t, ok)
}

func TestMapLoadOrStore(t *testing.T) {
	var m Map[string, int]

	actual, loaded := m.LoadOrStore("a", 1)
	assert.False(t, loaded)
	assert.Equal(t, 1, actual)

	actual, loaded = m.LoadOrStore("a", 2)
	assert.True(t, loaded)
	assert.Equal(t, 1, actual)
}

func TestMapRange(t *testing.T) {
	var m Map[string, int]
	m.Store("a", 1)
	m.Store("b", 2)

	seen := map[string]int{}
	m.Range(func(key string, value int) bool {
		seen[key] = value
		return true
	})
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, seen)
}

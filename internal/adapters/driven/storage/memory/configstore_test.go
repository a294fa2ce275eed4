package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore()
	require.NotNil(t, store)
	assert.Equal(t, ":memory:", store.Path())
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("retrieval.mode", "hybrid"))
	require.NoError(t, store.Set("retrieval.mode", "keyword"))

	val, ok := store.Get("retrieval.mode")
	assert.True(t, ok)
	assert.Equal(t, "keyword", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("str", "value")
	_ = store.Set("int", 42)
	_ = store.Set("int64", int64(7))
	_ = store.Set("float", 0.25)
	_ = store.Set("bool", true)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", store.GetString("str"), "value"},
		{"string wrong type", store.GetString("int"), ""},
		{"int", store.GetInt("int"), 42},
		{"int from int64", store.GetInt("int64"), 7},
		{"int from float", store.GetInt("float"), 0},
		{"int wrong type", store.GetInt("str"), 0},
		{"float", store.GetFloat("float"), 0.25},
		{"float from int", store.GetFloat("int"), 42.0},
		{"float from int64", store.GetFloat("int64"), 7.0},
		{"float wrong type", store.GetFloat("bool"), 0.0},
		{"bool", store.GetBool("bool"), true},
		{"bool wrong type", store.GetBool("str"), false},
		{"missing float", store.GetFloat("missing"), 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = store.Set("key", id)
			_ = store.GetInt("key")
			_ = store.GetFloat("key")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("key")
	assert.True(t, ok)
}

func TestNewConfigStore_Seeded(t *testing.T) {
	store := NewConfigStore(
		map[string]any{"retrieval.mode": "vector", "retrieval.top_k": int64(5)},
		map[string]any{"retrieval.mode": "hybrid"},
	)

	assert.Equal(t, "hybrid", store.GetString("retrieval.mode"))
	assert.Equal(t, 5, store.GetInt("retrieval.top_k"))
	assert.Equal(t, []string{"retrieval.mode", "retrieval.top_k"}, store.Keys())
}

func TestConfigStore_Saves(t *testing.T) {
	store := NewConfigStore()
	assert.Equal(t, 0, store.Saves())

	require.NoError(t, store.Save())
	require.NoError(t, store.Save())
	assert.Equal(t, 2, store.Saves())
}

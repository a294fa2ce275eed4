package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

func seedDocument(t *testing.T, store *DocumentStore, id string, chunks int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID: id, Filename: id + ".txt", Content: "content", CreatedAt: time.Now(),
	}))
	cs := make([]domain.Chunk, chunks)
	for i := range cs {
		cs[i] = domain.Chunk{ID: fmt.Sprintf("%s-c%d", id, i), DocumentID: id, Position: i, Content: fmt.Sprintf("chunk %d", i)}
	}
	require.NoError(t, store.SaveChunks(ctx, id, cs))
}

func TestDocumentStore_SaveAndGetDocument(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := &domain.Document{ID: "doc-1", Filename: "notes.md", Content: "hello"}
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, *doc, *got)

	_, err = store.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveChunks_UnknownDocument(t *testing.T) {
	store := NewDocumentStore()

	err := store.SaveChunks(context.Background(), "missing", []domain.Chunk{{ID: "c"}})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_LoadChunks_OrderedByPosition(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "d"}))
	require.NoError(t, store.SaveChunks(ctx, "d", []domain.Chunk{
		{ID: "c2", DocumentID: "d", Position: 2},
		{ID: "c0", DocumentID: "d", Position: 0},
		{ID: "c1", DocumentID: "d", Position: 1},
	}))

	chunks, err := store.LoadChunks(ctx, "d")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"c0", "c1", "c2"}, []string{chunks[0].ID, chunks[1].ID, chunks[2].ID})
}

func TestDocumentStore_LoadAllChunks_SnapshotOrder(t *testing.T) {
	store := NewDocumentStore()
	seedDocument(t, store, "b", 2)
	seedDocument(t, store, "a", 1)

	chunks, err := store.LoadAllChunks(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"b-c0", "b-c1", "a-c0"}, ids)
}

func TestDocumentStore_UpdateEmbeddings(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	seedDocument(t, store, "d", 3)

	vec := []float32{0.1, 0.2}
	require.NoError(t, store.UpdateEmbeddings(ctx, map[string][]float32{"d-c1": vec, "unknown": {1}}))
	vec[0] = 9 // caller mutation must not leak into the store

	chunks, err := store.LoadChunks(ctx, "d")
	require.NoError(t, err)
	assert.False(t, chunks[0].HasEmbedding())
	assert.Equal(t, []float32{0.1, 0.2}, chunks[1].Embedding)

	missing, err := store.ChunksMissingEmbedding(ctx)
	require.NoError(t, err)
	assert.Len(t, missing, 2)
}

func TestDocumentStore_SnapshotIsolation(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	seedDocument(t, store, "d", 1)
	require.NoError(t, store.UpdateEmbeddings(ctx, map[string][]float32{"d-c0": {1, 2}}))

	snapshot, err := store.LoadAllChunks(ctx)
	require.NoError(t, err)
	snapshot[0].Embedding[0] = 42

	again, err := store.LoadAllChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, float32(1), again[0].Embedding[0])
}

func TestDocumentStore_DeleteDocument_Cascades(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	seedDocument(t, store, "keep", 1)
	seedDocument(t, store, "drop", 2)

	require.NoError(t, store.DeleteDocument(ctx, "drop"))
	require.NoError(t, store.DeleteDocument(ctx, "never-existed"))

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "keep", docs[0].ID)

	chunks, err := store.LoadChunks(ctx, "drop")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDocumentStore_ConcurrentIngestAndScan(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			seedDocument(t, store, fmt.Sprintf("doc-%d", id), 3)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.LoadAllChunks(ctx)
		}()
	}
	wg.Wait()

	chunks, err := store.LoadAllChunks(ctx)
	require.NoError(t, err)
	assert.Len(t, chunks, 60)
}

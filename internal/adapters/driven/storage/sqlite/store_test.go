package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func saveTestDocument(t *testing.T, docs driven.DocumentStore, id string, createdAt time.Time, chunks int) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{
		ID: id, Filename: id + ".md", Content: "body of " + id, CreatedAt: createdAt,
	}))

	cs := make([]domain.Chunk, chunks)
	for i := range cs {
		cs[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s-%d", id, i),
			DocumentID: id,
			Position:   i,
			Content:    fmt.Sprintf("chunk %d of %s", i, id),
		}
	}
	require.NoError(t, docs.SaveChunks(ctx, id, cs))
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DatabaseFile), store.Path())
	assert.FileExists(t, store.Path())

	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	saveTestDocument(t, store.DocumentStore(), "doc", time.Now(), 2)
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	chunks, err := reopened.DocumentStore().LoadChunks(context.Background(), "doc")
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	version, err := reopened.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestDocumentStore_SaveAndGet(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{
		ID: "doc-1", Filename: "guide.md", Content: "# Guide", CreatedAt: created,
	}))

	got, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "guide.md", got.Filename)
	assert.Equal(t, "# Guide", got.Content)
	assert.True(t, created.Equal(got.CreatedAt))

	_, err = docs.GetDocument(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveChunks_RequiresDocument(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()

	err := docs.SaveChunks(context.Background(), "ghost", []domain.Chunk{{ID: "c", Position: 0}})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveChunks_Replaces(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	saveTestDocument(t, docs, "doc", time.Now(), 3)

	require.NoError(t, docs.SaveChunks(ctx, "doc", []domain.Chunk{
		{ID: "new", DocumentID: "doc", Position: 0, Content: "only"},
	}))

	chunks, err := docs.LoadChunks(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "new", chunks[0].ID)
}

func TestDocumentStore_EmbeddingRoundTrip(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	saveTestDocument(t, docs, "doc", time.Now(), 2)

	vec := []float32{0.25, -1.5, 3.0e-7}
	require.NoError(t, docs.UpdateEmbeddings(ctx, map[string][]float32{"doc-0": vec}))

	chunks, err := docs.LoadChunks(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, vec, chunks[0].Embedding)
	assert.Nil(t, chunks[1].Embedding)

	missing, err := docs.ChunksMissingEmbedding(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "doc-1", missing[0].ID)
}

func TestDocumentStore_LoadAllChunks_Order(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	saveTestDocument(t, docs, "newer", base.Add(time.Hour), 2)
	saveTestDocument(t, docs, "older", base, 2)

	chunks, err := docs.LoadAllChunks(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, c := range chunks {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"older-0", "older-1", "newer-0", "newer-1"}, ids)

	list, err := docs.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "older", list[0].ID)
}

func TestDocumentStore_DeleteCascades(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	saveTestDocument(t, docs, "doc", time.Now(), 3)

	require.NoError(t, docs.DeleteDocument(ctx, "doc"))

	_, err := docs.GetDocument(ctx, "doc")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := docs.LoadAllChunks(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFloat32BlobHelpers(t *testing.T) {
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))

	in := []float32{1, -2.5, 0}
	blob := float32SliceToBytes(in)
	assert.Len(t, blob, 12)
	assert.Equal(t, in, bytesToFloat32Slice(blob))
}

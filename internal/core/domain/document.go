package domain

import "time"

// Document represents an uploaded document after normalisation.
// Documents are immutable once stored and own zero or more Chunks.
type Document struct {
	// ID is the unique identifier for the document.
	ID string `json:"id"`

	// Filename is the name the document was uploaded under.
	Filename string `json:"filename"`

	// Content is the full text content before chunking.
	Content string `json:"content,omitempty"`

	// CreatedAt is when the document was stored.
	CreatedAt time.Time `json:"created_at"`
}

// Chunk represents a retrievable unit within a document.
// Chunks are created at ingest, receive their embedding once and are never
// mutated afterwards. Deleting the owning Document deletes its chunks.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string `json:"id"`

	// DocumentID links to the parent Document.
	DocumentID string `json:"document_id"`

	// Position is the ordinal index within the document, starting at 0.
	Position int `json:"position"`

	// Content is the text content of this chunk.
	Content string `json:"content"`

	// Embedding is the vector representation for semantic search.
	// It is nil until an EmbeddingProvider has produced it.
	Embedding []float32 `json:"-"`
}

// HasEmbedding reports whether the chunk carries a non-empty embedding.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// IngestReport summarises a document ingest.
type IngestReport struct {
	// Document is the stored document.
	Document Document `json:"document"`

	// Chunks is the number of chunks produced by the chunker.
	Chunks int `json:"chunks"`

	// Embedded is the number of chunks that received an embedding.
	Embedded int `json:"embedded"`

	// Failed is the number of chunks whose embedding failed.
	// Such chunks remain stored and are skipped by vector search.
	Failed int `json:"failed"`

	// Duration is the wall-clock time of the ingest.
	Duration time.Duration `json:"duration_ns"`
}

// Package sqlite provides the durable DocumentStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Documents and chunks live in a single database file;
// chunk embeddings are stored as little-endian float32 blobs next to the
// chunk text so a retrieval scan is one query.
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files and applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at <user config dir>/chatrag/data/documents.db.
//
// # Thread Safety
//
// All operations are thread-safe. Chunk replacement runs in a transaction so
// a concurrent scan sees either the old or the new chunk set of a document.
package sqlite

package driven

import "io"

// ModelStore is the on-disk layout of local embedding model artifacts:
// one directory per model id holding the model's required files.
// Partial downloads live next to the final file with a ".part" suffix.
type ModelStore interface {
	// Root returns the directory holding all model directories.
	Root() string

	// ArtifactPath returns the final path of a model file.
	ArtifactPath(modelID, fileName string) string

	// Stat returns the size of a final artifact and whether it exists.
	Stat(modelID, fileName string) (size int64, exists bool, err error)

	// OpenPartial opens the partial file for appending. When resume is false
	// or no partial exists the file is truncated. Returns the writer and
	// the number of bytes already present.
	OpenPartial(modelID, fileName string, resume bool) (io.WriteCloser, int64, error)

	// Commit renames the partial file into its final place.
	Commit(modelID, fileName string) error

	// DiscardPartial removes the partial file if present.
	DiscardPartial(modelID, fileName string) error

	// RemoveModel deletes the model directory. Missing directories are not an error.
	RemoveModel(modelID string) error
}

package local

import "os"

// LibraryPathEnv names the environment variable holding the path of the
// ONNX Runtime shared library.
const LibraryPathEnv = "ONNX_PATH"

// Session runs a loaded model.
type Session interface {
	// Run returns the last hidden state, [len(ids)][dims] flattened.
	Run(ids, mask []int64) ([]float32, error)

	// Close releases the model.
	Close() error
}

// Runtime opens inference sessions.
type Runtime interface {
	Open(weightsPath string, dims int) (Session, error)
}

// libraryPath returns the configured shared library path, empty for the
// runtime's default lookup.
func libraryPath() string {
	return os.Getenv(LibraryPathEnv)
}

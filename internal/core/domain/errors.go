package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no normaliser handles a file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrCancelled indicates an operation was cancelled by its caller.
	ErrCancelled = errors.New("cancelled")

	// Configuration Errors.
	// These require operator action and are never retried.

	// ErrUnknownModel indicates a model id is not in the embedding model catalog.
	ErrUnknownModel = errors.New("unknown model")

	// ErrMissingArtifact indicates a required model file is absent on disk.
	ErrMissingArtifact = errors.New("missing model artifact")

	// Transient Errors.
	// These may succeed when retried by the caller.

	// ErrDownloadFailed indicates a model artifact transfer failed.
	ErrDownloadFailed = errors.New("download failed")

	// ErrTransport indicates a remote embedding call failed in transit.
	ErrTransport = errors.New("transport error")

	// ErrRateLimited indicates the remote API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Uninitialised-use Errors.

	// ErrModelNotLoaded indicates embedding was requested before any model was initialised.
	ErrModelNotLoaded = errors.New("no embedding model loaded")

	// ErrModelLoadFailed indicates the last model initialisation attempt failed.
	ErrModelLoadFailed = errors.New("embedding model failed to load")

	// ErrLocalRuntimeUnavailable indicates the binary was built without local inference support.
	ErrLocalRuntimeUnavailable = errors.New("local inference runtime unavailable")

	// Availability Errors.

	// ErrEmbeddingUnavailable indicates the embedding provider is not configured or not ready.
	// Vector and hybrid retrieval are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
)

// IsConfigurationError reports whether err needs operator action
// (unknown model, missing artifact, invalid input) rather than a retry.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrUnknownModel) ||
		errors.Is(err, ErrMissingArtifact) ||
		errors.Is(err, ErrInvalidInput)
}

// IsTransient reports whether err is a transient I/O failure the caller may retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrDownloadFailed) ||
		errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrRateLimited)
}

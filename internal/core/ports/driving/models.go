package driving

import (
	"context"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

// ModelService manages local embedding model artifacts.
type ModelService interface {
	// IsDownloaded returns true if every required artifact is on disk.
	// Unknown model ids return false.
	IsDownloaded(modelID string) bool

	// GetStatus returns the current download state.
	// Unknown model ids report NotDownloaded.
	GetStatus(modelID string) domain.DownloadState

	// GetDownloadedSize returns the on-disk size of the model's artifacts.
	GetDownloadedSize(modelID string) int64

	// Download fetches the model's artifacts. A second call for a model
	// already downloading joins the running transfer.
	Download(ctx context.Context, modelID string) error

	// CancelDownload stops an active download. No-op if none is active.
	CancelDownload(modelID string) error

	// DeleteModel removes the model's artifacts. No-op if none exist.
	DeleteModel(modelID string) error

	// Subscribe returns a channel of state changes and a function to stop
	// receiving them.
	Subscribe() (<-chan domain.DownloadEvent, func())
}

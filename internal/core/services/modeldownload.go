package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
	"github.com/custodia-labs/chatrag/internal/core/ports/driving"
	"github.com/custodia-labs/chatrag/internal/logger"
)

// Ensure ModelDownloadService implements the interface.
var _ driving.ModelService = (*ModelDownloadService)(nil)

// cancelledReason is recorded in the Error state when a download is cancelled.
const cancelledReason = "download cancelled"

const copyBufferSize = 32 * 1024

// download is an in-flight transfer of one model.
type download struct {
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
	progress atomic.Uint64 // math.Float64bits of percent complete
}

func (d *download) setProgress(p float64) {
	d.progress.Store(math.Float64bits(p))
}

func (d *download) Progress() float64 {
	return math.Float64frombits(d.progress.Load())
}

// ModelDownloadService acquires, verifies and removes local model artifacts.
// Each model id moves through NotDownloaded, Downloading, Downloaded and
// Error. Downloaded and NotDownloaded are derived from disk; Downloading
// and Error are held in memory.
type ModelDownloadService struct {
	store   driven.ModelStore
	fetcher driven.ArtifactFetcher
	events  *Broadcaster[domain.DownloadEvent]

	mu     sync.Mutex
	active map[string]*download
	failed map[string]domain.DownloadState
}

// NewModelDownloadService creates a new model download service.
func NewModelDownloadService(store driven.ModelStore, fetcher driven.ArtifactFetcher) *ModelDownloadService {
	return &ModelDownloadService{
		store:   store,
		fetcher: fetcher,
		events:  NewBroadcaster[domain.DownloadEvent](64),
		active:  make(map[string]*download),
		failed:  make(map[string]domain.DownloadState),
	}
}

// Subscribe returns a channel of state changes.
func (s *ModelDownloadService) Subscribe() (<-chan domain.DownloadEvent, func()) {
	return s.events.Subscribe()
}

// IsDownloaded returns true if every required artifact exists with its
// expected size. Unknown model ids return false.
func (s *ModelDownloadService) IsDownloaded(modelID string) bool {
	desc, err := domain.LookupModel(modelID)
	if err != nil {
		return false
	}
	for _, a := range desc.Artifacts {
		size, exists, err := s.store.Stat(modelID, a.FileName)
		if err != nil || !exists {
			return false
		}
		if a.Size > 0 && size != a.Size {
			return false
		}
	}
	return true
}

// GetStatus returns the current state. Unknown model ids report NotDownloaded.
func (s *ModelDownloadService) GetStatus(modelID string) domain.DownloadState {
	if !domain.IsKnownModel(modelID) {
		return domain.NotDownloaded()
	}
	s.mu.Lock()
	if d, ok := s.active[modelID]; ok {
		s.mu.Unlock()
		return domain.Downloading(d.Progress())
	}
	if st, ok := s.failed[modelID]; ok {
		s.mu.Unlock()
		return st
	}
	s.mu.Unlock()

	if s.IsDownloaded(modelID) {
		return domain.Downloaded()
	}
	return domain.NotDownloaded()
}

// GetDownloadedSize returns the total size of the model's final artifacts.
func (s *ModelDownloadService) GetDownloadedSize(modelID string) int64 {
	desc, err := domain.LookupModel(modelID)
	if err != nil {
		return 0
	}
	var total int64
	for _, a := range desc.Artifacts {
		if size, exists, err := s.store.Stat(modelID, a.FileName); err == nil && exists {
			total += size
		}
	}
	return total
}

// Download fetches every required artifact sequentially. Partial files are
// resumed and renamed into place only when complete. A second call for a
// model already downloading waits for the running transfer. Cancelling
// ctx of the call that started the transfer cancels it; cancelling ctx of
// a joining call only stops that call's wait.
func (s *ModelDownloadService) Download(ctx context.Context, modelID string) error {
	desc, err := domain.LookupModel(modelID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if d, ok := s.active[modelID]; ok {
		s.mu.Unlock()
		logger.Debug("Model %s: joining in-flight download", modelID)
		select {
		case <-d.done:
			return d.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	dctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d := &download{cancel: cancel, done: make(chan struct{})}
	s.active[modelID] = d
	delete(s.failed, modelID)
	s.publish(modelID, domain.Downloading(0))
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	logger.Section("Model Download")
	logger.Debug("Model %s from %s: %d artifacts", modelID, desc.SourceRepo, len(desc.Artifacts))

	err = s.transfer(dctx, desc, d)
	cancel()
	s.finish(modelID, d, err)
	return d.err
}

// finish records the outcome of a transfer and releases joiners.
func (s *ModelDownloadService) finish(modelID string, d *download, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, modelID)

	switch {
	case err == nil:
		logger.Info("Model %s downloaded", modelID)
		s.publish(modelID, domain.Downloaded())
	case errors.Is(err, context.Canceled):
		logger.Info("Model %s: %s", modelID, cancelledReason)
		s.publish(modelID, domain.DownloadFailed(cancelledReason))
		s.publish(modelID, domain.NotDownloaded())
		err = fmt.Errorf("%w: %s", domain.ErrCancelled, cancelledReason)
	default:
		logger.Warn("Model %s download failed: %v", modelID, err)
		state := domain.DownloadFailed(err.Error())
		s.failed[modelID] = state
		s.publish(modelID, state)
	}
	d.err = err
	close(d.done)
}

// transfer downloads the missing artifacts of desc.
func (s *ModelDownloadService) transfer(ctx context.Context, desc domain.EmbeddingModelDescriptor, d *download) error {
	n := float64(len(desc.Artifacts))
	for i, a := range desc.Artifacts {
		base := float64(i) / n * 100
		report := func(fraction float64) {
			p := base + fraction/n*100
			prev := d.Progress()
			d.setProgress(p)
			if math.Floor(p) != math.Floor(prev) {
				s.mu.Lock()
				s.publish(desc.ID, domain.Downloading(p))
				s.mu.Unlock()
			}
		}

		size, exists, err := s.store.Stat(desc.ID, a.FileName)
		if err != nil {
			return fmt.Errorf("%w: stat %s: %w", domain.ErrDownloadFailed, a.FileName, err)
		}
		if exists && (a.Size == 0 || size == a.Size) {
			logger.Debug("Artifact %s already present (%d bytes)", a.FileName, size)
			report(1)
			continue
		}
		if err := s.fetchArtifact(ctx, desc, a, report); err != nil {
			return err
		}
	}
	return nil
}

// fetchArtifact downloads one artifact into its partial file, resuming
// from any bytes already present, then commits it.
func (s *ModelDownloadService) fetchArtifact(
	ctx context.Context, desc domain.EmbeddingModelDescriptor, a domain.ModelArtifact, report func(float64),
) error {
	w, offset, err := s.store.OpenPartial(desc.ID, a.FileName, true)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", domain.ErrDownloadFailed, a.FileName, err)
	}

	stream, err := s.fetcher.Fetch(ctx, desc.SourceRepo, a.RemotePath, offset)
	if err != nil {
		_ = w.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: fetch %s: %w", domain.ErrDownloadFailed, a.RemotePath, err)
	}
	defer stream.Body.Close()

	if stream.Offset != offset {
		logger.Debug("Artifact %s: server ignored range, restarting", a.FileName)
		_ = w.Close()
		if w, offset, err = s.store.OpenPartial(desc.ID, a.FileName, false); err != nil {
			return fmt.Errorf("%w: open %s: %w", domain.ErrDownloadFailed, a.FileName, err)
		}
	}
	logger.Debug("Artifact %s: from byte %d of %d", a.FileName, offset, stream.Total)

	total := stream.Total
	if total < 0 && a.Size > 0 {
		total = a.Size
	}
	written, err := copyWithProgress(ctx, w, stream.Body, offset, total, report)
	if closeErr := w.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %w", domain.ErrDownloadFailed, a.FileName, err)
	}

	if (total >= 0 && written != total) || (a.Size > 0 && written != a.Size) {
		_ = s.store.DiscardPartial(desc.ID, a.FileName)
		return fmt.Errorf("%w: %s: got %d bytes, want %d", domain.ErrDownloadFailed, a.FileName, written, total)
	}
	if err := s.store.Commit(desc.ID, a.FileName); err != nil {
		return fmt.Errorf("%w: commit %s: %w", domain.ErrDownloadFailed, a.FileName, err)
	}
	report(1)
	return nil
}

// copyWithProgress copies src to dst, reporting the completed fraction when
// total is known. It returns the size of the file including offset.
func copyWithProgress(
	ctx context.Context, dst io.Writer, src io.Reader, offset, total int64, report func(float64),
) (int64, error) {
	buf := make([]byte, copyBufferSize)
	written := offset
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			if total > 0 {
				report(math.Min(float64(written)/float64(total), 1))
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// CancelDownload stops an active download and waits for it to wind down.
// It is a no-op when no download is active for modelID.
func (s *ModelDownloadService) CancelDownload(modelID string) error {
	s.mu.Lock()
	d, ok := s.active[modelID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	d.cancel()
	<-d.done
	return nil
}

// DeleteModel removes the model's artifacts, cancelling any active download.
// It is a no-op when nothing is present.
func (s *ModelDownloadService) DeleteModel(modelID string) error {
	if !domain.IsKnownModel(modelID) {
		return nil
	}
	if err := s.CancelDownload(modelID); err != nil {
		return err
	}
	if err := s.store.RemoveModel(modelID); err != nil {
		return fmt.Errorf("remove model %s: %w", modelID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failed, modelID)
	s.publish(modelID, domain.NotDownloaded())
	logger.Debug("Model %s deleted", modelID)
	return nil
}

// publish sends a state change to subscribers. Callers hold s.mu so events
// of one model are delivered in transition order.
func (s *ModelDownloadService) publish(modelID string, state domain.DownloadState) {
	s.events.Publish(domain.DownloadEvent{ModelID: modelID, State: state})
}

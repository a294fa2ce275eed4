package domain

import "fmt"

// DownloadPhase is the tag of a DownloadState.
type DownloadPhase uint8

// Download phases.
const (
	DownloadNotDownloaded DownloadPhase = iota
	DownloadDownloading
	DownloadDownloaded
	DownloadError
)

// String returns the string representation.
func (p DownloadPhase) String() string {
	switch p {
	case DownloadNotDownloaded:
		return "not_downloaded"
	case DownloadDownloading:
		return "downloading"
	case DownloadDownloaded:
		return "downloaded"
	case DownloadError:
		return "error"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// DownloadState is the lifecycle state of a local model's artifacts.
// Progress is meaningful only while Downloading, Reason only in Error.
type DownloadState struct {
	Phase    DownloadPhase `json:"phase"`
	Progress float64       `json:"progress,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

// NotDownloaded returns the initial state.
func NotDownloaded() DownloadState {
	return DownloadState{Phase: DownloadNotDownloaded}
}

// Downloading returns an in-flight state with percent-complete progress.
func Downloading(progress float64) DownloadState {
	switch {
	case progress < 0:
		progress = 0
	case progress > 100:
		progress = 100
	}
	return DownloadState{Phase: DownloadDownloading, Progress: progress}
}

// Downloaded returns the usable state.
func Downloaded() DownloadState {
	return DownloadState{Phase: DownloadDownloaded}
}

// DownloadFailed returns the error state with a recorded reason.
func DownloadFailed(reason string) DownloadState {
	return DownloadState{Phase: DownloadError, Reason: reason}
}

// String renders the state for display.
func (s DownloadState) String() string {
	switch s.Phase {
	case DownloadDownloading:
		return fmt.Sprintf("downloading (%.0f%%)", s.Progress)
	case DownloadError:
		return "error: " + s.Reason
	case DownloadNotDownloaded, DownloadDownloaded:
		return s.Phase.String()
	}
	return s.Phase.String()
}

// CanTransitionTo reports whether next is a legal successor of s.
//
//	NotDownloaded -> Downloading
//	Downloading   -> Downloading (progress), Downloaded, Error
//	Error         -> NotDownloaded, Downloading (retry)
//	Downloaded    -> NotDownloaded (delete), Downloading (repair)
func (s DownloadState) CanTransitionTo(next DownloadState) bool {
	switch s.Phase {
	case DownloadNotDownloaded:
		return next.Phase == DownloadDownloading || next.Phase == DownloadNotDownloaded
	case DownloadDownloading:
		return next.Phase == DownloadDownloading || next.Phase == DownloadDownloaded || next.Phase == DownloadError
	case DownloadError:
		return next.Phase == DownloadNotDownloaded || next.Phase == DownloadDownloading
	case DownloadDownloaded:
		return next.Phase == DownloadNotDownloaded || next.Phase == DownloadDownloading || next.Phase == DownloadDownloaded
	}
	return false
}

// DownloadEvent is published to observers on every state change.
type DownloadEvent struct {
	ModelID string        `json:"model_id"`
	State   DownloadState `json:"state"`
}

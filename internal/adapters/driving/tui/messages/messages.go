// Package messages defines Bubbletea message types for the terminal views.
package messages

import (
	"github.com/custodia-labs/chatrag/internal/core/domain"
)

// DownloadProgressed carries a state change published by the model service.
type DownloadProgressed struct {
	Event domain.DownloadEvent
}

// DownloadFinished is sent once the Download call returns.
type DownloadFinished struct {
	Err error
}

// EventsClosed is sent when the subscription channel has been closed.
type EventsClosed struct{}

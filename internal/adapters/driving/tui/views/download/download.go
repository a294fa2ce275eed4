// Package download provides the progress view shown while a local embedding
// model is being fetched.
package download

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/chatrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/chatrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/chatrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driving"
)

const (
	padding  = 2
	maxWidth = 72
)

// View renders a progress bar fed by model service events.
type View struct {
	modelID string
	events  <-chan domain.DownloadEvent
	result  <-chan error
	cancel  context.CancelFunc

	styles *styles.Styles
	keys   *keymap.KeyMap
	help   help.Model
	bar    progress.Model

	state     domain.DownloadState
	err       error
	finished  bool
	cancelled bool
}

// NewView creates a download view. events delivers state changes, result
// delivers the Download return value once, and cancel stops the transfer.
func NewView(
	modelID string,
	events <-chan domain.DownloadEvent,
	result <-chan error,
	cancel context.CancelFunc,
	s *styles.Styles,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	theme := s.Theme()

	return &View{
		modelID: modelID,
		events:  events,
		result:  result,
		cancel:  cancel,
		styles:  s,
		keys:    keymap.DefaultKeyMap(),
		help:    help.New(),
		bar: progress.New(
			progress.WithGradient(string(theme.Accent), string(theme.AccentAlt)),
			progress.WithWidth(maxWidth-padding*2),
		),
		state: domain.Downloading(0),
	}
}

// Init starts listening for events and for the download result.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.waitForEvent(), v.waitForResult())
}

// Update handles messages for the download view.
func (v *View) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.bar.Width = min(msg.Width-padding*2, maxWidth)
		return v, nil

	case tea.KeyMsg:
		if v.finished {
			if key.Matches(msg, v.keys.Hide, v.keys.Cancel) {
				return v, tea.Quit
			}
			return v, nil
		}
		if key.Matches(msg, v.keys.Cancel) {
			v.cancelled = true
			if v.cancel != nil {
				v.cancel()
			}
		}
		return v, nil

	case messages.DownloadProgressed:
		if msg.Event.ModelID == v.modelID {
			v.state = msg.Event.State
		}
		return v, v.waitForEvent()

	case messages.EventsClosed:
		return v, nil

	case messages.DownloadFinished:
		v.finished = true
		v.err = msg.Err
		if msg.Err == nil {
			v.state = domain.Downloaded()
		}
		return v, tea.Quit
	}

	return v, nil
}

// View renders the progress bar and status line.
func (v *View) View() string {
	var b strings.Builder
	pad := strings.Repeat(" ", padding)

	b.WriteString("\n")
	b.WriteString(pad + v.styles.Title.Render("Downloading "+v.modelID) + "\n\n")

	percent := v.state.Progress / 100
	if v.state.Phase == domain.DownloadDownloaded {
		percent = 1
	}
	b.WriteString(pad + v.bar.ViewAs(percent) + "\n\n")

	switch {
	case v.finished && v.err == nil:
		b.WriteString(pad + v.styles.Success.Render("Model ready.") + "\n")
	case v.finished:
		b.WriteString(pad + v.styles.Error.Render("Download failed: "+v.err.Error()) + "\n")
	case v.cancelled:
		b.WriteString(pad + v.styles.Dim.Render("Cancelling...") + "\n")
	default:
		b.WriteString(pad + v.help.ShortHelpView(v.keys.ShortHelp()) + "\n")
	}

	return b.String()
}

// Err returns the Download result once the view has finished.
func (v *View) Err() error {
	return v.err
}

// Finished returns true once the Download call has returned.
func (v *View) Finished() bool {
	return v.finished
}

// State returns the last observed download state.
func (v *View) State() domain.DownloadState {
	return v.state
}

func (v *View) waitForEvent() tea.Cmd {
	events := v.events
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return messages.EventsClosed{}
		}
		return messages.DownloadProgressed{Event: event}
	}
}

func (v *View) waitForResult() tea.Cmd {
	result := v.result
	return func() tea.Msg {
		return messages.DownloadFinished{Err: <-result}
	}
}

// Run downloads modelID while rendering the view to out. It returns the
// Download result.
func Run(ctx context.Context, svc driving.ModelService, modelID string, out io.Writer) error {
	events, unsubscribe := svc.Subscribe()
	defer unsubscribe()

	dlCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var dlErr error
	done := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		dlErr = svc.Download(dlCtx, modelID)
		result <- dlErr
		close(done)
	}()

	view := NewView(modelID, events, result, cancel, nil)
	if _, err := tea.NewProgram(view, tea.WithOutput(out), tea.WithContext(ctx)).Run(); err != nil {
		cancel()
		<-done
		if dlErr != nil {
			return dlErr
		}
		return fmt.Errorf("running download view: %w", err)
	}

	<-done
	return dlErr
}

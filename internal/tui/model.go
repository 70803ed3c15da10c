// Package tui renders a live terminal view of one agentpulse poller.
//
// The model never blocks on the network: it re-reads the poller's
// snapshot on a short tick and redraws from that copy.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpalmerr/agentpulse"
)

const defaultRefreshInterval = 250 * time.Millisecond

// SnapshotSource is the read side of a running poller.
// *agentpulse.Handle satisfies it.
type SnapshotSource interface {
	Snapshot() agentpulse.Snapshot
	Endpoint() string
}

// Options configures a Model.
type Options struct {
	// RefreshInterval is how often the snapshot is re-read. Defaults to 250ms.
	RefreshInterval time.Duration

	// NoColor renders without ANSI styling.
	NoColor bool

	// Now overrides the clock used for ages. Defaults to time.Now.
	Now func() time.Time
}

// Model is the Bubble Tea model for the watch view.
type Model struct {
	src     SnapshotSource
	snap    agentpulse.Snapshot
	spinner spinner.Model
	styles  Styles
	refresh time.Duration
	now     func() time.Time
	width   int
}

type tickMsg time.Time

// NewModel creates a watch model reading from src.
func NewModel(src SnapshotSource, opts Options) Model {
	refresh := opts.RefreshInterval
	if refresh <= 0 {
		refresh = defaultRefreshInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	styles := DefaultStyles()
	if opts.NoColor {
		styles = PlainStyles()
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = styles.Muted

	return Model{
		src:     src,
		snap:    src.Snapshot(),
		spinner: sp,
		styles:  styles,
		refresh: refresh,
		now:     now,
	}
}

// Init starts the spinner and the refresh tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick(m.refresh))
}

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		m.snap = m.src.Snapshot()
		return m, tick(m.refresh)
	case spinner.TickMsg:
		// loading never comes back once a poll resolves, so the spinner
		// is allowed to stop here.
		if !m.snap.IsLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

// View renders the current snapshot.
func (m Model) View() string {
	return render(m.viewState())
}

// Snapshot returns the snapshot the model last rendered from.
func (m Model) Snapshot() agentpulse.Snapshot {
	return m.snap
}

func (m Model) viewState() viewState {
	return viewState{
		endpoint: m.src.Endpoint(),
		snap:     m.snap,
		spinner:  m.spinner.View(),
		styles:   m.styles,
		width:    m.width,
		now:      m.now(),
	}
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

package ui

import (
	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"mediakiller/internal/interrupt"
	"mediakiller/internal/progress"
)

// recentLimit is how many finished missions stay on screen.
const recentLimit = 6

// Model renders scheduler events. It never controls the run directly: quit
// keys are forwarded to the cancel func and the view stays up until the
// scheduler reports StageDone.
type Model struct {
	events <-chan progress.Event
	cancel func() interrupt.Level

	total     int
	estimated int
	last      progress.Event

	current *jobState
	recent  []jobState

	succeeded, skipped, failed, cancelled int

	stopping interrupt.Level
	done     bool
	summary  string

	overall bubblesprogress.Model
	spinner spinner.Model

	width  int
	styles Styles
}

// NewModel returns a Model reading from events. cancel may be nil.
func NewModel(events <-chan progress.Event, total int, cancel func() interrupt.Level) Model {
	sty := defaultStyles()
	sp := spinner.New()
	sp.Style = sty.Spinner
	return Model{
		events:  events,
		cancel:  cancel,
		total:   total,
		styles:  sty,
		spinner: sp,
		overall: bubblesprogress.New(
			bubblesprogress.WithDefaultGradient(),
			bubblesprogress.WithWidth(50),
		),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenEventsCmd())
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg{ev: ev}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.stopping = m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 20; w > 10 && w < 80 {
			m.overall.Width = w
		}
		return m, nil

	case closedMsg:
		m.done = true
		return m, tea.Quit

	case eventMsg:
		m.handle(msg.ev)
		if m.done {
			return m, tea.Quit
		}
		return m, m.listenEventsCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handle(ev progress.Event) {
	if ev.Total > 0 {
		m.total = ev.Total
	}
	switch ev.Stage {
	case progress.StageEstimating:
		m.estimated = ev.Index
		return
	case progress.StageDone:
		m.done = true
		m.summary = ev.Message
		m.last = ev
		m.finishCurrent()
		return
	}
	m.last = ev

	if m.current == nil || m.current.index != ev.Index {
		m.finishCurrent()
		js := newJobState(ev)
		m.current = &js
	}
	m.current.apply(ev)

	if ev.Stage.Terminal() {
		switch ev.Stage {
		case progress.StageCompleted:
			m.succeeded++
		case progress.StageSkipped:
			m.skipped++
		case progress.StageFailed:
			m.failed++
		case progress.StageCancelled:
			m.cancelled++
		}
		m.finishCurrent()
	}
}

func (m *Model) finishCurrent() {
	if m.current == nil {
		return
	}
	m.recent = append(m.recent, *m.current)
	if len(m.recent) > recentLimit {
		m.recent = m.recent[len(m.recent)-recentLimit:]
	}
	m.current = nil
}

func (m Model) View() string {
	return m.viewHeader() + "\n\n" + m.viewOverall() + "\n\n" + m.viewJobs() + m.viewFooter()
}

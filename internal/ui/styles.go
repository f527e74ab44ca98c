package ui

import (
	"github.com/charmbracelet/lipgloss"

	"mediakiller/internal/progress"
)

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#5B3CC4", Dark: "#7D56F4"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#52525B", Dark: "#A3A3A3"}
	colorText   = lipgloss.AdaptiveColor{Light: "#27272A", Dark: "#D1D5DB"}
	colorOK     = lipgloss.Color("#22C55E")
	colorBad    = lipgloss.Color("#EF4444")
	colorWarn   = lipgloss.Color("#F59E0B")
	colorProbe  = lipgloss.Color("#60A5FA")
	colorEncode = lipgloss.Color("#D946EF")
	colorSkip   = lipgloss.Color("#06B6D4")
)

type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Header   lipgloss.Style
	JobTitle lipgloss.Style
	JobInfo  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Faint    lipgloss.Style
	Box      lipgloss.Style
	Spinner  lipgloss.Style

	stages map[progress.Stage]lipgloss.Style
}

func defaultStyles() Styles {
	base := lipgloss.NewStyle()
	fg := func(c lipgloss.TerminalColor) lipgloss.Style { return base.Foreground(c) }
	return Styles{
		Title:    base.Bold(true).Foreground(colorAccent),
		Subtitle: base.Faint(true),
		Header:   base.Bold(true),
		JobTitle: fg(colorMuted),
		JobInfo:  fg(colorText),
		Warning:  fg(colorWarn),
		Error:    fg(colorBad),
		Faint:    base.Faint(true),
		Box:      base.Padding(0, 1),
		Spinner:  fg(colorSkip),
		stages: map[progress.Stage]lipgloss.Style{
			progress.StageEstimating: fg(colorProbe),
			progress.StageStarted:    fg(colorEncode),
			progress.StageEncoding:   fg(colorEncode),
			progress.StageCompleted:  fg(colorOK),
			progress.StageSkipped:    fg(colorSkip),
			progress.StageFailed:     fg(colorBad),
			progress.StageCancelled:  fg(colorWarn),
		},
	}
}

// Stage returns the color used for a stage label.
func (s Styles) Stage(stage progress.Stage) lipgloss.Style {
	if st, ok := s.stages[stage]; ok {
		return st
	}
	return s.Faint
}

var stageMarks = map[progress.Stage]string{
	progress.StageCompleted: "✓",
	progress.StageSkipped:   "↷",
	progress.StageFailed:    "✗",
	progress.StageCancelled: "■",
}

// Mark renders the one-character outcome of a finished mission.
func (s Styles) Mark(stage progress.Stage) string {
	m, ok := stageMarks[stage]
	if !ok {
		m = "·"
	}
	return s.Stage(stage).Render(m)
}

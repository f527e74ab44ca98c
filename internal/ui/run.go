package ui

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"mediakiller/internal/interrupt"
	"mediakiller/internal/progress"
	"mediakiller/internal/util/format"
)

// Run shows the TUI until the scheduler reports StageDone or the event
// channel closes. The caller must keep draining events if Run returns early
// with an error.
func Run(ctx context.Context, events <-chan progress.Event, total int, cancel func() interrupt.Level) error {
	prog := tea.NewProgram(NewModel(events, total, cancel), tea.WithContext(ctx))
	_, err := prog.Run()
	return err
}

// Plain writes one line per mission outcome, for non-interactive output.
// It returns when StageDone arrives or events is closed.
func Plain(w io.Writer, events <-chan progress.Event) {
	for ev := range events {
		switch ev.Stage {
		case progress.StageStarted:
			fmt.Fprintf(w, "%s %s\n", Counter(ev.Index, ev.Total), ev.Mission)
		case progress.StageCompleted:
			fmt.Fprintf(w, "%s %s: done (%s / %s)\n", Counter(ev.Index, ev.Total), ev.Mission,
				format.FormatDuration(ev.Overall), format.FormatDuration(ev.OverallTotal))
		case progress.StageSkipped:
			fmt.Fprintf(w, "%s %s: skipped, %s exists\n", Counter(ev.Index, ev.Total), ev.Mission, targetName(ev.Targets))
		case progress.StageFailed, progress.StageCancelled:
			msg := ev.Message
			if ev.Err != nil {
				msg = ev.Err.Error()
			}
			fmt.Fprintf(w, "%s %s: %s: %s\n", Counter(ev.Index, ev.Total), ev.Mission, ev.Stage, msg)
		case progress.StageDone:
			fmt.Fprintln(w, ev.Message)
			return
		}
	}
}

func targetName(targets []string) string {
	if len(targets) == 0 {
		return "target"
	}
	return filepath.Base(targets[0])
}

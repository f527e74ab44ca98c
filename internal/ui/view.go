package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"mediakiller/internal/interrupt"
	"mediakiller/internal/progress"
	"mediakiller/internal/util/format"
)

func (m Model) viewHeader() string {
	finished := m.succeeded + m.skipped + m.failed + m.cancelled
	title := m.styles.Title.Render("mediakiller")
	hint := "q: stop"
	switch m.stopping {
	case interrupt.Soft:
		hint = m.styles.Warning.Render("stopping after cleanup, q again to kill")
	case interrupt.Hard:
		hint = m.styles.Error.Render("killing")
	}
	sub := m.styles.Subtitle.Render(fmt.Sprintf("Missions: %d/%d done • ", finished, m.total)) + hint
	return title + "\n" + sub
}

func (m Model) viewOverall() string {
	if m.last.OverallTotal <= 0 && !m.done {
		return m.styles.Stage(progress.StageEstimating).Render(m.spinner.View()+" estimating") +
			m.styles.Faint.Render(fmt.Sprintf(" %d/%d", m.estimated, m.total))
	}
	f := m.last.Fraction()
	return fmt.Sprintf("%s %5.1f%%  %s / %s",
		m.overall.ViewAs(f), f*100,
		format.FormatDuration(m.last.Overall), format.FormatDuration(m.last.OverallTotal))
}

func (m Model) viewJobs() string {
	var b strings.Builder
	for i := range m.recent {
		b.WriteString(m.viewFinished(&m.recent[i]))
		b.WriteString("\n")
	}
	if m.current != nil {
		b.WriteString(m.viewJob(m.current))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewFinished(js *jobState) string {
	mark := m.styles.Mark(js.stage)
	line := fmt.Sprintf("%s %s %s", Counter(js.index, m.total), mark, m.styles.JobTitle.Render(truncate(js.name, 48)))
	if js.status != "" && js.stage != progress.StageCompleted {
		line += "  " + m.styles.Faint.Render(truncate(js.status, 60))
	}
	return m.styles.Box.Render(line)
}

func (m Model) viewJob(js *jobState) string {
	left := m.styles.JobTitle.Render(Counter(js.index, m.total) + " " + truncate(js.name, 48))
	stage := m.styles.Stage(js.stage).Render(string(js.stage))

	var right string
	if js.percent >= 0 && js.percent <= 100 {
		right = fmt.Sprintf("%s %5.1f%%", js.bar.ViewAs(js.percent/100.0), js.percent)
	} else {
		right = m.styles.Spinner.Render(m.spinner.View()) + " " + m.styles.Faint.Render("working")
	}

	info := statusLine(js.last)
	if len(js.targets) > 0 {
		info = strings.TrimSpace(info + "  → " + filepath.Base(js.targets[0]))
	}
	line1 := fmt.Sprintf("%s  %s", left, stage)
	line2 := m.styles.JobInfo.Render(info)
	return m.styles.Box.Render(line1 + "\n" + right + "\n" + line2)
}

func (m Model) viewFooter() string {
	if !m.done || m.summary == "" {
		return ""
	}
	return "\n" + m.styles.Header.Render(m.summary) + "\n"
}

// statusLine renders the encoder's own counters.
func statusLine(st *progress.CodingStatus) string {
	if st == nil {
		return ""
	}
	var parts []string
	if st.Frame != nil {
		parts = append(parts, fmt.Sprintf("frame=%d", *st.Frame))
	}
	if st.FPS != nil {
		parts = append(parts, fmt.Sprintf("fps=%.0f", *st.FPS))
	}
	if st.Size != nil {
		parts = append(parts, "size="+format.HumanizeBytes(*st.Size))
	}
	if st.Bitrate != nil {
		parts = append(parts, fmt.Sprintf("%.0fkbits/s", *st.Bitrate))
	}
	if st.Speed != nil {
		parts = append(parts, fmt.Sprintf("%.2fx", *st.Speed))
	}
	return strings.Join(parts, " ")
}

// Counter renders a 1-based job counter padded to the width of total, e.g. "[ 3/12]".
func Counter(index, total int) string {
	w := len(fmt.Sprint(total))
	return fmt.Sprintf("[%*d/%d]", w, index+1, total)
}

func truncate(s string, n int) string {
	if n <= 0 || len([]rune(s)) <= n {
		return s
	}
	rs := []rune(s)
	return string(rs[:n-1]) + "…"
}

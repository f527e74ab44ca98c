package ui

import (
	bubblesprogress "github.com/charmbracelet/bubbles/progress"

	"mediakiller/internal/progress"
)

type jobState struct {
	index   int
	name    string
	targets []string
	stage   progress.Stage
	status  string
	percent float64 // -1 means unknown

	last *progress.CodingStatus
	bar  bubblesprogress.Model
}

func newJobState(ev progress.Event) jobState {
	bar := bubblesprogress.New(
		bubblesprogress.WithDefaultGradient(),
		bubblesprogress.WithWidth(40),
	)
	return jobState{
		index:   ev.Index,
		name:    ev.Mission,
		targets: ev.Targets,
		stage:   ev.Stage,
		percent: -1,
		bar:     bar,
	}
}

func (js *jobState) apply(ev progress.Event) {
	js.stage = ev.Stage
	if ev.Message != "" {
		js.status = ev.Message
	}
	if ev.Err != nil {
		js.status = ev.Err.Error()
	}
	if ev.Status != nil {
		js.last = ev.Status
	}
	switch {
	case ev.Stage == progress.StageCompleted:
		js.percent = 100
	case ev.Stage.Terminal():
		js.percent = -1
	case ev.Duration > 0 && ev.Status != nil:
		js.percent = ev.MissionFraction() * 100
	}
}

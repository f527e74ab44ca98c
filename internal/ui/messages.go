package ui

import "mediakiller/internal/progress"

type eventMsg struct {
	ev progress.Event
}

// closedMsg reports that the event channel was closed without a StageDone.
type closedMsg struct{}

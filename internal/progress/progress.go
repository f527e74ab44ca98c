// Package progress defines the messages that flow from the encoder
// supervisor to the scheduler and from the scheduler to any UI.
package progress

import "time"

// CodingStatus is one snapshot of encoder progress. Every field is optional
// because a status line may report only a subset.
type CodingStatus struct {
	Frame   *int64
	FPS     *float64
	Quality *float64
	Size    *int64         // bytes written so far
	Time    *time.Duration // elapsed media time
	Bitrate *float64       // kbit/s
	Speed   *float64       // multiple of real time
}

// Empty reports whether no field is set.
func (s CodingStatus) Empty() bool {
	return s.Frame == nil && s.FPS == nil && s.Quality == nil && s.Size == nil &&
		s.Time == nil && s.Bitrate == nil && s.Speed == nil
}

// Merge returns s with every field set in next overriding it.
func (s CodingStatus) Merge(next CodingStatus) CodingStatus {
	if next.Frame != nil {
		s.Frame = next.Frame
	}
	if next.FPS != nil {
		s.FPS = next.FPS
	}
	if next.Quality != nil {
		s.Quality = next.Quality
	}
	if next.Size != nil {
		s.Size = next.Size
	}
	if next.Time != nil {
		s.Time = next.Time
	}
	if next.Bitrate != nil {
		s.Bitrate = next.Bitrate
	}
	if next.Speed != nil {
		s.Speed = next.Speed
	}
	return s
}

// Stage identifies what an Event reports.
type Stage string

const (
	StageEstimating Stage = "estimating" // duration probing; Index counts probed missions
	StageStarted    Stage = "started"    // a mission's encoder was launched
	StageEncoding   Stage = "encoding"   // a status snapshot arrived
	StageCompleted  Stage = "completed"
	StageSkipped    Stage = "skipped"
	StageFailed     Stage = "failed"
	StageCancelled  Stage = "cancelled"
	StageDone       Stage = "done" // the run finished; no further events follow
)

// Terminal reports whether the stage closes a mission.
func (s Stage) Terminal() bool {
	switch s {
	case StageCompleted, StageSkipped, StageFailed, StageCancelled:
		return true
	}
	return false
}

// Event is published by the scheduler on its event channel.
type Event struct {
	Stage   Stage
	Index   int // zero-based mission index
	Total   int // number of missions
	Mission string
	Targets []string

	Status *CodingStatus // set for StageEncoding

	// Duration is the current mission's expected media duration and Elapsed
	// its encoded media time so far.
	Duration time.Duration
	Elapsed  time.Duration

	// Overall is completed durations plus Elapsed; OverallTotal is the sum
	// of all mission durations.
	Overall      time.Duration
	OverallTotal time.Duration

	Message string
	Err     error
}

// Fraction returns the overall completion in [0,1].
func (e Event) Fraction() float64 {
	if e.OverallTotal <= 0 {
		return 0
	}
	f := float64(e.Overall) / float64(e.OverallTotal)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// MissionFraction returns the current mission's completion in [0,1].
func (e Event) MissionFraction() float64 {
	if e.Duration <= 0 {
		return 0
	}
	f := float64(e.Elapsed) / float64(e.Duration)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

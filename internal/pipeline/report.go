package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"

	"mediakiller/internal/encoder"
	"mediakiller/internal/mission"
	"mediakiller/internal/util/format"
)

// Status is the outcome class of one mission.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Outcome records what happened to one mission.
type Outcome struct {
	Index   int
	Name    string
	Source  string
	Targets []string
	Status  Status

	Duration time.Duration // expected media duration
	Elapsed  time.Duration // wall time spent in the encoder
	Bytes    int64         // total target size on success
	Result   encoder.Result
	Err      error

	Cleaned    []string
	CleanupErr error
}

func newOutcome(i int, ms mission.Mission) Outcome {
	return Outcome{Index: i, Name: ms.Name(), Source: ms.Source, Targets: ms.Targets()}
}

// Report summarizes a run.
type Report struct {
	RunID string
	State State
	Err   error // set only when the run could not start

	Outcomes []Outcome

	Succeeded int
	Skipped   int
	Failed    int
	Cancelled int

	// Targets are the distinct files produced by succeeded missions and
	// TotalBytes their combined size.
	Targets    []string
	TotalBytes int64

	Cleaned    []string
	CleanupErr error

	MediaTotal time.Duration // sum of all estimated durations
	MediaDone  time.Duration // sum of succeeded missions' durations
	Elapsed    time.Duration
	Speed      float64 // MediaDone / Elapsed
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case StatusSucceeded:
		r.Succeeded++
		r.MediaDone += o.Duration
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	case StatusCancelled:
		r.Cancelled++
	}
	r.Cleaned = append(r.Cleaned, o.Cleaned...)
	r.CleanupErr = multierr.Append(r.CleanupErr, o.CleanupErr)
}

func (r *Report) finish() {
	seen := make(map[string]struct{})
	r.Targets = r.Targets[:0]
	r.TotalBytes = 0
	for _, o := range r.Outcomes {
		if o.Status != StatusSucceeded {
			continue
		}
		for _, t := range o.Targets {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			r.Targets = append(r.Targets, t)
		}
		r.TotalBytes += o.Bytes
	}
	sort.Strings(r.Targets)
	if r.Elapsed > 0 {
		r.Speed = float64(r.MediaDone) / float64(r.Elapsed)
	}
}

// Errors returns the failed outcomes' errors combined.
func (r Report) Errors() error {
	var err error
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			err = multierr.Append(err, fmt.Errorf("%s: %w", o.Name, o.Err))
		}
	}
	return err
}

// Summary is a one-line description of the run.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d succeeded, %d skipped, %d failed, %d cancelled",
		r.Succeeded, r.Skipped, r.Failed, r.Cancelled)
	if len(r.Targets) > 0 {
		fmt.Fprintf(&b, "; %d file(s), %s", len(r.Targets), format.HumanizeBytes(r.TotalBytes))
	}
	if r.Elapsed > 0 {
		fmt.Fprintf(&b, " in %s", format.FormatDuration(r.Elapsed))
		if r.Speed > 0 {
			fmt.Fprintf(&b, " (%.2fx)", r.Speed)
		}
	}
	return b.String()
}

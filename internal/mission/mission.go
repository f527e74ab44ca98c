package mission

import (
	"errors"
	"fmt"
	"path/filepath"

	"mediakiller/internal/model"
	"mediakiller/internal/util"
)

var (
	// ErrSelfOverwrite is returned when a target resolves to the source file.
	ErrSelfOverwrite = errors.New("target would overwrite source")
	// ErrNoOutputs is returned for a mission without any output group.
	ErrNoOutputs = errors.New("mission has no outputs")
)

// Mission is one fully-resolved transcode job. It is treated as read-only
// once built; durations are resolved separately by the scheduler.
type Mission struct {
	EncoderPath string
	Source      string
	Preset      *model.Preset
	Overwrite   bool

	Global  ArgumentGroup
	Inputs  []ArgumentGroup
	Outputs []ArgumentGroup
}

// Name is a short label for progress output.
func (m Mission) Name() string {
	return filepath.Base(m.Source)
}

// Targets returns the output file names in order.
func (m Mission) Targets() []string {
	out := make([]string, 0, len(m.Outputs))
	for _, o := range m.Outputs {
		out = append(out, o.FileName)
	}
	return out
}

// Args assembles the encoder argv: global options, each input's options with
// "-i file", then each output's options with its file name.
func (m Mission) Args() []string {
	args := m.Global.Arguments()
	for _, in := range m.Inputs {
		args = append(args, in.Arguments()...)
		args = append(args, "-i", in.FileName)
	}
	for _, out := range m.Outputs {
		args = append(args, out.Arguments()...)
		args = append(args, out.FileName)
	}
	return args
}

// CommandLine renders the invocation with shell quoting.
func (m Mission) CommandLine() string {
	return util.ShellQuote(m.EncoderPath, m.Args())
}

// Validate rejects missions that would write onto their own source.
func (m Mission) Validate() error {
	if len(m.Outputs) == 0 {
		return ErrNoOutputs
	}
	for _, t := range m.Targets() {
		if util.SamePath(m.Source, t) {
			return fmt.Errorf("%w: %s", ErrSelfOverwrite, t)
		}
	}
	return nil
}

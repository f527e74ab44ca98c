// Package logging builds the process-wide hclog logger.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// Options selects level, format, and destination.
type Options struct {
	Verbose bool
	Trace   bool
	JSON    bool
	File    string // appended to when set; stderr otherwise
	Level   string // overrides Verbose/Trace when it names a valid level
}

// New returns the logger and a close func for any file it opened.
// When quiet is set and no file is given, only warnings reach stderr so the
// progress UI is not disturbed.
func New(opts Options, quiet bool) (hclog.Logger, func() error, error) {
	level := hclog.Info
	switch {
	case opts.Trace:
		level = hclog.Trace
	case opts.Verbose:
		level = hclog.Debug
	case quiet:
		level = hclog.Warn
	}
	if opts.Level != "" {
		if l := hclog.LevelFromString(opts.Level); l != hclog.NoLevel {
			level = l
		}
	}

	var out io.Writer = os.Stderr
	closer := func() error { return nil }
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, closer, err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, closer, err
		}
		out = f
		closer = f.Close
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:            "mediakiller",
		Output:          out,
		Level:           level,
		JSONFormat:      opts.JSON,
		IncludeLocation: level == hclog.Trace,
		Color:           hclog.AutoColor,
	}), closer, nil
}

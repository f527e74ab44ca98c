// Package encoder supervises encoder processes and turns their status
// output into structured progress.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"mediakiller/internal/progress"
	"mediakiller/internal/util"
)

// DefaultGrace is how long a process gets to honor the quit request before it is killed.
const DefaultGrace = time.Second

// Spec describes one encoder invocation.
type Spec struct {
	Path string
	Args []string
	Env  []string // appended to the inherited environment
	Dir  string

	// Statuses receives one merged snapshot per recognized status line, in
	// line order. Run returns only after the last send.
	Statuses chan<- progress.CodingStatus

	// Force, when closed, skips the grace period and kills the process.
	Force <-chan struct{}

	// Timeout cancels the run through the normal stop protocol. Zero disables.
	Timeout time.Duration
}

// Result is the outcome of one run. Success requires exit code 0 and no cancellation.
type Result struct {
	Success   bool
	Cancelled bool
	TimedOut  bool
	ExitCode  int
	Err       error    // spawn failure or non-zero exit; nil when cancelled
	Tail      []string // last non-status output lines, for diagnostics
	Elapsed   time.Duration
}

// Supervisor runs encoder processes one at a time per call.
type Supervisor struct {
	grace    time.Duration
	tailSize int
	logger   hclog.Logger
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithGrace sets the quit grace period.
func WithGrace(d time.Duration) Option {
	return func(s *Supervisor) {
		s.grace = d
	}
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// WithTailSize sets how many trailing output lines are kept for Result.Tail.
func WithTailSize(n int) Option {
	return func(s *Supervisor) {
		s.tailSize = n
	}
}

// NewSupervisor constructs a Supervisor.
func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{grace: DefaultGrace, tailSize: 20}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = hclog.NewNullLogger()
	}
	return s
}

// Run starts the process and blocks until it exits. Cancelling ctx writes
// "q" to the process's stdin, waits the grace period, then kills it.
func (s *Supervisor) Run(ctx context.Context, spec Spec) Result {
	started := time.Now()
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if spec.Env != nil {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	stdin, stdout, stderr, err := start(cmd)
	if err != nil {
		return Result{ExitCode: -1, Err: fmt.Errorf("start %s: %w", spec.Path, err), Elapsed: time.Since(started)}
	}
	log := s.logger.With("pid", cmd.Process.Pid)
	log.Debug("encoder started", "cmd", util.ShellQuote(spec.Path, spec.Args))

	lines := make(chan string, 64)
	var readers sync.WaitGroup
	readers.Add(2)
	for _, r := range []io.Reader{stdout, stderr} {
		go func(r io.Reader) {
			defer readers.Done()
			sc := util.NewLineScanner(r)
			for sc.Scan() {
				lines <- sc.Text()
			}
		}(r)
	}
	go func() {
		readers.Wait()
		close(lines)
	}()

	tail := newRing(s.tailSize)
	parsed := make(chan struct{})
	go func() {
		defer close(parsed)
		var cur progress.CodingStatus
		for line := range lines {
			st, ok := ParseStatusLine(line)
			if !ok {
				if line != "" {
					tail.add(line)
				}
				log.Trace("encoder output", "line", line)
				continue
			}
			cur = cur.Merge(st)
			if spec.Statuses != nil {
				spec.Statuses <- cur
			}
		}
	}()

	done := make(chan error, 1)
	go func() {
		// Pipes must be drained before Wait closes them.
		readers.Wait()
		done <- cmd.Wait()
	}()

	var (
		waitErr   error
		cancelled bool
		timedOut  bool
	)
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		cancelled = true
		timedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		waitErr = s.stop(log, cmd, stdin, done, spec.Force)
	case <-spec.Force:
		cancelled = true
		log.Debug("hard stop requested")
		_ = cmd.Process.Kill()
		waitErr = <-done
	}
	_ = stdin.Close()
	<-parsed

	res := Result{
		Cancelled: cancelled,
		TimedOut:  timedOut,
		ExitCode:  util.ExitCode(waitErr),
		Tail:      tail.lines(),
		Elapsed:   time.Since(started),
	}
	res.Success = res.ExitCode == 0 && !cancelled
	if !res.Success && !cancelled {
		res.Err = fmt.Errorf("%s exited with code %d", filepath.Base(spec.Path), res.ExitCode)
	}
	log.Debug("encoder finished", "exit_code", res.ExitCode, "cancelled", cancelled, "elapsed", res.Elapsed)
	return res
}

// start wires the three pipes and launches cmd. Any failure means the
// process never ran.
func start(cmd *exec.Cmd) (stdin io.WriteCloser, stdout, stderr io.ReadCloser, err error) {
	if stdin, err = cmd.StdinPipe(); err != nil {
		return nil, nil, nil, err
	}
	if stdout, err = cmd.StdoutPipe(); err != nil {
		_ = stdin.Close()
		return nil, nil, nil, err
	}
	if stderr, err = cmd.StderrPipe(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return nil, nil, nil, err
	}
	if err = cmd.Start(); err != nil {
		return nil, nil, nil, err
	}
	return stdin, stdout, stderr, nil
}

// stop asks the process to quit, then kills it once the grace period runs
// out or force fires.
func (s *Supervisor) stop(log hclog.Logger, cmd *exec.Cmd, stdin io.WriteCloser, done <-chan error, force <-chan struct{}) error {
	if _, err := io.WriteString(stdin, "q"); err != nil {
		log.Debug("quit request not delivered", "error", err)
	}
	timer := time.NewTimer(s.grace)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		log.Warn("encoder ignored quit request, killing", "grace", s.grace)
	case <-force:
		log.Debug("hard stop requested during grace period")
	}
	_ = cmd.Process.Kill()
	return <-done
}

type ring struct {
	buf  []string
	next int
	full bool
}

func newRing(n int) *ring {
	if n <= 0 {
		n = 1
	}
	return &ring{buf: make([]string, n)}
}

func (r *ring) add(s string) {
	r.buf[r.next] = s
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) lines() []string {
	if !r.full {
		return append([]string(nil), r.buf[:r.next]...)
	}
	out := make([]string, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

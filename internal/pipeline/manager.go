// Package pipeline schedules missions: it estimates their durations, runs
// them one at a time through an encoder supervisor, and reports the outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"mediakiller/internal/encoder"
	"mediakiller/internal/mediainfo"
	"mediakiller/internal/mission"
	"mediakiller/internal/progress"
	"mediakiller/internal/util/deps"
)

const (
	// DefaultProbeJobs bounds concurrent duration lookups during estimation.
	DefaultProbeJobs = 8
	// DefaultFallbackDuration stands in for a mission whose duration cannot
	// be probed, so it still carries weight in the aggregate bound.
	DefaultFallbackDuration = time.Second
)

var (
	// ErrEncoderMissing is reported for missions whose encoder binary cannot be found.
	ErrEncoderMissing = errors.New("encoder binary not found")
	// ErrAlreadyRunning is returned when Run is called on a busy Manager.
	ErrAlreadyRunning = errors.New("scheduler is already running")
)

// State is the scheduler lifecycle.
type State int32

const (
	StateIdle State = iota
	StateEstimating
	StateRunning
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEstimating:
		return "estimating"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// DurationSource resolves media durations. *mediainfo.Cache satisfies it.
type DurationSource interface {
	Get(ctx context.Context, path string) (mediainfo.Info, error)
}

// Runner executes one encoder process. *encoder.Supervisor satisfies it.
type Runner interface {
	Run(ctx context.Context, spec encoder.Spec) encoder.Result
}

// Manager is the job scheduler.
type Manager struct {
	durations DurationSource
	runner    Runner
	events    chan<- progress.Event
	logger    hclog.Logger
	fs        afero.Fs
	lookPath  func(string) (string, error)
	force     <-chan struct{}
	probeJobs int
	fallback  time.Duration
	timeout   time.Duration

	state atomic.Int32
	mu    sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithDurations sets where mission durations come from.
func WithDurations(d DurationSource) Option {
	return func(m *Manager) {
		m.durations = d
	}
}

// WithRunner sets the encoder runner.
func WithRunner(r Runner) Option {
	return func(m *Manager) {
		m.runner = r
	}
}

// WithEvents sets the channel that receives progress events. Sends block,
// so the consumer must drain until a StageDone event.
func WithEvents(ch chan<- progress.Event) Option {
	return func(m *Manager) {
		m.events = ch
	}
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithFs sets the filesystem used for target checks and cleanup.
func WithFs(fs afero.Fs) Option {
	return func(m *Manager) {
		m.fs = fs
	}
}

// WithLookPath replaces the encoder binary lookup.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(m *Manager) {
		m.lookPath = fn
	}
}

// WithForceStop sets the channel whose closing kills the running encoder
// without a grace period.
func WithForceStop(ch <-chan struct{}) Option {
	return func(m *Manager) {
		m.force = ch
	}
}

// WithProbeJobs bounds concurrent duration lookups.
func WithProbeJobs(n int) Option {
	return func(m *Manager) {
		m.probeJobs = n
	}
}

// WithFallbackDuration sets the duration used when probing fails.
func WithFallbackDuration(d time.Duration) Option {
	return func(m *Manager) {
		m.fallback = d
	}
}

// WithMissionTimeout bounds each encoder run. Zero disables.
func WithMissionTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// New constructs a Manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		probeJobs: DefaultProbeJobs,
		fallback:  DefaultFallbackDuration,
	}
	for _, o := range opts {
		o(m)
	}
	if m.logger == nil {
		m.logger = hclog.NewNullLogger()
	}
	if m.fs == nil {
		m.fs = afero.NewOsFs()
	}
	if m.runner == nil {
		m.runner = encoder.NewSupervisor(encoder.WithLogger(m.logger))
	}
	if m.lookPath == nil {
		m.lookPath = func(p string) (string, error) { return deps.Find(p, p) }
	}
	if m.probeJobs <= 0 {
		m.probeJobs = DefaultProbeJobs
	}
	if m.fallback <= 0 {
		m.fallback = DefaultFallbackDuration
	}
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State { return State(m.state.Load()) }

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
	m.logger.Trace("scheduler state", "state", s)
}

func (m *Manager) emit(ev progress.Event) {
	if m.events != nil {
		m.events <- ev
	}
}

// Estimate resolves every mission's duration concurrently and returns them
// in mission order with their sum. Missions that cannot be probed get the
// fallback duration. Only cancellation of ctx is an error.
func (m *Manager) Estimate(ctx context.Context, missions []mission.Mission) ([]time.Duration, time.Duration, error) {
	durations := make([]time.Duration, len(missions))
	var probed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.probeJobs)
	for i := range missions {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d := m.fallback
			if m.durations != nil {
				info, err := m.durations.Get(gctx, missions[i].Source)
				switch {
				case err == nil && info.Duration > 0:
					d = info.Duration
				case gctx.Err() != nil:
					return gctx.Err()
				default:
					m.logger.Warn("duration unknown, using fallback",
						"source", missions[i].Source, "fallback", m.fallback, "error", err)
				}
			}
			durations[i] = d
			n := probed.Add(1)
			m.emit(progress.Event{
				Stage:    progress.StageEstimating,
				Index:    int(n),
				Total:    len(missions),
				Mission:  missions[i].Name(),
				Duration: d,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return durations, 0, err
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return durations, total, nil
}

// Run executes missions strictly in order and blocks until all are done or
// the run is cancelled. Cancelling ctx asks the running encoder to quit; the
// force channel kills it outright. Either way the current mission's targets
// are removed and the remaining missions are reported as cancelled.
func (m *Manager) Run(ctx context.Context, missions []mission.Mission) (rep Report) {
	started := time.Now()
	rep.RunID = uuid.NewString()

	m.mu.Lock()
	if s := m.State(); s == StateEstimating || s == StateRunning {
		m.mu.Unlock()
		rep.Err = ErrAlreadyRunning
		return rep
	}
	m.setState(StateEstimating)
	m.mu.Unlock()

	log := m.logger.With("run_id", rep.RunID)
	log.Info("run started", "missions", len(missions))

	r := &run{
		Manager:  m,
		log:      log,
		missions: missions,
		encoders: make(map[string]error),
	}
	defer func() {
		rep.Elapsed = time.Since(started)
		rep.finish()
		m.emit(progress.Event{
			Stage:        progress.StageDone,
			Total:        len(missions),
			Overall:      r.completed,
			OverallTotal: r.total,
			Message:      rep.Summary(),
		})
		log.Info("run finished", "state", rep.State, "succeeded", rep.Succeeded, "skipped", rep.Skipped,
			"failed", rep.Failed, "cancelled", rep.Cancelled, "elapsed", rep.Elapsed)
	}()

	var err error
	r.durations, r.total, err = m.Estimate(ctx, missions)
	if err != nil {
		log.Info("estimation interrupted", "error", err)
		for i := range missions {
			rep.add(r.notRun(i))
		}
		rep.State = StateCancelled
		m.setState(StateCancelled)
		return rep
	}
	rep.MediaTotal = r.total

	m.setState(StateRunning)
	for i := range missions {
		if ctx.Err() != nil || r.forced() {
			rep.add(r.notRun(i))
			continue
		}
		rep.add(r.mission(ctx, i))
	}

	rep.State = StateCompleted
	if ctx.Err() != nil || r.forced() {
		rep.State = StateCancelled
	}
	m.setState(rep.State)
	return rep
}

// run holds the per-Run bookkeeping.
type run struct {
	*Manager
	log       hclog.Logger
	missions  []mission.Mission
	durations []time.Duration
	total     time.Duration
	completed time.Duration

	encoders map[string]error
}

func (r *run) forced() bool {
	if r.force == nil {
		return false
	}
	select {
	case <-r.force:
		return true
	default:
		return false
	}
}

func (r *run) base(i int) progress.Event {
	ms := r.missions[i]
	return progress.Event{
		Index:        i,
		Total:        len(r.missions),
		Mission:      ms.Name(),
		Targets:      ms.Targets(),
		Duration:     r.durations[i],
		Overall:      r.completed,
		OverallTotal: r.total,
	}
}

func (r *run) notRun(i int) Outcome {
	o := newOutcome(i, r.missions[i])
	o.Status = StatusCancelled
	if r.durations != nil {
		o.Duration = r.durations[i]
	}
	return o
}

func (r *run) encoderErr(path string) error {
	if err, ok := r.encoders[path]; ok {
		return err
	}
	_, err := r.lookPath(path)
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrEncoderMissing, path, err)
	}
	r.encoders[path] = err
	return err
}

func (r *run) anyTargetExists(ms mission.Mission) (string, bool) {
	for _, t := range ms.Targets() {
		if ok, _ := afero.Exists(r.fs, t); ok {
			return t, true
		}
	}
	return "", false
}

// mission runs the pre-checks and, if they pass, the encoder for mission i.
func (r *run) mission(ctx context.Context, i int) Outcome {
	ms := r.missions[i]
	log := r.log.With("mission", ms.Name(), "index", i)
	o := newOutcome(i, ms)
	o.Duration = r.durations[i]

	// Every mission that was not cancelled counts fully toward overall
	// progress, whatever its result.
	finish := func(stage progress.Stage, msg string) Outcome {
		if stage != progress.StageCancelled {
			r.completed += o.Duration
		}
		ev := r.base(i)
		ev.Stage = stage
		ev.Message = msg
		ev.Err = o.Err
		if stage == progress.StageCompleted {
			ev.Elapsed = o.Duration
		}
		r.emit(ev)
		return o
	}

	if err := r.encoderErr(ms.EncoderPath); err != nil {
		o.Status, o.Err = StatusFailed, err
		log.Error("mission skipped", "error", err)
		return finish(progress.StageFailed, "encoder not found")
	}
	if err := ms.Validate(); err != nil {
		o.Status, o.Err = StatusFailed, err
		log.Error("mission rejected", "error", err)
		return finish(progress.StageFailed, "rejected")
	}
	if t, exists := r.anyTargetExists(ms); exists && !ms.Overwrite {
		o.Status = StatusSkipped
		log.Info("target exists, skipping", "target", t)
		return finish(progress.StageSkipped, "already done")
	}

	if err := r.makeFolders(ms); err != nil {
		o.Status, o.Err = StatusFailed, err
		log.Error("cannot create target folder", "error", err)
		return finish(progress.StageFailed, "no target folder")
	}

	ev := r.base(i)
	ev.Stage = progress.StageStarted
	ev.Message = ms.CommandLine()
	r.emit(ev)
	log.Debug("mission started", "cmd", ms.CommandLine())

	statuses := make(chan progress.CodingStatus, 16)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for st := range statuses {
			st := st
			ev := r.base(i)
			ev.Stage = progress.StageEncoding
			ev.Status = &st
			if st.Time != nil {
				ev.Elapsed = clamp(*st.Time, o.Duration)
			}
			ev.Overall = r.completed + ev.Elapsed
			r.emit(ev)
		}
	}()

	res := r.runner.Run(ctx, encoder.Spec{
		Path:     ms.EncoderPath,
		Args:     ms.Args(),
		Statuses: statuses,
		Force:    r.force,
		Timeout:  r.timeout,
	})
	close(statuses)
	<-forwarded

	o.Result = res
	o.Elapsed = res.Elapsed
	switch {
	case res.Success:
		o.Status = StatusSucceeded
		for _, t := range ms.Targets() {
			if fi, err := r.fs.Stat(t); err == nil {
				o.Bytes += fi.Size()
			}
		}
		log.Info("mission completed", "elapsed", res.Elapsed)
		return finish(progress.StageCompleted, "")
	case res.Cancelled && !res.TimedOut:
		o.Status = StatusCancelled
	default:
		o.Status = StatusFailed
		o.Err = res.Err
		if res.TimedOut {
			o.Err = fmt.Errorf("timed out after %s", r.timeout)
		}
		log.Error("mission failed", "exit_code", res.ExitCode, "error", o.Err, "tail", res.Tail)
	}

	o.Cleaned, o.CleanupErr = r.cleanup(ms)
	if o.CleanupErr != nil {
		log.Warn("cleanup incomplete", "error", o.CleanupErr)
	}
	if o.Status == StatusCancelled {
		log.Info("mission cancelled", "removed", o.Cleaned)
		return finish(progress.StageCancelled, "cancelled")
	}
	return finish(progress.StageFailed, "failed")
}

// makeFolders creates the parent folder of every target.
func (r *run) makeFolders(ms mission.Mission) error {
	for _, t := range ms.Targets() {
		dir := filepath.Dir(t)
		if ok, _ := afero.DirExists(r.fs, dir); ok {
			continue
		}
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		r.log.Debug("target folder created", "path", dir)
	}
	return nil
}

// cleanup removes every target of ms that exists.
func (r *run) cleanup(ms mission.Mission) (removed []string, err error) {
	for _, t := range ms.Targets() {
		ok, serr := afero.Exists(r.fs, t)
		if serr != nil {
			err = multierr.Append(err, serr)
			continue
		}
		if !ok {
			continue
		}
		if rerr := r.fs.Remove(t); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("remove %s: %w", t, rerr))
			continue
		}
		removed = append(removed, t)
	}
	return removed, err
}

func clamp(d, limit time.Duration) time.Duration {
	switch {
	case d < 0:
		return 0
	case limit > 0 && d > limit:
		return limit
	}
	return d
}

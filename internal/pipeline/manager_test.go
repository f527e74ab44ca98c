package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediakiller/internal/encoder"
	"mediakiller/internal/mediainfo"
	"mediakiller/internal/mission"
	"mediakiller/internal/model"
	"mediakiller/internal/progress"
)

// behavior is how the fake encoder treats a mission, keyed by source.
type behavior int

const (
	succeed behavior = iota
	fail
	block // writes a partial target, then waits for cancellation
)

type fakeRunner struct {
	fs        afero.Fs
	behaviors map[string]behavior
	started   chan string

	mu    sync.Mutex
	specs []encoder.Spec
}

func (f *fakeRunner) Run(ctx context.Context, spec encoder.Spec) encoder.Result {
	f.mu.Lock()
	f.specs = append(f.specs, spec)
	f.mu.Unlock()

	// Source follows "-i"; the target is the last argument.
	var source string
	for i, a := range spec.Args {
		if a == "-i" && i+1 < len(spec.Args) {
			source = spec.Args[i+1]
		}
	}
	target := spec.Args[len(spec.Args)-1]

	for _, sec := range []int{1, 2, 3} {
		d := time.Duration(sec) * time.Second
		spec.Statuses <- progress.CodingStatus{Time: &d}
	}
	if f.started != nil {
		f.started <- source
	}

	switch f.behaviors[source] {
	case fail:
		_ = afero.WriteFile(f.fs, target, []byte("partial"), 0o644)
		return encoder.Result{ExitCode: 1, Err: errors.New("ffmpeg exited with code 1")}
	case block:
		_ = afero.WriteFile(f.fs, target, []byte("partial"), 0o644)
		select {
		case <-ctx.Done():
		case <-spec.Force:
		}
		return encoder.Result{Cancelled: true, ExitCode: 255}
	default:
		_ = afero.WriteFile(f.fs, target, make([]byte, 100), 0o644)
		return encoder.Result{Success: true}
	}
}

type fakeDurations map[string]time.Duration

func (f fakeDurations) Get(ctx context.Context, path string) (mediainfo.Info, error) {
	d, ok := f[path]
	if !ok {
		return mediainfo.Info{}, mediainfo.ErrNotFound
	}
	return mediainfo.Info{Duration: d}, nil
}

func testPreset() *model.Preset {
	return &model.Preset{
		General: model.General{ID: "t", Encoder: "ffmpeg"},
		Target:  model.TargetRules{Suffix: ".mkv", Folder: "/out"},
	}
}

func makeMissions(t *testing.T, opts model.RunOptions, sources ...string) []mission.Mission {
	t.Helper()
	f := mission.NewFactory(testPreset(), opts)
	var out []mission.Mission
	for _, s := range sources {
		m, err := f.Make(s)
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func lookOK(p string) (string, error) { return p, nil }

// collect drains events until StageDone.
func collect(ch <-chan progress.Event) <-chan []progress.Event {
	out := make(chan []progress.Event, 1)
	go func() {
		var evs []progress.Event
		for ev := range ch {
			evs = append(evs, ev)
			if ev.Stage == progress.StageDone {
				break
			}
		}
		out <- evs
	}()
	return out
}

func TestRun_SuccessAndFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := &fakeRunner{fs: fs, behaviors: map[string]behavior{"/in/b.mp4": fail}}
	events := make(chan progress.Event)
	done := collect(events)

	m := New(
		WithRunner(runner),
		WithFs(fs),
		WithLookPath(lookOK),
		WithEvents(events),
		WithDurations(fakeDurations{"/in/a.mp4": 10 * time.Second, "/in/b.mp4": 20 * time.Second}),
	)
	missions := makeMissions(t, model.RunOptions{}, "/in/a.mp4", "/in/b.mp4")
	rep := m.Run(context.Background(), missions)
	evs := <-done

	assert.Equal(t, StateCompleted, rep.State)
	assert.Equal(t, StateCompleted, m.State())
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 1, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, []string{"/out/a.mkv"}, rep.Targets)
	assert.Equal(t, int64(100), rep.TotalBytes)
	assert.Equal(t, []string{"/out/b.mkv"}, rep.Cleaned)
	assert.NoError(t, rep.CleanupErr)
	assert.Error(t, rep.Errors())
	assert.Equal(t, 30*time.Second, rep.MediaTotal)
	assert.Equal(t, 10*time.Second, rep.MediaDone)

	ok, _ := afero.Exists(fs, "/out/a.mkv")
	assert.True(t, ok)
	ok, _ = afero.Exists(fs, "/out/b.mkv")
	assert.False(t, ok, "failed mission's target must be removed")

	// Aggregate progress during mission b counts a's full duration.
	var overall []time.Duration
	for _, ev := range evs {
		if ev.Stage == progress.StageEncoding && ev.Index == 1 {
			overall = append(overall, ev.Overall)
			assert.Equal(t, 30*time.Second, ev.OverallTotal)
		}
	}
	assert.Equal(t, []time.Duration{11 * time.Second, 12 * time.Second, 13 * time.Second}, overall)
	assert.Equal(t, progress.StageDone, evs[len(evs)-1].Stage)
}

func TestRun_OverallReachesTotalAfterSkipAndFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/a.mkv", []byte("done"), 0o644))
	runner := &fakeRunner{fs: fs, behaviors: map[string]behavior{"/in/c.mp4": fail}}
	events := make(chan progress.Event)
	done := collect(events)

	m := New(
		WithRunner(runner),
		WithFs(fs),
		WithLookPath(lookOK),
		WithEvents(events),
		WithDurations(fakeDurations{
			"/in/a.mp4": 10 * time.Second,
			"/in/b.mp4": 20 * time.Second,
			"/in/c.mp4": 30 * time.Second,
		}),
	)
	missions := makeMissions(t, model.RunOptions{NoOverwrite: true}, "/in/a.mp4", "/in/b.mp4", "/in/c.mp4")
	rep := m.Run(context.Background(), missions)
	evs := <-done

	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 1, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)

	// Mission b starts after the skipped a has been counted.
	for _, ev := range evs {
		if ev.Stage == progress.StageStarted && ev.Index == 1 {
			assert.Equal(t, 10*time.Second, ev.Overall)
		}
	}
	last := evs[len(evs)-1]
	require.Equal(t, progress.StageDone, last.Stage)
	assert.Equal(t, 60*time.Second, last.OverallTotal)
	assert.Equal(t, last.OverallTotal, last.Overall)
	assert.InDelta(t, 1.0, last.Fraction(), 1e-9)
}

func TestRun_CancelledMissionDoesNotCountAsDone(t *testing.T) {
	fs := afero.NewMemMapFs()
	started := make(chan string, 1)
	runner := &fakeRunner{fs: fs, started: started, behaviors: map[string]behavior{"/in/a.mp4": block}}
	events := make(chan progress.Event, 64)

	m := New(
		WithRunner(runner),
		WithFs(fs),
		WithLookPath(lookOK),
		WithEvents(events),
		WithDurations(fakeDurations{"/in/a.mp4": 10 * time.Second, "/in/b.mp4": 20 * time.Second}),
	)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	rep := m.Run(ctx, makeMissions(t, model.RunOptions{}, "/in/a.mp4", "/in/b.mp4"))
	close(events)

	assert.Equal(t, StateCancelled, rep.State)
	var last progress.Event
	for ev := range events {
		last = ev
	}
	require.Equal(t, progress.StageDone, last.Stage)
	assert.Equal(t, time.Duration(0), last.Overall)
}

func TestRun_CancelMidRunLeavesNoTargets(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := &fakeRunner{
		fs:        fs,
		behaviors: map[string]behavior{"/in/a.mp4": block},
		started:   make(chan string, 1),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-runner.started
		cancel()
	}()

	m := New(WithRunner(runner), WithFs(fs), WithLookPath(lookOK))
	rep := m.Run(ctx, makeMissions(t, model.RunOptions{}, "/in/a.mp4", "/in/b.mp4"))

	assert.Equal(t, StateCancelled, rep.State)
	assert.Equal(t, 2, rep.Cancelled)
	assert.Zero(t, rep.Failed)
	assert.Len(t, runner.specs, 1, "no mission may start after cancellation")
	assert.Equal(t, []string{"/out/a.mkv"}, rep.Cleaned)
	for _, p := range []string{"/out/a.mkv", "/out/b.mkv"} {
		ok, _ := afero.Exists(fs, p)
		assert.False(t, ok, p)
	}
}

func TestRun_HardStopStillCleansUp(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := &fakeRunner{
		fs:        fs,
		behaviors: map[string]behavior{"/in/a.mp4": block},
		started:   make(chan string, 1),
	}
	force := make(chan struct{})
	go func() {
		<-runner.started
		close(force)
	}()

	m := New(WithRunner(runner), WithFs(fs), WithLookPath(lookOK), WithForceStop(force))
	rep := m.Run(context.Background(), makeMissions(t, model.RunOptions{}, "/in/a.mp4", "/in/b.mp4"))

	assert.Equal(t, StateCancelled, rep.State)
	assert.Equal(t, 2, rep.Cancelled)
	ok, _ := afero.Exists(fs, "/out/a.mkv")
	assert.False(t, ok)
}

func TestRun_PreChecks(t *testing.T) {
	tests := []struct {
		name      string
		opts      model.RunOptions
		overwrite bool
		existing  bool
		source    string
		lookPath  func(string) (string, error)
		want      Status
		wantErr   error
		wantRuns  int
	}{
		{
			name:     "missing encoder",
			source:   "/in/a.mp4",
			lookPath: func(string) (string, error) { return "", errors.New("not in PATH") },
			want:     StatusFailed,
			wantErr:  ErrEncoderMissing,
		},
		{
			name:    "self overwrite",
			source:  "/out/a.mkv",
			want:    StatusFailed,
			wantErr: mission.ErrSelfOverwrite,
		},
		{
			name:     "existing target without overwrite",
			source:   "/in/a.mp4",
			existing: true,
			want:     StatusSkipped,
		},
		{
			name:      "no-overwrite beats preset overwrite",
			source:    "/in/a.mp4",
			opts:      model.RunOptions{NoOverwrite: true, ForceOverwrite: true},
			overwrite: true,
			existing:  true,
			want:      StatusSkipped,
		},
		{
			name:     "force overwrite reruns",
			source:   "/in/a.mp4",
			opts:     model.RunOptions{ForceOverwrite: true},
			existing: true,
			want:     StatusSucceeded,
			wantRuns: 1,
		},
		{
			name:     "missing encoder checked before self overwrite",
			source:   "/out/a.mkv",
			lookPath: func(string) (string, error) { return "", errors.New("nope") },
			want:     StatusFailed,
			wantErr:  ErrEncoderMissing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tt.existing {
				require.NoError(t, afero.WriteFile(fs, "/out/a.mkv", []byte("done"), 0o644))
			}
			look := tt.lookPath
			if look == nil {
				look = lookOK
			}
			runner := &fakeRunner{fs: fs}
			m := New(WithRunner(runner), WithFs(fs), WithLookPath(look))

			p := testPreset()
			p.General.Overwrite = tt.overwrite
			ms, err := mission.NewFactory(p, tt.opts).Make(tt.source)
			require.NoError(t, err)

			rep := m.Run(context.Background(), []mission.Mission{ms})
			require.Len(t, rep.Outcomes, 1)
			got := rep.Outcomes[0]
			assert.Equal(t, tt.want, got.Status)
			if tt.wantErr != nil {
				assert.ErrorIs(t, got.Err, tt.wantErr)
			}
			assert.Len(t, runner.specs, tt.wantRuns)
			if tt.want == StatusSkipped {
				data, _ := afero.ReadFile(fs, "/out/a.mkv")
				assert.Equal(t, "done", string(data), "skipped target is untouched")
			}
		})
	}
}

func TestEstimate_FallbackAndCancel(t *testing.T) {
	m := New(
		WithDurations(fakeDurations{"/in/a.mp4": 5 * time.Second}),
		WithFallbackDuration(2*time.Second),
		WithProbeJobs(2),
	)
	missions := makeMissions(t, model.RunOptions{}, "/in/a.mp4", "/in/unknown.mp4")

	durations, total, err := m.Estimate(context.Background(), missions)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second, 2 * time.Second}, durations)
	assert.Equal(t, 7*time.Second, total)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = m.Estimate(ctx, missions)
	assert.ErrorIs(t, err, context.Canceled)

	rep := m.Run(ctx, missions)
	assert.Equal(t, StateCancelled, rep.State)
	assert.Equal(t, 2, rep.Cancelled)
}

func TestRun_DistinctTargets(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(WithRunner(&fakeRunner{fs: fs}), WithFs(fs), WithLookPath(lookOK))
	p := testPreset()
	p.Outputs = []model.GroupSpec{{FileName: "${target}"}, {FileName: "/out/shared.log"}}
	f := mission.NewFactory(p, model.RunOptions{ForceOverwrite: true})
	a, err := f.Make("/in/a.mp4")
	require.NoError(t, err)
	b, err := f.Make("/in/b.mp4")
	require.NoError(t, err)

	rep := m.Run(context.Background(), []mission.Mission{a, b})
	assert.Equal(t, 2, rep.Succeeded)
	assert.Equal(t, []string{"/out/a.mkv", "/out/b.mkv", "/out/shared.log"}, rep.Targets)
	assert.Contains(t, rep.Summary(), "2 succeeded")
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	m := New()
	m.setState(StateRunning)
	rep := m.Run(context.Background(), nil)
	assert.ErrorIs(t, rep.Err, ErrAlreadyRunning)
}

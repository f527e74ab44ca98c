package mediainfo

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediakiller/internal/util"
)

type fakeRunner struct {
	results map[string]util.CmdResult
	errs    map[string]error
	calls   []util.CmdSpec
}

func (f *fakeRunner) Run(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	f.calls = append(f.calls, spec)
	return f.results[spec.Path], f.errs[spec.Path]
}

const probeJSON = `{
    "format": {
        "filename": "/media/clip.mp4",
        "nb_streams": 2,
        "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
        "start_time": "0.000000",
        "duration": "61.432000",
        "size": "15728640",
        "bit_rate": "2048000"
    }
}`

const banner = `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from '/media/missing.mp4':
  Duration: 00:02:05.50, start: 0.000000, bitrate: 800 kb/s
  Stream #0:0(und): Video: h264 (High) (avc1 / 0x31637661), yuv420p, 1280x720, 670 kb/s, 25 fps
At least one output file must be specified`

func TestFFprobe_ProbeJSON(t *testing.T) {
	r := &fakeRunner{results: map[string]util.CmdResult{"ffprobe": {Stdout: []byte(probeJSON)}}}
	p := &FFprobe{Path: "ffprobe", Runner: r}

	info, err := p.Probe(context.Background(), "/media/clip.mp4")
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if info.Duration != 61432*time.Millisecond {
		t.Errorf("Duration = %v, want 61.432s", info.Duration)
	}
	if info.Size != 15728640 {
		t.Errorf("Size = %d", info.Size)
	}
	if len(r.calls) != 1 || r.calls[0].Args[len(r.calls[0].Args)-1] != "/media/clip.mp4" {
		t.Errorf("unexpected calls: %+v", r.calls)
	}
}

func TestFFprobe_FallsBackToBanner(t *testing.T) {
	r := &fakeRunner{
		results: map[string]util.CmdResult{
			"ffprobe": {Code: 1},
			"ffmpeg":  {Code: 1, Stderr: []byte(banner)},
		},
		errs: map[string]error{
			"ffprobe": errors.New("exit 1"),
			"ffmpeg":  errors.New("exit 1"),
		},
	}
	p := &FFprobe{Path: "ffprobe", Fallback: "ffmpeg", Runner: r}

	info, err := p.Probe(context.Background(), "/media/missing.mp4")
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if info.Duration != 125500*time.Millisecond {
		t.Errorf("Duration = %v, want 2m5.5s", info.Duration)
	}
	// File does not exist, so size is estimated from 800 kb/s.
	if want := int64(800 * 1000 / 8 * 125.5); info.Size != want {
		t.Errorf("Size = %d, want %d", info.Size, want)
	}
}

func TestFFprobe_NoDuration(t *testing.T) {
	r := &fakeRunner{results: map[string]util.CmdResult{"ffprobe": {Stdout: []byte(`{"format":{"duration":"N/A"}}`)}}}
	p := &FFprobe{Path: "ffprobe", Runner: r}
	if _, err := p.Probe(context.Background(), "/media/still.png"); err == nil {
		t.Fatal("Probe() succeeded without a duration")
	}
}

func TestParseProbeJSON_Invalid(t *testing.T) {
	if _, err := ParseProbeJSON([]byte("not json"), ""); err == nil {
		t.Error("expected error for invalid json")
	}
}

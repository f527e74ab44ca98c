package mediainfo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/tidwall/gjson"

	"mediakiller/internal/util"
	"mediakiller/internal/util/format"
)

// DefaultProbeTimeout bounds a single inspection process.
const DefaultProbeTimeout = 10 * time.Second

var errNoDuration = errors.New("no duration in probe output")

// FFprobe inspects files with ffprobe's JSON output. When that yields nothing
// usable and Fallback names an encoder, it parses the encoder's "-i" banner.
type FFprobe struct {
	Path     string
	Fallback string
	Timeout  time.Duration
	Runner   util.CmdRunner
	Logger   hclog.Logger
}

// NewFFprobe returns a prober for the ffprobe binary at path.
func NewFFprobe(path string) *FFprobe {
	return &FFprobe{Path: path}
}

func (p *FFprobe) runner() util.CmdRunner {
	if p.Runner != nil {
		return p.Runner
	}
	return util.NewDefaultRunner()
}

func (p *FFprobe) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return DefaultProbeTimeout
}

// Probe returns the duration and size of path.
func (p *FFprobe) Probe(ctx context.Context, path string) (Info, error) {
	var firstErr error
	if p.Path != "" {
		info, err := p.probeJSON(ctx, path)
		if err == nil {
			return info, nil
		}
		firstErr = err
	}
	if p.Fallback != "" && ctx.Err() == nil {
		info, err := p.probeBanner(ctx, path)
		if err == nil {
			return info, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = errors.New("no prober configured")
	}
	return Info{}, fmt.Errorf("probe %s: %w", path, firstErr)
}

func (p *FFprobe) probeJSON(ctx context.Context, path string) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()
	res, err := p.runner().Run(ctx, util.CmdSpec{
		Path:          p.Path,
		Args:          []string{"-v", "quiet", "-print_format", "json", "-show_format", path},
		CaptureStdout: true,
		Logger:        p.Logger,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Info{}, fmt.Errorf("ffprobe timed out: %w", ctx.Err())
		}
		return Info{}, err
	}
	return ParseProbeJSON(res.Stdout, path)
}

func (p *FFprobe) probeBanner(ctx context.Context, path string) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()
	// Without an output file the encoder exits non-zero after printing the banner.
	res, _ := p.runner().Run(ctx, util.CmdSpec{
		Path:   p.Fallback,
		Args:   []string{"-hide_banner", "-i", path},
		Logger: p.Logger,
	})
	if ctx.Err() != nil {
		return Info{}, fmt.Errorf("banner probe timed out: %w", ctx.Err())
	}
	return ParseProbeText(string(res.Stderr), path)
}

// ParseProbeJSON reads format.duration and format.size from ffprobe output.
// A missing size falls back to the file size on disk.
func ParseProbeJSON(doc []byte, path string) (Info, error) {
	if !gjson.ValidBytes(doc) {
		return Info{}, errors.New("invalid ffprobe json")
	}
	f := gjson.GetBytes(doc, "format")
	secs, err := strconv.ParseFloat(f.Get("duration").String(), 64)
	if err != nil || secs <= 0 {
		return Info{}, errNoDuration
	}
	info := Info{Duration: time.Duration(secs * float64(time.Second))}
	if size, err := strconv.ParseInt(f.Get("size").String(), 10, 64); err == nil && size > 0 {
		info.Size = size
	} else {
		info.Size = util.FileSize(path)
	}
	return info, nil
}

var (
	bannerDurationRe = regexp.MustCompile(`Duration:\s*(\d+:\d{2}:\d{2}(?:\.\d+)?)`)
	bannerBitrateRe  = regexp.MustCompile(`bitrate:\s*(\d+(?:\.\d+)?)\s*kb/s`)
)

// ParseProbeText extracts duration from the encoder's input banner. Size is
// taken from disk, or estimated from the container bitrate.
func ParseProbeText(text, path string) (Info, error) {
	m := bannerDurationRe.FindStringSubmatch(text)
	if m == nil {
		return Info{}, errNoDuration
	}
	d, err := format.ParseTimestamp(m[1])
	if err != nil || d <= 0 {
		return Info{}, errNoDuration
	}
	info := Info{Duration: d, Size: util.FileSize(path)}
	if info.Size == 0 {
		if b := bannerBitrateRe.FindStringSubmatch(text); b != nil {
			if kbps, err := strconv.ParseFloat(b[1], 64); err == nil {
				info.Size = int64(kbps * 1000 / 8 * d.Seconds())
			}
		}
	}
	return info, nil
}

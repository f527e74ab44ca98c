package encoder

import (
	"regexp"
	"strconv"
	"strings"

	"mediakiller/internal/progress"
	"mediakiller/internal/util/format"
)

// Field patterns for both the classic "-stats" line and "-progress" key=value output.
var (
	frameRe   = regexp.MustCompile(`(?:^|\s)frame=\s*(\d+)`)
	fpsRe     = regexp.MustCompile(`(?:^|\s)fps=\s*(\d+(?:\.\d+)?)`)
	qualityRe = regexp.MustCompile(`(?:^|\s)(?:stream_\d+_\d+_)?q=\s*(-?\d+(?:\.\d+)?)`)
	sizeRe    = regexp.MustCompile(`(?:^|\s)L?size=\s*(\d+(?:\.\d+)?\s*[kKmMgG]?i?B)`)
	totalRe   = regexp.MustCompile(`(?:^|\s)total_size=\s*(\d+)`)
	timeRe    = regexp.MustCompile(`(?:^|\s)(?:out_)?time=\s*(-?\d+:\d{2}:\d{2}(?:\.\d+)?)`)
	bitrateRe = regexp.MustCompile(`(?:^|\s)bitrate=\s*(\d+(?:\.\d+)?)\s*kbits/s`)
	speedRe   = regexp.MustCompile(`(?:^|\s)speed=\s*(\d+(?:\.\d+)?(?:e[+-]?\d+)?)\s*x`)
)

// ParseStatusLine extracts whichever known fields appear in line.
// ok is false when nothing matched.
func ParseStatusLine(line string) (st progress.CodingStatus, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.Contains(line, "=") {
		return st, false
	}
	if m := frameRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			st.Frame = &v
		}
	}
	if m := fpsRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			st.FPS = &v
		}
	}
	if m := qualityRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			st.Quality = &v
		}
	}
	if m := sizeRe.FindStringSubmatch(line); m != nil {
		if v, err := format.ParseSize(m[1]); err == nil {
			st.Size = &v
		}
	} else if m := totalRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			st.Size = &v
		}
	}
	if m := timeRe.FindStringSubmatch(line); m != nil {
		if v, err := format.ParseTimestamp(m[1]); err == nil {
			st.Time = &v
		}
	}
	if m := bitrateRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			st.Bitrate = &v
		}
	}
	if m := speedRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			st.Speed = &v
		}
	}
	return st, !st.Empty()
}

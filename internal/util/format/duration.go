package format

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// timestampRe accepts ffmpeg and subtitle style stamps: 00:01:02.50, 00:01:02,500, 00:01:02;5.
var timestampRe = regexp.MustCompile(`^(-)?(\d+):(\d{2}):(\d{2})(?:[;:,.](\d{1,9}))?$`)

// ParseTimestamp converts HH:MM:SS[.fff] into a duration.
func ParseTimestamp(s string) (time.Duration, error) {
	m := timestampRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	h, _ := strconv.Atoi(m[2])
	mi, _ := strconv.Atoi(m[3])
	sec, _ := strconv.Atoi(m[4])
	d := time.Duration(h)*time.Hour + time.Duration(mi)*time.Minute + time.Duration(sec)*time.Second
	if frac := m[5]; frac != "" {
		// Right-pad to nanoseconds: ".5" is 500ms, not 5ns.
		for len(frac) < 9 {
			frac += "0"
		}
		ns, _ := strconv.Atoi(frac)
		d += time.Duration(ns)
	}
	if m[1] == "-" {
		d = -d
	}
	return d, nil
}

// FormatDuration renders d as HH:MM:SS, truncating sub-second precision.
func FormatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, total/3600, (total/60)%60, total%60)
}

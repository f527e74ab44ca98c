package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var byteUnits = [...]string{"KB", "MB", "GB", "TB", "PB", "EB"}

// HumanizeBytes converts a byte count into a human-readable string (e.g., "1.5 MB").
// Negative counts render as "0 B".
func HumanizeBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(max(b, 0), 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit && exp < len(byteUnits)-1; n /= unit {
		div *= unit
		exp++
	}
	var buf [24]byte
	s := strconv.AppendFloat(buf[:0], float64(b)/float64(div), 'f', 1, 64)
	return string(s) + " " + byteUnits[exp]
}

var sizeRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*([kKmMgGtT]?)(i?)([bB]?)\s*$`)

// ParseSize parses encoder-style sizes such as "1024kB", "1.5MiB" or "12MB".
// Plain "k/M/G/T" prefixes are decimal; an "i" infix selects binary multiples.
func ParseSize(s string) (int64, error) {
	m := sizeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	base := 1000.0
	if m[3] != "" {
		base = 1024.0
	}
	mult := 1.0
	switch strings.ToLower(m[2]) {
	case "k":
		mult = base
	case "m":
		mult = base * base
	case "g":
		mult = base * base * base
	case "t":
		mult = base * base * base * base
	}
	return int64(v * mult), nil
}

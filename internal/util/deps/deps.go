package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// ErrNotFound is returned when a binary cannot be resolved.
var ErrNotFound = errors.New("binary not found")

// Find resolves a binary. If customPath is non-empty, it tries that path or
// looks it up in PATH; otherwise name is looked up in PATH.
func Find(name, customPath string) (string, error) {
	if customPath != "" {
		if fi, err := os.Stat(customPath); err == nil && !fi.IsDir() {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("could not find %s at %q: %w", name, customPath, ErrNotFound)
	}
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("could not find %s in PATH, please install it: %w", name, ErrNotFound)
}

// FindFFmpeg returns the path to the ffmpeg binary.
func FindFFmpeg(customPath string) (string, error) {
	return Find("ffmpeg", customPath)
}

// FindFFprobe returns the path to the ffprobe binary.
func FindFFprobe(customPath string) (string, error) {
	return Find("ffprobe", customPath)
}

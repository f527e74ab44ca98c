package preset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mediakiller/internal/model"
)

// DefaultSuffixes are the media extensions a directory walk accepts unless
// the preset sets ignore_default_suffixes.
var DefaultSuffixes = []string{
	".3g2", ".3gp", ".aac", ".ac3", ".aiff", ".alac", ".ape", ".asf", ".av1",
	".avc", ".avchd", ".avi", ".divx", ".dsd", ".dts", ".eac3", ".f4v", ".flac",
	".flv", ".h264", ".h265", ".hevc", ".m2t", ".m2ts", ".m2v", ".m4a", ".m4v",
	".mka", ".mkv", ".mov", ".mp2", ".mp3", ".mp4", ".mpa", ".mpeg", ".mpg",
	".mts", ".mxf", ".ogg", ".ogv", ".opus", ".pcm", ".rm", ".rmvb", ".ts",
	".vob", ".vp8", ".vp9", ".wav", ".webm", ".wma", ".wmv", ".xvid",
}

// Suffixes returns the set of extensions a directory walk accepts for p.
func Suffixes(p *model.Preset) map[string]struct{} {
	set := make(map[string]struct{})
	if !p.Source.IgnoreDefaultSuffixes {
		for _, s := range DefaultSuffixes {
			set[s] = struct{}{}
		}
	}
	for _, s := range splitSuffixes(p.Source.Includes) {
		set[s] = struct{}{}
	}
	for _, s := range splitSuffixes(p.Source.Excludes) {
		delete(set, s)
	}
	return set
}

// splitSuffixes accepts list entries that themselves hold several
// space- or comma-separated suffixes, and normalizes each to ".ext".
func splitSuffixes(list []string) []string {
	var out []string
	for _, item := range list {
		for _, f := range strings.FieldsFunc(item, func(r rune) bool { return r == ' ' || r == ',' }) {
			f = strings.ToLower(f)
			if !strings.HasPrefix(f, ".") {
				f = "." + f
			}
			out = append(out, f)
		}
	}
	return out
}

// Expand resolves source arguments for p. Files are taken as given;
// directories are walked recursively and filtered by suffix. Each directory
// contributes its files in lexical order; duplicates are dropped.
func Expand(p *model.Preset, sources []string) ([]string, error) {
	accept := Suffixes(p)
	seen := make(map[string]struct{})
	var out []string
	add := func(path string) {
		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, path)
	}

	for _, src := range sources {
		fi, err := os.Stat(src)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src, err)
		}
		if !fi.IsDir() {
			add(src)
			continue
		}
		var found []string
		err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := accept[strings.ToLower(filepath.Ext(path))]; ok {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", src, err)
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}
	return out, nil
}

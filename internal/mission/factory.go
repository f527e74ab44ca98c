package mission

import (
	"errors"
	"path/filepath"
	"strings"

	"mediakiller/internal/model"
)

// Factory turns source paths into missions for one preset. It owns the
// sequence counter behind ${auto_count}; the same sequence of calls always
// yields the same missions.
type Factory struct {
	preset *model.Preset
	opts   model.RunOptions
	seq    int
}

// NewFactory returns a Factory for preset under the given run options.
func NewFactory(preset *model.Preset, opts model.RunOptions) *Factory {
	return &Factory{preset: preset, opts: opts}
}

// Make builds the mission for source.
func (f *Factory) Make(source string) (Mission, error) {
	if f.preset == nil {
		return Mission{}, errors.New("factory has no preset")
	}
	if strings.TrimSpace(source) == "" {
		return Mission{}, errors.New("empty source path")
	}
	p := f.preset
	f.seq++
	tc := tagContext{preset: p, source: source, seq: f.seq}
	tc.target = f.targetPath(tc)

	overwrite := f.opts.Overwrite(p)
	m := Mission{
		EncoderPath: p.EncoderName(),
		Source:      source,
		Preset:      p,
		Overwrite:   overwrite,
	}
	if f.opts.EncoderPath != "" {
		m.EncoderPath = f.opts.EncoderPath
	}

	m.Global = NewArgumentGroup("")
	m.Global.Parse(tc.expand(p.General.Options))
	m.Global.Remove("y")
	m.Global.Remove("n")
	if overwrite {
		m.Global.Set("y")
	} else {
		m.Global.Set("n")
	}

	inputs := p.Inputs
	if len(inputs) == 0 {
		inputs = []model.GroupSpec{{FileName: "${source}"}}
	}
	for _, spec := range inputs {
		g := NewArgumentGroup(tc.expand(spec.FileName))
		if g.FileName == "" {
			g.FileName = source
		}
		if hw := strings.TrimSpace(p.General.HardwareAccel); hw != "" {
			g.SetValue("hwaccel", hw)
		}
		g.Parse(tc.expand(spec.Options))
		m.Inputs = append(m.Inputs, g)
	}

	outputs := p.Outputs
	if len(outputs) == 0 {
		outputs = []model.GroupSpec{{FileName: "${target}"}}
	}
	for _, spec := range outputs {
		g := NewArgumentGroup(tc.expand(spec.FileName))
		if g.FileName == "" {
			g.FileName = tc.target
		}
		g.Parse(tc.expand(spec.Options))
		m.Outputs = append(m.Outputs, g)
	}
	return m, nil
}

// targetPath combines the output override, the preset folder template, the
// kept parent segments and the target suffix.
func (f *Factory) targetPath(tc tagContext) string {
	p := f.preset
	folder := tc.expand(p.Target.Folder)
	switch {
	case f.opts.OutputDir != "" && folder != "" && !filepath.IsAbs(folder):
		folder = filepath.Join(f.opts.OutputDir, folder)
	case f.opts.OutputDir != "":
		folder = f.opts.OutputDir
	case folder == "":
		folder = filepath.Dir(tc.source)
	}
	if n := p.Target.KeepParentLevel; n > 0 {
		if kept := trailingParents(tc.source, n); kept != "" {
			folder = filepath.Join(folder, kept)
		}
	}

	ext := filepath.Ext(tc.source)
	suffix := p.Target.Suffix
	switch {
	case suffix == "":
		suffix = ext
	case !strings.Contains(suffix, "."):
		// A bare extension such as "mkv".
		suffix = "." + suffix
	}
	base := strings.TrimSuffix(filepath.Base(tc.source), ext)
	return filepath.Join(folder, base+suffix)
}

// trailingParents returns the last n directory names above source.
func trailingParents(source string, n int) string {
	dir := filepath.Dir(filepath.Clean(source))
	dir = strings.TrimPrefix(dir, filepath.VolumeName(dir))
	var parts []string
	for _, s := range strings.Split(filepath.ToSlash(dir), "/") {
		if s != "" && s != "." && s != ".." {
			parts = append(parts, s)
		}
	}
	if n > len(parts) {
		n = len(parts)
	}
	return filepath.Join(parts[len(parts)-n:]...)
}

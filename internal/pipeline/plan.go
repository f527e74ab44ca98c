package pipeline

import (
	"fmt"

	"mediakiller/internal/mission"
	"mediakiller/internal/model"
	"mediakiller/internal/preset"
)

// Plan builds the mission list for every (preset, source) pair: presets in
// the given order, each over its own expansion of sources.
func Plan(presets []*model.Preset, sources []string, opts model.RunOptions) ([]mission.Mission, error) {
	var out []mission.Mission
	for _, p := range presets {
		files, err := preset.Expand(p, sources)
		if err != nil {
			return nil, err
		}
		f := mission.NewFactory(p, opts)
		for _, src := range files {
			m, err := f.Make(src)
			if err != nil {
				return nil, fmt.Errorf("preset %s, source %s: %w", p.DisplayName(), src, err)
			}
			out = append(out, m)
		}
	}
	return out, nil
}

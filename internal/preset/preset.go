// Package preset loads transcoding presets and expands source arguments into
// the files a preset accepts.
package preset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"mediakiller/internal/model"
)

// Load decodes a preset file. The format follows the extension (toml, yaml, json).
func Load(path string) (*model.Preset, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("general.overwrite", false)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read preset %s: %w", path, err)
	}
	var p model.Preset
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("decode preset %s: %w", path, err)
	}
	p.Path = path
	if p.General.ID == "" {
		p.General.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := Validate(&p); err != nil {
		return nil, fmt.Errorf("preset %s: %w", path, err)
	}
	return &p, nil
}

// LoadAll loads every path, stopping at the first failure.
func LoadAll(paths []string) ([]*model.Preset, error) {
	out := make([]*model.Preset, 0, len(paths))
	for _, p := range paths {
		ps, err := Load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, nil
}

// Validate checks the fields a mission cannot be built without.
func Validate(p *model.Preset) error {
	if p.Target.KeepParentLevel < 0 {
		return fmt.Errorf("target.keep_parent_level must not be negative")
	}
	for i, g := range p.Outputs {
		if strings.TrimSpace(g.FileName) == "" && len(p.Outputs) > 1 {
			return fmt.Errorf("output %d has no filename", i)
		}
	}
	return nil
}

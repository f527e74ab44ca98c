package preset

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"mediakiller/internal/model"
)

// ErrExists is returned by WriteSample when the destination already exists.
var ErrExists = errors.New("file already exists")

// Sample returns a starter preset.
func Sample(id string) *model.Preset {
	if id == "" {
		id = "h265_archive"
	}
	return &model.Preset{
		General: model.General{
			ID:          id,
			Name:        "H.265 archive",
			Description: "Re-encode video to HEVC and copy audio",
			Encoder:     model.DefaultEncoder,
			Overwrite:   false,
			Options:     "-hide_banner -loglevel info",
		},
		Custom: map[string]string{"crf": "24"},
		Source: model.SourceRules{
			Includes: []string{".mxf"},
			Excludes: []string{".wav"},
		},
		Target: model.TargetRules{
			Suffix:          ".mkv",
			Folder:          "encoded",
			KeepParentLevel: 0,
		},
		Inputs: []model.GroupSpec{{FileName: "${source}"}},
		Outputs: []model.GroupSpec{{
			FileName: "${target}",
			Options:  "-c:v libx265 -crf ${custom:crf} -c:a copy",
		}},
	}
}

// EncodeSample writes p as YAML.
func EncodeSample(w io.Writer, p *model.Preset) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}

// WriteSample creates path with a sample preset. It refuses to overwrite
// unless force is set.
func WriteSample(path, id string, force bool) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
		return err
	}
	if err := EncodeSample(f, Sample(id)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

package model

// DefaultEncoder is used when a preset does not name an encoder binary.
const DefaultEncoder = "ffmpeg"

// Preset is a versionable template from which missions are derived.
// Field tags serve both viper decoding (mapstructure) and sample emission (yaml).
type Preset struct {
	General General           `mapstructure:"general" yaml:"general"`
	Custom  map[string]string `mapstructure:"custom" yaml:"custom,omitempty"`
	Source  SourceRules       `mapstructure:"source" yaml:"source"`
	Target  TargetRules       `mapstructure:"target" yaml:"target"`
	Inputs  []GroupSpec       `mapstructure:"input" yaml:"input"`
	Outputs []GroupSpec       `mapstructure:"output" yaml:"output"`

	// Path is the file the preset was loaded from; empty for in-memory presets.
	Path string `mapstructure:"-" yaml:"-"`
}

// General holds identity and encoder-wide settings.
type General struct {
	ID            string `mapstructure:"preset_id" yaml:"preset_id"`
	Name          string `mapstructure:"name" yaml:"name"`
	Description   string `mapstructure:"description" yaml:"description,omitempty"`
	Encoder       string `mapstructure:"encoder" yaml:"encoder,omitempty"`
	Overwrite     bool   `mapstructure:"overwrite" yaml:"overwrite"`
	HardwareAccel string `mapstructure:"hardware_accelerate" yaml:"hardware_accelerate,omitempty"`
	Options       string `mapstructure:"options" yaml:"options,omitempty"`
}

// SourceRules filter which files a directory expansion picks up.
type SourceRules struct {
	IgnoreDefaultSuffixes bool     `mapstructure:"ignore_default_suffixes" yaml:"ignore_default_suffixes,omitempty"`
	Includes              []string `mapstructure:"suffix_includes" yaml:"suffix_includes,omitempty"`
	Excludes              []string `mapstructure:"suffix_excludes" yaml:"suffix_excludes,omitempty"`
}

// TargetRules describe where targets are written.
type TargetRules struct {
	Suffix          string `mapstructure:"suffix" yaml:"suffix,omitempty"`
	Folder          string `mapstructure:"folder" yaml:"folder,omitempty"`
	KeepParentLevel int    `mapstructure:"keep_parent_level" yaml:"keep_parent_level,omitempty"`
}

// GroupSpec is the templated form of one input or output: a file name and an option string.
type GroupSpec struct {
	FileName string `mapstructure:"filename" yaml:"filename"`
	Options  string `mapstructure:"options" yaml:"options,omitempty"`
}

// EncoderName returns the configured encoder or DefaultEncoder.
func (p *Preset) EncoderName() string {
	if p.General.Encoder != "" {
		return p.General.Encoder
	}
	return DefaultEncoder
}

// DisplayName returns the preset name, falling back to its ID and then its file.
func (p *Preset) DisplayName() string {
	switch {
	case p.General.Name != "":
		return p.General.Name
	case p.General.ID != "":
		return p.General.ID
	default:
		return p.Path
	}
}

package model

// RunOptions holds process-wide settings supplied on the command line or in
// the config file. It is built once and passed explicitly to the factory and
// scheduler.
type RunOptions struct {
	OutputDir   string // Overrides the root of every target folder when set.
	EncoderPath string // Overrides the preset's encoder when set.
	ProberPath  string

	ForceOverwrite bool
	NoOverwrite    bool

	NoUI    bool
	Verbose bool
}

// Overwrite resolves the effective overwrite decision for a preset.
// NoOverwrite beats ForceOverwrite, which beats the preset default.
func (o RunOptions) Overwrite(p *Preset) bool {
	switch {
	case o.NoOverwrite:
		return false
	case o.ForceOverwrite:
		return true
	case p == nil:
		return false
	default:
		return p.General.Overwrite
	}
}

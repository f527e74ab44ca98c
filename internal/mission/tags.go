package mission

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"mediakiller/internal/model"
)

// tagRe matches ${scope} and ${scope:param}.
var tagRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([^}]*))?\}`)

// tagContext resolves tags for one mission. Unknown scopes or params are left verbatim.
type tagContext struct {
	preset *model.Preset
	source string
	target string // empty until the target path is known
	seq    int
}

func (c tagContext) expand(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return tagRe.ReplaceAllStringFunc(s, func(tok string) string {
		m := tagRe.FindStringSubmatch(tok)
		if v, ok := c.lookup(strings.ToLower(m[1]), m[2]); ok {
			return v
		}
		return tok
	})
}

func (c tagContext) lookup(scope, param string) (string, bool) {
	switch scope {
	case "source":
		return pathPart(c.source, param)
	case "target":
		if c.target == "" {
			return "", false
		}
		return pathPart(c.target, param)
	case "preset":
		return c.presetField(param)
	case "custom":
		if c.preset == nil || c.preset.Custom == nil {
			return "", false
		}
		if v, ok := c.preset.Custom[param]; ok {
			return v, true
		}
		// viper lowercases map keys on load.
		v, ok := c.preset.Custom[strings.ToLower(param)]
		return v, ok
	case "auto_count", "seq":
		width := 0
		if param != "" {
			w, err := strconv.Atoi(param)
			if err != nil || w < 0 {
				return "", false
			}
			width = w
		}
		return fmt.Sprintf("%0*d", width, c.seq), true
	}
	return "", false
}

func (c tagContext) presetField(param string) (string, bool) {
	if c.preset == nil {
		return "", false
	}
	g := c.preset.General
	switch strings.ToLower(param) {
	case "id":
		return g.ID, true
	case "", "name":
		return g.Name, true
	case "description":
		return g.Description, true
	case "suffix":
		return c.preset.Target.Suffix, true
	case "folder":
		return c.preset.Target.Folder, true
	}
	return "", false
}

// pathPart extracts a component of p. An empty param yields p itself.
func pathPart(p, param string) (string, bool) {
	ext := filepath.Ext(p)
	switch strings.ToLower(param) {
	case "", "fullpath", "path":
		return p, true
	case "filename":
		return filepath.Base(p), true
	case "basename":
		return strings.TrimSuffix(filepath.Base(p), ext), true
	case "extension":
		return ext, true
	case "suffix":
		return strings.TrimPrefix(ext, "."), true
	case "parent", "folder":
		return filepath.Dir(p), true
	case "parent_name":
		return filepath.Base(filepath.Dir(p)), true
	}
	return "", false
}

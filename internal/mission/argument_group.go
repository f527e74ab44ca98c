// Package mission builds fully-resolved transcode jobs from presets.
package mission

import (
	"strings"
)

type option struct {
	key      string
	value    string
	hasValue bool
}

// ArgumentGroup is an ordered, key-unique set of encoder flags plus the file
// name they apply to. Keys always carry exactly one leading '-'.
type ArgumentGroup struct {
	FileName string
	opts     []option
}

// NewArgumentGroup returns an empty group for fileName.
func NewArgumentGroup(fileName string) ArgumentGroup {
	return ArgumentGroup{FileName: fileName}
}

// NormalizeKey trims whitespace and collapses any run of leading dashes to one.
func NormalizeKey(key string) string {
	k := strings.TrimLeft(strings.TrimSpace(key), "-")
	if k == "" {
		return ""
	}
	return "-" + k
}

func (g *ArgumentGroup) index(key string) int {
	for i, o := range g.opts {
		if o.key == key {
			return i
		}
	}
	return -1
}

func (g *ArgumentGroup) put(o option) {
	if o.key == "" {
		return
	}
	if i := g.index(o.key); i >= 0 {
		// Replacing keeps the original position.
		g.opts[i] = o
		return
	}
	g.opts = append(g.opts, o)
}

// Set adds a value-less flag such as -an.
func (g *ArgumentGroup) Set(key string) {
	g.put(option{key: NormalizeKey(key)})
}

// SetValue adds or replaces key with value.
func (g *ArgumentGroup) SetValue(key, value string) {
	g.put(option{key: NormalizeKey(key), value: value, hasValue: true})
}

// Remove deletes key if present.
func (g *ArgumentGroup) Remove(key string) {
	if i := g.index(NormalizeKey(key)); i >= 0 {
		g.opts = append(g.opts[:i], g.opts[i+1:]...)
	}
}

// Has reports whether key is present.
func (g *ArgumentGroup) Has(key string) bool {
	return g.index(NormalizeKey(key)) >= 0
}

// Value returns the value of key and whether the key carries one.
func (g *ArgumentGroup) Value(key string) (string, bool) {
	if i := g.index(NormalizeKey(key)); i >= 0 {
		return g.opts[i].value, g.opts[i].hasValue
	}
	return "", false
}

// Keys returns the keys in insertion order.
func (g *ArgumentGroup) Keys() []string {
	keys := make([]string, 0, len(g.opts))
	for _, o := range g.opts {
		keys = append(keys, o.key)
	}
	return keys
}

// Len returns the number of keys.
func (g *ArgumentGroup) Len() int { return len(g.opts) }

// Parse adds the flags in a whitespace separated option string. A token
// starting with '-' opens a key; the following non-key token becomes its
// value. A negative number right after a key is taken as that key's value.
// Tokens that appear before any key are ignored.
func (g *ArgumentGroup) Parse(options string) {
	var pending *option
	flush := func() {
		if pending != nil {
			g.put(*pending)
			pending = nil
		}
	}
	for _, tok := range strings.Fields(options) {
		isKey := strings.HasPrefix(tok, "-") && !(pending != nil && !pending.hasValue && isNumber(tok))
		if isKey {
			flush()
			pending = &option{key: NormalizeKey(tok)}
			continue
		}
		if pending == nil || pending.hasValue {
			continue
		}
		pending.value = tok
		pending.hasValue = true
		flush()
	}
	flush()
}

func isNumber(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	dot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}

// Arguments returns key then value (when present) for each flag, in insertion order.
func (g *ArgumentGroup) Arguments() []string {
	args := make([]string, 0, len(g.opts)*2)
	for _, o := range g.opts {
		args = append(args, o.key)
		if o.hasValue {
			args = append(args, o.value)
		}
	}
	return args
}

// clone returns a deep copy so missions never share option storage.
func (g ArgumentGroup) clone() ArgumentGroup {
	c := ArgumentGroup{FileName: g.FileName, opts: make([]option, len(g.opts))}
	copy(c.opts, g.opts)
	return c
}

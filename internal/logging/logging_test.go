package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		quiet bool
		want  hclog.Level
	}{
		{"default", Options{}, false, hclog.Info},
		{"quiet", Options{}, true, hclog.Warn},
		{"verbose beats quiet", Options{Verbose: true}, true, hclog.Debug},
		{"trace", Options{Trace: true, Verbose: true}, false, hclog.Trace},
		{"explicit level", Options{Verbose: true, Level: "error"}, false, hclog.Error},
		{"bogus level ignored", Options{Level: "loud"}, false, hclog.Info},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, closeFn, err := New(tt.opts, tt.quiet)
			require.NoError(t, err)
			defer closeFn()
			assert.Equal(t, tt.want, l.GetLevel())
		})
	}
}

func TestNew_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	l, closeFn, err := New(Options{JSON: true, File: path}, true)
	require.NoError(t, err)
	l.Warn("probe failed", "path", "/media/a.mp4")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "probe failed", entry["@message"])
	assert.Equal(t, "/media/a.mp4", entry["path"])
}

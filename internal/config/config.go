// Package config wires viper to the config file, MEDIAKILLER_* environment
// variables, and the root command's persistent flags.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"mediakiller/internal/dirs"
	"mediakiller/internal/model"
	"mediakiller/internal/pipeline"
)

// Keys bound to persistent flags of the same name.
const (
	KeyOutput         = "output"
	KeyFFmpeg         = "ffmpeg"
	KeyFFprobe        = "ffprobe"
	KeyCacheFile      = "cache-file"
	KeyVerbose        = "verbose"
	KeyLogJSON        = "log-json"
	KeyLogFile        = "log-file"
	KeyLogLevel       = "log-level"
	KeyForceOverwrite = "force-overwrite"
	KeyNoOverwrite    = "no-overwrite"
	KeyNoUI           = "no-ui"
	KeyProbeJobs      = "probe-jobs"
	KeyMissionTimeout = "mission-timeout"
)

var boundKeys = []string{
	KeyOutput, KeyFFmpeg, KeyFFprobe, KeyCacheFile, KeyVerbose, KeyLogJSON,
	KeyLogFile, KeyLogLevel, KeyForceOverwrite, KeyNoOverwrite, KeyNoUI,
	KeyProbeJobs, KeyMissionTimeout,
}

// Init wires Viper with config paths, env, defaults, and the given flags,
// normally the root command's persistent set. A missing config file is not
// an error; a malformed one is.
func Init(flags *pflag.FlagSet) error {
	_ = dirs.EnsureAll()

	if cfgDir, err := dirs.ConfigDir(); err == nil {
		viper.AddConfigPath(cfgDir)
	}
	viper.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	viper.SetEnvPrefix("MEDIAKILLER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(KeyProbeJobs, pipeline.DefaultProbeJobs)
	if f, err := dirs.CacheFile(); err == nil {
		viper.SetDefault(KeyCacheFile, f)
	}

	for _, key := range boundKeys {
		if fl := flags.Lookup(key); fl != nil {
			_ = viper.BindPFlag(key, fl)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return err
		}
	}
	return nil
}

// RunOptions builds the process-wide options from the bound keys.
func RunOptions() model.RunOptions {
	return model.RunOptions{
		OutputDir:      viper.GetString(KeyOutput),
		EncoderPath:    viper.GetString(KeyFFmpeg),
		ProberPath:     viper.GetString(KeyFFprobe),
		ForceOverwrite: viper.GetBool(KeyForceOverwrite),
		NoOverwrite:    viper.GetBool(KeyNoOverwrite),
		NoUI:           viper.GetBool(KeyNoUI),
		Verbose:        viper.GetBool(KeyVerbose),
	}
}

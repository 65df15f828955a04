/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package config loads the agent's tunables -- the knobs the distilled
// spec left as Open Questions (§9), resolved in §11: default trace depth,
// skip-frame count, and log level -- via github.com/spf13/viper, from
// built-in defaults, an optional YAML file, and environment overrides (in
// that increasing priority order, viper's own default precedence). CLI
// flags are not bound here.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/jacobin-agent/paramtrace/trace"
)

// Defaults holds the resolved configuration values the agent shell and
// offline CLI both consult.
type Defaults struct {
	TraceDepth int
	SkipFrames int
	LogLevel   trace.Level
}

// Load builds a viper instance seeded with the spec's defaults (3000/2/
// INFO), optionally overlaid by a YAML file at configPath (ignored if
// empty or unreadable -- config is never load-bearing enough to abort
// startup over), then by PARAMTRACE_-prefixed environment variables.
func Load(configPath string) (Defaults, error) {
	v := viper.New()
	v.SetDefault("defaults.tracedepth", 3000)
	v.SetDefault("defaults.skipframes", 2)
	v.SetDefault("defaults.loglevel", "INFO")

	v.SetEnvPrefix("PARAMTRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			trace.Trace("config: could not read " + configPath + ", using defaults: " + err.Error())
		}
	}

	return Defaults{
		TraceDepth: v.GetInt("defaults.tracedepth"),
		SkipFrames: v.GetInt("defaults.skipframes"),
		LogLevel:   parseLevel(v.GetString("defaults.loglevel")),
	}, nil
}

func parseLevel(s string) trace.Level {
	switch strings.ToUpper(s) {
	case "FINE":
		return trace.FINE
	case "CONFIG":
		return trace.CONFIG
	case "WARNING":
		return trace.WARNING
	case "SEVERE":
		return trace.SEVERE
	default:
		return trace.INFO
	}
}

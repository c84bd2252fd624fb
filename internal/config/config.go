// ============================================================================
// racewalk Config
// ============================================================================
//
// Package: internal/config
// File: config.go
// Purpose: Optional YAML config file supplying defaults for explore flags —
// mirrors the teacher's "config file supplies defaults, cobra flags
// override" idiom: a flag the user didn't set on the command line is
// backfilled from the config file, then from the hardcoded default. A
// config file is never required; its absence is not an error.
//
// ============================================================================

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors every explore flag that has a sensible file-level
// default. Fields left zero-valued in the file simply don't override the
// flag default. Whether the user set a flag is judged only by comparing
// its value with the flag default (see the Apply*Default helpers); a
// flag passed explicitly with its default value counts as untouched.
type Config struct {
	InDir          string `yaml:"in_dir"`
	InScheduleFile string `yaml:"in_schedule_file"`
	Site           string `yaml:"site"`
	ReplayCommand  string `yaml:"replay_command"`
	QueryCommand   string `yaml:"query_command"`
	OutDir         string `yaml:"out_dir"`
	MetricsAddr    string `yaml:"metrics_addr"`

	ConflictReversalBound         int  `yaml:"conflict_reversal_bound"`
	ConflictReversalBoundOldStyle bool `yaml:"conflict_reversal_bound_oldstyle"`
	IterationBound                int  `yaml:"iteration_bound"`
	FastForward                   bool `yaml:"fast_forward"`
	SameStateReversalOpt          bool `yaml:"same_state_reversal_opt"`
}

// Load parses path into a Config. A missing file is not an error — it
// returns a zero-valued Config so the caller's flag defaults take over
// unmodified.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyStringDefault backfills dst with fileValue iff dst still equals its
// flag default (flagDefault) and fileValue is non-empty. A flag set
// explicitly to its default value is backfilled as well.
func ApplyStringDefault(dst *string, flagDefault, fileValue string) {
	if *dst == flagDefault && fileValue != "" {
		*dst = fileValue
	}
}

// ApplyIntDefault backfills dst with fileValue iff dst is still at its
// flag default and the file actually set something (non-zero).
func ApplyIntDefault(dst *int, flagDefault, fileValue int) {
	if *dst == flagDefault && fileValue != 0 {
		*dst = fileValue
	}
}

// ApplyBoolDefault backfills dst with fileValue iff dst is still false
// (the common flag default for opt-in switches) and the file turned it on.
// Never turns an explicitly-set true flag back off.
func ApplyBoolDefault(dst *bool, fileValue bool) {
	if !*dst && fileValue {
		*dst = true
	}
}

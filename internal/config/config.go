// SPDX-License-Identifier: MIT

// Package config loads the daemon configuration: defaults, then the YAML
// file, then RECPLAN_* environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/svoss/recplan/internal/plan"
)

// Config is the fully resolved daemon configuration.
type Config struct {
	Listen   string `yaml:"listen,omitempty"`
	DataDir  string `yaml:"dataDir,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`

	Planner PlannerConfig `yaml:"planner,omitempty"`
	Loop    LoopConfig    `yaml:"loop,omitempty"`
	Tuners  []TunerConfig `yaml:"tuners,omitempty"`
}

// PlannerConfig tunes the planning pass itself.
type PlannerConfig struct {
	MaxConcurrent int `yaml:"maxConcurrent,omitempty"` // 0 = unlimited
	MinFreeMB     int `yaml:"minFreeMB,omitempty"`

	HDTVBonus       *int `yaml:"hdtvBonus,omitempty"`
	WidescreenBonus *int `yaml:"widescreenBonus,omitempty"`
	PreferredBonus  *int `yaml:"preferredBonus,omitempty"`

	PreemptLive *bool `yaml:"preemptLive,omitempty"`

	// TypePrecedence overrides individual rule-kind ranks. Lower wins ties.
	TypePrecedence map[string]int `yaml:"typePrecedence,omitempty"`
}

// LoopConfig tunes the cycle driver.
type LoopConfig struct {
	Interval      string `yaml:"interval,omitempty"`      // e.g. "10m"
	MaxInterval   string `yaml:"maxInterval,omitempty"`   // backoff ceiling, e.g. "1h"
	Jitter        string `yaml:"jitter,omitempty"`        // e.g. "30s"
	Horizon       string `yaml:"horizon,omitempty"`       // listings window, e.g. "168h"
	PreemptWarn   string `yaml:"preemptWarn,omitempty"`   // live-session warning lead
	PromptTimeout string `yaml:"promptTimeout,omitempty"` // live-session answer deadline
}

// TunerConfig describes one capture input in the static inventory.
type TunerConfig struct {
	ID            string   `yaml:"id"`
	InputGroup    string   `yaml:"inputGroup"`
	InputPriority int      `yaml:"inputPriority,omitempty"`
	Channels      []string `yaml:"channels,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:   ":8080",
		DataDir:  "/var/lib/recplan",
		LogLevel: "info",
		Loop: LoopConfig{
			Interval:      "10m",
			MaxInterval:   "1h",
			Jitter:        "30s",
			Horizon:       "168h",
			PreemptWarn:   "2m",
			PromptTimeout: "45s",
		},
	}
}

// Load reads path (if non-empty) on top of Default and applies environment
// overrides last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RECPLAN_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("RECPLAN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("RECPLAN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RECPLAN_INTERVAL"); v != "" {
		cfg.Loop.Interval = v
	}
	if v := os.Getenv("RECPLAN_MAX_INTERVAL"); v != "" {
		cfg.Loop.MaxInterval = v
	}
	if v := os.Getenv("RECPLAN_HORIZON"); v != "" {
		cfg.Loop.Horizon = v
	}
	if v := os.Getenv("RECPLAN_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Planner.MaxConcurrent = n
		}
	}
	if v := os.Getenv("RECPLAN_MIN_FREE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Planner.MinFreeMB = n
		}
	}
	if v := os.Getenv("RECPLAN_PREEMPT_LIVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Planner.PreemptLive = &b
		}
	}
}

// Validate checks the configuration for structural problems.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("dataDir must not be empty")
	}
	for _, pair := range []struct{ name, val string }{
		{"loop.interval", c.Loop.Interval},
		{"loop.maxInterval", c.Loop.MaxInterval},
		{"loop.jitter", c.Loop.Jitter},
		{"loop.horizon", c.Loop.Horizon},
		{"loop.preemptWarn", c.Loop.PreemptWarn},
		{"loop.promptTimeout", c.Loop.PromptTimeout},
	} {
		if pair.val == "" {
			continue
		}
		d, err := time.ParseDuration(pair.val)
		if err != nil {
			return fmt.Errorf("%s: %w", pair.name, err)
		}
		if d < 0 {
			return fmt.Errorf("%s: must not be negative", pair.name)
		}
	}
	if c.Planner.MaxConcurrent < 0 {
		return fmt.Errorf("planner.maxConcurrent must not be negative")
	}
	if c.Planner.MinFreeMB < 0 {
		return fmt.Errorf("planner.minFreeMB must not be negative")
	}
	for k := range c.Planner.TypePrecedence {
		if !plan.RuleKind(k).Valid() {
			return fmt.Errorf("planner.typePrecedence: unknown rule kind %q", k)
		}
	}
	seen := make(map[string]bool, len(c.Tuners))
	for i, t := range c.Tuners {
		if t.ID == "" {
			return fmt.Errorf("tuners[%d]: id must not be empty", i)
		}
		if t.InputGroup == "" {
			return fmt.Errorf("tuner %s: inputGroup must not be empty", t.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("tuner %s: duplicate id", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

// Duration parses a loop duration with a fallback for empty strings.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// PlanConfig translates the planner section into the planning-pass config.
func (c Config) PlanConfig() plan.Config {
	out := plan.DefaultConfig()
	out.MaxConcurrent = c.Planner.MaxConcurrent
	if c.Planner.MinFreeMB > 0 {
		out.MinFreeBytes = int64(c.Planner.MinFreeMB) << 20
	}
	if c.Planner.HDTVBonus != nil {
		out.Bonuses.HDTV = *c.Planner.HDTVBonus
	}
	if c.Planner.WidescreenBonus != nil {
		out.Bonuses.Widescreen = *c.Planner.WidescreenBonus
	}
	if c.Planner.PreferredBonus != nil {
		out.Bonuses.PreferredTuner = *c.Planner.PreferredBonus
	}
	if c.Planner.PreemptLive != nil {
		out.PreemptLive = *c.Planner.PreemptLive
	}
	for k, rank := range c.Planner.TypePrecedence {
		out.TypePrecedence[plan.RuleKind(k)] = rank
	}
	return out
}

// PlanTuners translates the static inventory into planner tuners.
func (c Config) PlanTuners() []plan.Tuner {
	out := make([]plan.Tuner, 0, len(c.Tuners))
	for _, t := range c.Tuners {
		pt := plan.Tuner{
			ID:            plan.TunerID(t.ID),
			InputGroup:    plan.InputGroupID(t.InputGroup),
			InputPriority: t.InputPriority,
		}
		for _, ch := range t.Channels {
			pt.Channels = append(pt.Channels, plan.ChannelID(ch))
		}
		out = append(out, pt)
	}
	return out
}

// SPDX-License-Identifier: MIT

package plan

// Bonuses are the fixed tie-break deltas added to a rule's base priority.
// They are configuration, applied identically across the whole catalog, and
// depend only on rule and showing attributes.
type Bonuses struct {
	HDTV           int `yaml:"hdtv" json:"hdtv"`
	Widescreen     int `yaml:"widescreen" json:"widescreen"`
	PreferredTuner int `yaml:"preferred_tuner" json:"preferred_tuner"`
}

// DefaultBonuses returns the stock deltas.
func DefaultBonuses() Bonuses {
	return Bonuses{HDTV: 1, Widescreen: 1, PreferredTuner: 2}
}

// DefaultTypePrecedence orders rule kinds for the conflict-resolution sort.
// Lower values claim tuners first. Manual single-showing intents outrank
// catch-all rules, which outrank find-style rules.
func DefaultTypePrecedence() map[RuleKind]int {
	return map[RuleKind]int{
		KindOverride:    0,
		KindSingle:      1,
		KindNeverRecord: 2,
		KindTimeslot:    3,
		KindWeekslot:    4,
		KindAll:         5,
		KindDaily:       6,
		KindWeekly:      7,
		KindFindDaily:   8,
		KindFindWeekly:  9,
		KindFindOne:     10,
		KindCustomQuery: 11,
	}
}

// Config carries the planner's tunable constants.
type Config struct {
	Bonuses        Bonuses
	TypePrecedence map[RuleKind]int
	// MaxConcurrent caps simultaneous recordings across all tuners.
	// 0 means unbounded.
	MaxConcurrent int
	// MinFreeBytes is the disk headroom below which an assigned recording is
	// downgraded to low_disk_space.
	MinFreeBytes int64
	// PreemptLive allows planned recordings to reclaim tuners held by live
	// viewing sessions. When false such candidates become tuner_busy.
	PreemptLive bool
}

// DefaultConfig returns the stock planner configuration.
func DefaultConfig() Config {
	return Config{
		Bonuses:        DefaultBonuses(),
		TypePrecedence: DefaultTypePrecedence(),
		MinFreeBytes:   1 << 30,
		PreemptLive:    true,
	}
}

func (c Config) precedence(k RuleKind) int {
	if c.TypePrecedence != nil {
		if p, ok := c.TypePrecedence[k]; ok {
			return p
		}
	}
	return DefaultTypePrecedence()[k]
}

// EffectivePriority computes the candidate priority for a rule matched
// against a showing: base priority plus the configured bonuses. Pure function
// of rule, showing and tuner capability.
func EffectivePriority(cfg Config, r Rule, s Showing, tuners map[TunerID]Tuner) int {
	p := r.BasePriority
	if s.HD {
		p += cfg.Bonuses.HDTV
	}
	if s.Widescreen {
		p += cfg.Bonuses.Widescreen
	}
	if r.PreferredTuner != "" {
		if t, ok := tuners[r.PreferredTuner]; ok && t.CanReceive(s.ChannelID) {
			p += cfg.Bonuses.PreferredTuner
		}
	}
	return p
}

// SPDX-License-Identifier: MIT

// Package plan implements the recording planner: rule matching, episode
// deduplication, tuner allocation and conflict resolution over one immutable
// snapshot of rules, showings and tuners.
package plan

import (
	"time"
)

// Opaque identifiers. Entities reference each other by ID only so snapshots
// stay cheap to copy.
type (
	ShowingID    string
	TunerID      string
	ChannelID    string
	InputGroupID string
)

// RuleKind enumerates the supported recording-rule kinds.
type RuleKind string

const (
	KindSingle      RuleKind = "single"       // record exactly one identified showing
	KindOverride    RuleKind = "override"     // manual override of a single showing
	KindNeverRecord RuleKind = "never"        // never record the identified showing
	KindTimeslot    RuleKind = "timeslot"     // every showing in this channel+timeslot
	KindWeekslot    RuleKind = "weekslot"     // every showing in this channel+weekday+timeslot
	KindAll         RuleKind = "all"          // every showing of the title
	KindDaily       RuleKind = "daily"        // at most one episode per day
	KindWeekly      RuleKind = "weekly"       // at most one episode per week
	KindFindOne     RuleKind = "find_one"     // record the nearest future showing, once
	KindFindDaily   RuleKind = "find_daily"   // one showing per day, any channel
	KindFindWeekly  RuleKind = "find_weekly"  // one showing per week, any channel
	KindCustomQuery RuleKind = "custom_query" // opaque predicate over showing attributes
)

// Valid reports whether k is a known rule kind.
func (k RuleKind) Valid() bool {
	switch k {
	case KindSingle, KindOverride, KindNeverRecord, KindTimeslot, KindWeekslot,
		KindAll, KindDaily, KindWeekly, KindFindOne, KindFindDaily,
		KindFindWeekly, KindCustomQuery:
		return true
	}
	return false
}

// findKind reports whether the kind seeks exactly one occurrence per period.
func (k RuleKind) findKind() bool {
	return k == KindFindOne || k == KindFindDaily || k == KindFindWeekly
}

// DedupPolicy selects how two showings are recognised as the same episode.
type DedupPolicy string

const (
	DedupNone         DedupPolicy = "none"
	DedupSubAndDesc   DedupPolicy = "subtitle_and_description"
	DedupSubThenDesc  DedupPolicy = "subtitle_then_description"
	DedupSubtitleOnly DedupPolicy = "subtitle"
	DedupDescOnly     DedupPolicy = "description"
)

// Valid reports whether p is a known policy.
func (p DedupPolicy) Valid() bool {
	switch p {
	case DedupNone, DedupSubAndDesc, DedupSubThenDesc, DedupSubtitleOnly, DedupDescOnly:
		return true
	}
	return false
}

// DedupScope selects which recording history is consulted.
type DedupScope string

const (
	ScopeCurrent  DedupScope = "current"  // recordings made from this catalog
	ScopePrevious DedupScope = "previous" // kept recordings from before this catalog
	ScopeBoth     DedupScope = "both"
)

// Valid reports whether s is a known scope.
func (s DedupScope) Valid() bool {
	switch s {
	case ScopeCurrent, ScopePrevious, ScopeBoth:
		return true
	}
	return false
}

// Status is the terminal, user-visible outcome assigned to every candidate
// each planning cycle. Every value other than Unknown is an expected business
// outcome, never an error.
type Status string

const (
	StatusUnknown           Status = "unknown"
	StatusRecording         Status = "recording"
	StatusWillRecord        Status = "will_record"
	StatusRecorded          Status = "recorded"
	StatusConflicting       Status = "conflicting"
	StatusTooManyRecordings Status = "too_many_recordings"
	StatusEarlierShowing    Status = "earlier_showing_preferred"
	StatusLaterShowing      Status = "later_showing_preferred"
	StatusLowDiskSpace      Status = "low_disk_space"
	StatusTunerBusy         Status = "tuner_busy"
	StatusAborted           Status = "aborted"
	StatusMissed            Status = "missed"
	StatusCancelled         Status = "cancelled"
	StatusDontRecord        Status = "dont_record"
	StatusNeverRecord       Status = "never_record"
	StatusInactive          Status = "inactive"
	StatusRecorderOffline   Status = "recorder_offline"
	StatusFailed            Status = "failed"
	StatusOtherShowing      Status = "other_showing_will_record"
	StatusRepeat            Status = "repeat"
	StatusNotListed         Status = "not_listed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUnknown, StatusRecording, StatusWillRecord, StatusRecorded,
		StatusConflicting, StatusTooManyRecordings, StatusEarlierShowing,
		StatusLaterShowing, StatusLowDiskSpace, StatusTunerBusy, StatusAborted,
		StatusMissed, StatusCancelled, StatusDontRecord, StatusNeverRecord,
		StatusInactive, StatusRecorderOffline, StatusFailed, StatusOtherShowing,
		StatusRepeat, StatusNotListed:
		return true
	}
	return false
}

// Active reports whether the status occupies a tuner.
func (s Status) Active() bool {
	return s == StatusRecording || s == StatusWillRecord
}

// Rule is a user-authored recording intent. Read-only to the planner within
// one cycle.
type Rule struct {
	ID           string       `json:"id"`
	Kind         RuleKind     `json:"kind"`
	Title        string       `json:"title,omitempty"`      // program identity key
	Query        string       `json:"query,omitempty"`      // custom_query predicate, opaque
	ChannelID    ChannelID    `json:"channel_id,omitempty"` // single/override/never/timeslot kinds
	ShowingID    ShowingID    `json:"showing_id,omitempty"` // single/override/never kinds
	Weekday      time.Weekday `json:"weekday,omitempty"`    // weekslot kind
	StartWindow  string       `json:"start_window,omitempty"` // "HHMM-HHMM", timeslot tolerance
	BasePriority int          `json:"base_priority"`
	DedupPolicy  DedupPolicy  `json:"dedup_policy,omitempty"`
	DedupScope   DedupScope   `json:"dedup_scope,omitempty"`

	PreferredTuner TunerID `json:"preferred_tuner,omitempty"`
	StartOffsetSec int     `json:"start_offset_sec,omitempty"`
	EndOffsetSec   int     `json:"end_offset_sec,omitempty"`
	Active         bool    `json:"active"`
	AllowRerecord  bool    `json:"allow_rerecord,omitempty"`
	MaxEpisodes    int     `json:"max_episodes,omitempty"` // 0 = unlimited
	StorageGroup   string  `json:"storage_group,omitempty"`
}

// Showing is one broadcast instance of a program on a channel. Immutable
// within a cycle.
type Showing struct {
	ID          ShowingID `json:"id"`
	ChannelID   ChannelID `json:"channel_id"`
	Start       time.Time `json:"start"` // UTC
	End         time.Time `json:"end"`   // UTC
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Description string    `json:"description,omitempty"`
	SeriesID    string    `json:"series_id,omitempty"`
	Season      int       `json:"season,omitempty"`
	Episode     int       `json:"episode,omitempty"`
	IsRepeat    bool      `json:"is_repeat,omitempty"`
	HD          bool      `json:"hd,omitempty"`
	Widescreen  bool      `json:"widescreen,omitempty"`
}

// Tuner is one capture input. Tuners sharing an InputGroup are mutually
// exclusive: at most one may be active at a time across the whole group.
type Tuner struct {
	ID            TunerID      `json:"id"`
	InputGroup    InputGroupID `json:"input_group"`
	InputPriority int          `json:"input_priority"`
	// Channels the tuner can receive. Empty means all channels.
	Channels []ChannelID `json:"channels,omitempty"`
	Offline  bool        `json:"offline,omitempty"`
}

// CanReceive reports whether the tuner can receive the given channel.
func (t Tuner) CanReceive(ch ChannelID) bool {
	if len(t.Channels) == 0 {
		return true
	}
	for _, c := range t.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Candidate pairs one rule with one showing it matches, carrying the
// effective priority used for conflict resolution.
type Candidate struct {
	RuleID    string
	ShowingID ShowingID
	Priority  int // base priority plus configured bonuses
}

// LiveSession is a manual live-viewing session occupying a tuner outside the
// planner's control.
type LiveSession struct {
	ID      string    `json:"id"`
	TunerID TunerID   `json:"tuner_id"`
	Since   time.Time `json:"since"`
}

// Snapshot is one consistent, immutable view of all planner inputs. A cycle
// operates on exactly one snapshot; mutation happens only by producing a new
// one.
type Snapshot struct {
	Version  uint64
	Now      time.Time
	Rules    map[string]Rule
	Showings map[ShowingID]Showing
	Tuners   map[TunerID]Tuner
	// Overrides are externally imposed terminal statuses for specific
	// showings (user "don't record", reported aborts/failures).
	Overrides map[ShowingID]Status
	// Live sessions currently holding tuners.
	LiveSessions []LiveSession
}

// Recording is the resolved outcome for one candidate. Exactly one Recording
// exists per candidate per cycle.
type Recording struct {
	ShowingID ShowingID `json:"showing_id"`
	RuleID    string    `json:"rule_id"`
	TunerID   TunerID   `json:"tuner_id,omitempty"` // empty if not recording
	Status    Status    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	// OtherShowingID references the retained showing when Status is
	// other_showing_will_record or earlier/later_showing_preferred.
	OtherShowingID ShowingID `json:"other_showing_id,omitempty"`
	// Padded interval actually reserved on the tuner.
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Priority int       `json:"priority"`
	// Episode identity carried for the recording log: the showing's title
	// and channel, and the equivalence key under the rule's dedup policy
	// (empty when the policy yields no key).
	Title     string    `json:"title,omitempty"`
	ChannelID ChannelID `json:"channel_id,omitempty"`
	DedupKey  string    `json:"dedup_key,omitempty"`
}

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two half-open intervals intersect.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

// PaddedInterval returns the showing interval widened by the rule's start and
// end offsets.
func PaddedInterval(r Rule, s Showing) Interval {
	return Interval{
		Start: s.Start.Add(-time.Duration(r.StartOffsetSec) * time.Second),
		End:   s.End.Add(time.Duration(r.EndOffsetSec) * time.Second),
	}
}

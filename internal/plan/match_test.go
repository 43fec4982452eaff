// SPDX-License-Identifier: MIT

package plan

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func showingAt(id string, ch string, start time.Time, d time.Duration, title string) Showing {
	return Showing{
		ID:        ShowingID(id),
		ChannelID: ChannelID(ch),
		Start:     start,
		End:       start.Add(d),
		Title:     title,
	}
}

func TestMatches_SingleKinds(t *testing.T) {
	start := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)
	s := showingAt("s1", "ch1", start, 30*time.Minute, "News at Eight")

	for _, kind := range []RuleKind{KindSingle, KindOverride, KindNeverRecord} {
		r := Rule{ID: "r1", Kind: kind, ShowingID: "s1", Active: true}
		assert.True(t, Matches(r, s, nil), "kind %s", kind)

		r.ShowingID = "other"
		assert.False(t, Matches(r, s, nil), "kind %s", kind)
	}
}

func TestMatches_TimeslotAndWeekslot(t *testing.T) {
	// 2026-03-02 is a Monday.
	start := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)
	s := showingAt("s1", "ch1", start, 30*time.Minute, "News at Eight")

	tests := []struct {
		name string
		rule Rule
		want bool
	}{
		{"timeslot in window", Rule{Kind: KindTimeslot, Title: "News at Eight", ChannelID: "ch1", StartWindow: "1930-2030"}, true},
		{"timeslot out of window", Rule{Kind: KindTimeslot, Title: "News at Eight", ChannelID: "ch1", StartWindow: "2100-2200"}, false},
		{"timeslot wrong channel", Rule{Kind: KindTimeslot, Title: "News at Eight", ChannelID: "ch2", StartWindow: "1930-2030"}, false},
		{"timeslot wrong title", Rule{Kind: KindTimeslot, Title: "Other", ChannelID: "ch1", StartWindow: "1930-2030"}, false},
		{"timeslot invalid window fails safe", Rule{Kind: KindTimeslot, Title: "News at Eight", ChannelID: "ch1", StartWindow: "bogus"}, false},
		{"weekslot right weekday", Rule{Kind: KindWeekslot, Title: "News at Eight", ChannelID: "ch1", Weekday: time.Monday, StartWindow: "1930-2030"}, true},
		{"weekslot wrong weekday", Rule{Kind: KindWeekslot, Title: "News at Eight", ChannelID: "ch1", Weekday: time.Tuesday, StartWindow: "1930-2030"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.rule, s, nil))
		})
	}
}

func TestMatches_TitleKinds(t *testing.T) {
	start := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)
	s := showingAt("s1", "ch1", start, 30*time.Minute, "Nature Watch")
	s.SeriesID = "series-42"

	r := Rule{Kind: KindAll, Title: "nature watch"}
	assert.True(t, Matches(r, s, nil), "title match is case-insensitive")

	r.Title = "series-42"
	assert.True(t, Matches(r, s, nil), "series id matches as title key")

	r.Title = "Nature Watch"
	r.ChannelID = "ch2"
	assert.False(t, Matches(r, s, nil), "channel restriction applies")

	r = Rule{Kind: KindFindOne, Title: "Nature Watch"}
	assert.True(t, Matches(r, s, nil))
}

func TestMatches_CustomQuery(t *testing.T) {
	start := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)
	s := showingAt("s1", "ch1", start, 30*time.Minute, "Late Night Movies")

	r := Rule{Kind: KindCustomQuery, Query: "movie"}
	assert.False(t, Matches(r, s, nil), "no evaluator means no match")

	query := func(q string, s Showing) bool {
		return strings.Contains(strings.ToLower(s.Title), q)
	}
	assert.True(t, Matches(r, s, query))

	r.Query = "documentary"
	assert.False(t, Matches(r, s, query))
}

func TestIsTimeInWindow(t *testing.T) {
	at := func(h, m int) Showing {
		return Showing{Start: time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)}
	}

	tests := []struct {
		name    string
		s       Showing
		window  string
		want    bool
		wantErr bool
	}{
		{"inside standard", at(20, 0), "1930-2030", true, false},
		{"exclusive end", at(20, 30), "1930-2030", false, false},
		{"inclusive start", at(19, 30), "1930-2030", true, false},
		{"colon format", at(20, 0), "19:30-20:30", true, false},
		{"midnight crossing late", at(23, 0), "2200-0200", true, false},
		{"midnight crossing early", at(1, 0), "2200-0200", true, false},
		{"midnight crossing outside", at(12, 0), "2200-0200", false, false},
		{"degenerate window never matches", at(0, 0), "0000-0000", false, false},
		{"garbage", at(12, 0), "nope", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsTimeInWindow(tt.s, tt.window)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectivePriority(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bonuses = Bonuses{HDTV: 1, Widescreen: 2, PreferredTuner: 4}
	tuners := map[TunerID]Tuner{
		"t1": {ID: "t1", InputGroup: "g1"},
		"t2": {ID: "t2", InputGroup: "g2", Channels: []ChannelID{"ch9"}},
	}

	r := Rule{BasePriority: 10}
	s := Showing{ChannelID: "ch1"}
	assert.Equal(t, 10, EffectivePriority(cfg, r, s, tuners))

	s.HD = true
	s.Widescreen = true
	assert.Equal(t, 13, EffectivePriority(cfg, r, s, tuners))

	r.PreferredTuner = "t1"
	assert.Equal(t, 17, EffectivePriority(cfg, r, s, tuners))

	// Preferred tuner that cannot receive the channel earns no bonus.
	r.PreferredTuner = "t2"
	assert.Equal(t, 13, EffectivePriority(cfg, r, s, tuners))
}

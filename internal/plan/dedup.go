// SPDX-License-Identifier: MIT

package plan

import (
	"fmt"
	"hash/fnv"
	"slices"
	"strings"
)

// History answers "was this episode already recorded" questions for the
// deduplication filter. Implementations must be read-only during a cycle.
type History interface {
	// EpisodeRecorded reports whether an episode with the given equivalence
	// key was already recorded, consulting the given scope.
	EpisodeRecorded(key string, scope DedupScope) bool
	// ShowingRecorded reports whether this exact showing was fully recorded.
	ShowingRecorded(id ShowingID) bool
}

// DedupKey computes the episode-equivalence key for a showing under the given
// policy. An empty key means the showing forms its own equivalence class.
func DedupKey(p DedupPolicy, s Showing) string {
	sub := normalizeEpisodeText(s.Subtitle)
	desc := normalizeEpisodeText(s.Description)
	switch p {
	case DedupSubAndDesc:
		if sub == "" && desc == "" {
			return ""
		}
		return hashKey(s.Title, sub+"\x1f"+desc)
	case DedupSubThenDesc:
		if sub != "" {
			return hashKey(s.Title, sub)
		}
		if desc != "" {
			return hashKey(s.Title, desc)
		}
		return ""
	case DedupSubtitleOnly:
		if sub == "" {
			return ""
		}
		return hashKey(s.Title, sub)
	case DedupDescOnly:
		if desc == "" {
			return ""
		}
		return hashKey(s.Title, desc)
	default: // DedupNone or unset
		return ""
	}
}

func normalizeEpisodeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func hashKey(title, payload string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(title)))
	_, _ = h.Write([]byte{0x1f})
	_, _ = h.Write([]byte(payload))
	return fmt.Sprintf("%016x", h.Sum64())
}

type candKey struct {
	Rule    string
	Showing ShowingID
}

type suppression struct {
	Cand   Candidate
	Status Status
	Other  ShowingID
	Reason string
}

type dedupResult struct {
	retained   []Candidate
	suppressed []suppression
	// alternates lists, per retained representative, the other members of its
	// equivalence group in start order. The resolver falls back to them when
	// the representative cannot be placed.
	alternates map[candKey][]Candidate
}

// groupKeyFor returns the equivalence-group key for a candidate, or "" when
// the showing is its own group.
func groupKeyFor(r Rule, s Showing) string {
	switch r.Kind {
	case KindFindOne:
		return "find"
	case KindDaily, KindFindDaily:
		return "day:" + s.Start.UTC().Format("2006-01-02")
	case KindWeekly, KindFindWeekly:
		y, w := s.Start.UTC().ISOWeek()
		return fmt.Sprintf("week:%04d-%02d", y, w)
	default:
		return DedupKey(r.DedupPolicy, s)
	}
}

// Dedup collapses candidates that represent the same episode. It performs the
// cross-rule collapse on identical showings first, then groups the survivors
// per rule by equivalence key and retains one representative per group.
func Dedup(snap Snapshot, cfg Config, cands []Candidate, hist History) *dedupResult {
	res := &dedupResult{alternates: make(map[candKey][]Candidate)}

	// Cross-rule collapse: when two rules match the literally identical
	// showing, the higher-effective-priority rule keeps it. Kind precedence
	// only breaks priority ties here.
	byShowing := make(map[ShowingID][]Candidate)
	for _, c := range cands {
		byShowing[c.ShowingID] = append(byShowing[c.ShowingID], c)
	}
	var survivors []Candidate
	for _, sid := range sortedKeys(byShowing) {
		group := byShowing[sid]
		slices.SortStableFunc(group, func(a, b Candidate) int {
			if a.Priority != b.Priority {
				return b.Priority - a.Priority
			}
			return compareCandidates(snap, cfg, a, b)
		})
		survivors = append(survivors, group[0])
		for _, loser := range group[1:] {
			res.suppressed = append(res.suppressed, suppression{
				Cand:   loser,
				Status: StatusOtherShowing,
				Other:  sid,
				Reason: fmt.Sprintf("rule %s takes this showing", group[0].RuleID),
			})
		}
	}

	// Per-rule equivalence grouping.
	type ruleGroup struct {
		Rule string
		Key  string
	}
	groups := make(map[ruleGroup][]Candidate)
	var order []ruleGroup
	for _, c := range survivors {
		r := snap.Rules[c.RuleID]
		s := snap.Showings[c.ShowingID]
		key := groupKeyFor(r, s)
		if key == "" {
			// Own equivalence class: record every airing.
			res.retained = append(res.retained, c)
			continue
		}
		gk := ruleGroup{Rule: c.RuleID, Key: key}
		if _, seen := groups[gk]; !seen {
			order = append(order, gk)
		}
		groups[gk] = append(groups[gk], c)
	}
	slices.SortFunc(order, func(a, b ruleGroup) int {
		if a.Rule != b.Rule {
			return strings.Compare(a.Rule, b.Rule)
		}
		return strings.Compare(a.Key, b.Key)
	})

	for _, gk := range order {
		members := groups[gk]
		rule := snap.Rules[gk.Rule]
		slices.SortFunc(members, func(a, b Candidate) int {
			sa, sb := snap.Showings[a.ShowingID], snap.Showings[b.ShowingID]
			if !sa.Start.Equal(sb.Start) {
				if sa.Start.Before(sb.Start) {
					return -1
				}
				return 1
			}
			return strings.Compare(string(a.ShowingID), string(b.ShowingID))
		})

		// Episodes already in history are excluded as repeats unless the rule
		// explicitly allows re-recording.
		var eligible []Candidate
		for _, c := range members {
			s := snap.Showings[c.ShowingID]
			key := DedupKey(rule.DedupPolicy, s)
			if key != "" && !rule.AllowRerecord && hist != nil &&
				hist.EpisodeRecorded(key, scopeOf(rule)) {
				res.suppressed = append(res.suppressed, suppression{
					Cand:   c,
					Status: StatusRepeat,
					Reason: "episode already recorded",
				})
				continue
			}
			eligible = append(eligible, c)
		}
		if len(eligible) == 0 {
			continue
		}

		// Representative: earliest remaining start. Find-style rules seek the
		// nearest future showing, which is the same member since past
		// showings were seeded out before deduplication.
		rep := eligible[0]
		res.retained = append(res.retained, rep)
		rk := candKey{Rule: rep.RuleID, Showing: rep.ShowingID}
		for _, c := range eligible[1:] {
			res.alternates[rk] = append(res.alternates[rk], c)
			res.suppressed = append(res.suppressed, suppression{
				Cand:   c,
				Status: StatusOtherShowing,
				Other:  rep.ShowingID,
				Reason: "another showing of this episode will record",
			})
		}
	}

	return res
}

func scopeOf(r Rule) DedupScope {
	if r.DedupScope.Valid() {
		return r.DedupScope
	}
	return ScopeBoth
}

// compareCandidates imposes the resolver's total order: rule-kind precedence,
// effective priority descending, start time ascending, then showing and rule
// IDs so ties never depend on iteration order.
func compareCandidates(snap Snapshot, cfg Config, a, b Candidate) int {
	ra, rb := snap.Rules[a.RuleID], snap.Rules[b.RuleID]
	if pa, pb := cfg.precedence(ra.Kind), cfg.precedence(rb.Kind); pa != pb {
		return pa - pb
	}
	if a.Priority != b.Priority {
		return b.Priority - a.Priority
	}
	sa, sb := snap.Showings[a.ShowingID], snap.Showings[b.ShowingID]
	if !sa.Start.Equal(sb.Start) {
		if sa.Start.Before(sb.Start) {
			return -1
		}
		return 1
	}
	if a.ShowingID != b.ShowingID {
		return strings.Compare(string(a.ShowingID), string(b.ShowingID))
	}
	return strings.Compare(a.RuleID, b.RuleID)
}

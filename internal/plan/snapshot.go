// SPDX-License-Identifier: MIT

package plan

import "maps"

// Clone returns a deep-enough copy of the snapshot: all maps are duplicated
// so the copy can be edited without touching the original. Entity values are
// plain data and copied by value.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Rules = maps.Clone(s.Rules)
	out.Showings = maps.Clone(s.Showings)
	out.Tuners = maps.Clone(s.Tuners)
	out.Overrides = maps.Clone(s.Overrides)
	if s.LiveSessions != nil {
		out.LiveSessions = append([]LiveSession(nil), s.LiveSessions...)
	}
	return out
}

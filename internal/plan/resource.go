// SPDX-License-Identifier: MIT

package plan

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrReservationConflict is returned when Reserve would violate the
	// input-group non-overlap invariant. The caller must only call Reserve
	// after CanReserve succeeds, so hitting this is a programming error.
	ErrReservationConflict = errors.New("reservation conflicts with input group")

	// ErrUnknownTuner is returned for operations on a tuner not in the model.
	ErrUnknownTuner = errors.New("unknown tuner")

	// ErrUnknownReservation is returned by Release when no reservation exists
	// for the given tuner and owner.
	ErrUnknownReservation = errors.New("unknown reservation")
)

type reservation struct {
	Owner    ShowingID
	Interval Interval
}

// Resources is the in-memory reservation table for one planning cycle. It
// answers capacity questions over tuners and their input groups. Nothing here
// touches real hardware.
type Resources struct {
	tuners  map[TunerID]Tuner
	byGroup map[InputGroupID][]TunerID
	held    map[TunerID][]reservation
}

// NewResources builds a reservation table over the snapshot's tuners.
func NewResources(tuners map[TunerID]Tuner) *Resources {
	r := &Resources{
		tuners:  tuners,
		byGroup: make(map[InputGroupID][]TunerID),
		held:    make(map[TunerID][]reservation),
	}
	for _, id := range sortedKeys(tuners) {
		t := tuners[id]
		r.byGroup[t.InputGroup] = append(r.byGroup[t.InputGroup], id)
	}
	return r
}

// CandidateTuners returns the online tuners able to receive the channel,
// ordered by descending input priority, then fewest existing reservations,
// then tuner ID.
func (r *Resources) CandidateTuners(ch ChannelID) []TunerID {
	var out []TunerID
	for _, id := range sortedKeys(r.tuners) {
		t := r.tuners[id]
		if t.Offline || !t.CanReceive(ch) {
			continue
		}
		out = append(out, id)
	}
	slices.SortStableFunc(out, func(a, b TunerID) int {
		ta, tb := r.tuners[a], r.tuners[b]
		if ta.InputPriority != tb.InputPriority {
			return tb.InputPriority - ta.InputPriority
		}
		if d := len(r.held[a]) - len(r.held[b]); d != 0 {
			return d
		}
		if a < b {
			return -1
		}
		return 1
	})
	return out
}

// CapableTuners returns every tuner able to receive the channel, including
// offline ones. Used to distinguish "all recorders offline" from "no tuner".
func (r *Resources) CapableTuners(ch ChannelID) []TunerID {
	var out []TunerID
	for _, id := range sortedKeys(r.tuners) {
		if r.tuners[id].CanReceive(ch) {
			out = append(out, id)
		}
	}
	return out
}

// CanReserve reports whether the tuner can accept a new reservation for the
// interval: no committed reservation on any tuner in the same input group may
// overlap it.
func (r *Resources) CanReserve(id TunerID, iv Interval) bool {
	t, ok := r.tuners[id]
	if !ok {
		return false
	}
	for _, peer := range r.byGroup[t.InputGroup] {
		for _, res := range r.held[peer] {
			if res.Interval.Overlaps(iv) {
				return false
			}
		}
	}
	return true
}

// Reserve commits a reservation. It fails with ErrReservationConflict if the
// input-group invariant would be violated; per the contract this only happens
// when the caller skipped CanReserve.
func (r *Resources) Reserve(id TunerID, iv Interval, owner ShowingID) error {
	if _, ok := r.tuners[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTuner, id)
	}
	if !r.CanReserve(id, iv) {
		return fmt.Errorf("%w: tuner %s owner %s", ErrReservationConflict, id, owner)
	}
	r.held[id] = append(r.held[id], reservation{Owner: owner, Interval: iv})
	return nil
}

// Release frees the reservation held by owner on the tuner.
func (r *Resources) Release(id TunerID, owner ShowingID) error {
	held := r.held[id]
	for i, res := range held {
		if res.Owner == owner {
			r.held[id] = slices.Delete(held, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("%w: tuner %s owner %s", ErrUnknownReservation, id, owner)
}

// Blocking returns the owners of reservations in the tuner's input group that
// overlap the interval, in deterministic order.
func (r *Resources) Blocking(id TunerID, iv Interval) []ShowingID {
	t, ok := r.tuners[id]
	if !ok {
		return nil
	}
	var out []ShowingID
	for _, peer := range r.byGroup[t.InputGroup] {
		for _, res := range r.held[peer] {
			if res.Interval.Overlaps(iv) {
				out = append(out, res.Owner)
			}
		}
	}
	slices.Sort(out)
	return out
}

// OverlapCount returns how many committed reservations overlap the interval
// across all tuners.
func (r *Resources) OverlapCount(iv Interval) int {
	n := 0
	for _, id := range sortedKeys(r.held) {
		for _, res := range r.held[id] {
			if res.Interval.Overlaps(iv) {
				n++
			}
		}
	}
	return n
}

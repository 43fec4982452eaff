// SPDX-License-Identifier: MIT

package sched

import (
	"context"
	"slices"
	"strings"

	"github.com/svoss/recplan/internal/metrics"
	"github.com/svoss/recplan/internal/plan"
)

// RuleEdit describes one hypothetical rule change for a what-if preview.
// Exactly one of Set or DeleteID is used.
type RuleEdit struct {
	Set      *plan.Rule `json:"set,omitempty"`
	DeleteID string     `json:"delete_id,omitempty"`
}

// Delta is one difference between the published plan and a preview run.
type Delta struct {
	RuleID    string         `json:"rule_id"`
	ShowingID plan.ShowingID `json:"showing_id"`
	OldStatus plan.Status    `json:"old_status,omitempty"`
	NewStatus plan.Status    `json:"new_status,omitempty"`
	OldTuner  plan.TunerID   `json:"old_tuner,omitempty"`
	NewTuner  plan.TunerID   `json:"new_tuner,omitempty"`
}

// PreviewResult is the outcome of a what-if run. The full plan is included
// so clients can inspect outcomes beyond the diff.
type PreviewResult struct {
	Plan   *plan.Plan `json:"plan"`
	Deltas []Delta    `json:"deltas"`
}

// Preview runs a read-only planning pass with the supplied rule edits
// applied on top of the current catalog. Nothing is published, persisted or
// pushed to the backend; the published plan is untouched.
func (s *Scheduler) Preview(ctx context.Context, edits []RuleEdit) (*PreviewResult, error) {
	snap, err := s.snapshot(ctx, false)
	if err != nil {
		return nil, err
	}
	snap = snap.Clone()
	for _, e := range edits {
		switch {
		case e.Set != nil:
			if err := plan.ValidateRule(*e.Set); err != nil {
				return nil, err
			}
			snap.Rules[e.Set.ID] = *e.Set
		case e.DeleteID != "":
			delete(snap.Rules, e.DeleteID)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := plan.Run(snap, s.deps, s.planCfg)
	if err != nil {
		return nil, err
	}
	metrics.RecordPreview()
	return &PreviewResult{
		Plan:   p,
		Deltas: diffPlans(s.published.Load(), p),
	}, nil
}

func diffPlans(prev, next *plan.Plan) []Delta {
	type key struct {
		rule    string
		showing plan.ShowingID
	}
	oldRecs := make(map[key]plan.Recording)
	if prev != nil {
		for _, rec := range prev.Recordings {
			oldRecs[key{rec.RuleID, rec.ShowingID}] = rec
		}
	}

	var deltas []Delta
	seen := make(map[key]bool)
	for _, rec := range next.Recordings {
		k := key{rec.RuleID, rec.ShowingID}
		seen[k] = true
		prev, existed := oldRecs[k]
		if existed && prev.Status == rec.Status && prev.TunerID == rec.TunerID {
			continue
		}
		d := Delta{
			RuleID:    rec.RuleID,
			ShowingID: rec.ShowingID,
			NewStatus: rec.Status,
			NewTuner:  rec.TunerID,
		}
		if existed {
			d.OldStatus = prev.Status
			d.OldTuner = prev.TunerID
		}
		deltas = append(deltas, d)
	}
	for k, prev := range oldRecs {
		if seen[k] {
			continue
		}
		deltas = append(deltas, Delta{
			RuleID:    k.rule,
			ShowingID: k.showing,
			OldStatus: prev.Status,
			OldTuner:  prev.TunerID,
		})
	}

	slices.SortFunc(deltas, func(a, b Delta) int {
		if a.RuleID != b.RuleID {
			return strings.Compare(a.RuleID, b.RuleID)
		}
		return strings.Compare(string(a.ShowingID), string(b.ShowingID))
	})
	return deltas
}

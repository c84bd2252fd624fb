// ============================================================================
// racewalk WAVE Reorderer
// ============================================================================
//
// Package: internal/reorder
// File: wave.go
// Purpose: Secondary, coverage-oriented explorer. Produces K schedules by
// applying randomly selected single-pair reversals, spreading mutations
// across all K outputs rather than refining one.
//
// Design Pattern:
//   Every independent (i<j, not hb-ordered) pair in the input schedule is
//   a candidate. Pairs are shuffled once, then assigned round-robin to the
//   K output slots: pair p goes to schedules[p mod K]. Because each slot
//   holds its own schedule and no slot is ever touched by more than one
//   pair in the same round, the K mutations are embarrassingly parallel —
//   unlike the EAT engine (internal/explorer), which must stay strictly
//   single-threaded, WAVE runs its slot mutations concurrently with a
//   bounded errgroup.
//
// Architecture:
//   ┌──────────────┐
//   │ shuffled pairs│--round robin-->  slot 0 . slot 1 . ... . slot K-1
//   └──────────────┘                      │        │              │
//                                     errgroup  errgroup      errgroup
//                                      mutate    mutate        mutate
//
// Failure:
//   A reversal fails silently (counted, not propagated) if x no longer
//   precedes y in its slot's already-mutated schedule — an earlier pair
//   routed to the same slot can already have moved y ahead of x.
//
// ============================================================================

package reorder

import (
	"math/rand"

	"github.com/ChuLiYu/racewalk/pkg/racetypes"
	"golang.org/x/sync/errgroup"
)

// WaveResult is the outcome of a WAVE run: the K mutated schedules and how
// many reversal attempts failed (because an earlier reversal assigned to
// the same slot had already placed y before x).
type WaveResult struct {
	Schedules []racetypes.StrictSchedule
	Failed    int
}

// Wave produces k schedules from s by reversing every independent pair
// (i<j with !hb(s[i],s[j])) exactly once, assigned round-robin across the
// k output slots, using the single-dependency rewrite from Reverse but
// restricted to hb-only dependency (no race leg — WAVE has no race set to
// consult, only the hb oracle).
//
// rng, if non-nil, is used for the pair shuffle; pass a seeded
// *rand.Rand for reproducible tests, or nil to use the default source.
func Wave(s racetypes.StrictSchedule, hb racetypes.EventGraph, k int, rng *rand.Rand) (WaveResult, error) {
	if k <= 0 {
		return WaveResult{}, nil
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	type pair struct{ x, y racetypes.EventID }
	var pairs []pair
	for i := 0; i < len(s); i++ {
		for j := i + 1; j < len(s); j++ {
			if hb != nil && hb.AreOrdered(s[i], s[j]) {
				continue
			}
			pairs = append(pairs, pair{s[i], s[j]})
		}
	}
	rng.Shuffle(len(pairs), func(a, b int) { pairs[a], pairs[b] = pairs[b], pairs[a] })

	schedules := make([]racetypes.StrictSchedule, k)
	for i := range schedules {
		schedules[i] = append(racetypes.StrictSchedule(nil), s...)
	}

	// Group pairs by the slot they'll mutate so each goroutine only ever
	// touches its own slot's schedule — no shared mutable state across
	// goroutines, so no synchronization is needed beyond errgroup's join.
	bySlot := make([][]pair, k)
	for i, p := range pairs {
		slot := i % k
		bySlot[slot] = append(bySlot[slot], p)
	}

	failed := make([]int, k)
	var g errgroup.Group
	for slot := range schedules {
		slot := slot
		g.Go(func() error {
			for _, p := range bySlot[slot] {
				next, ok := reverseOnePair(schedules[slot], p.x, p.y, hb)
				if !ok {
					failed[slot]++
					continue
				}
				schedules[slot] = next
			}
			return nil
		})
	}
	_ = g.Wait() // slot mutation never returns an error; kept for the errgroup idiom

	total := 0
	for _, f := range failed {
		total += f
	}
	return WaveResult{Schedules: schedules, Failed: total}, nil
}

// reverseOnePair applies the a.b'.y.x.b''.c rewrite for a single pair to
// schedule, using hb-only dependency (no race leg, no sentinels — see
// §4.3). Reports ok=false if x or y is absent or x does not precede y.
func reverseOnePair(schedule racetypes.StrictSchedule, x, y racetypes.EventID, hb racetypes.EventGraph) (racetypes.StrictSchedule, bool) {
	xIdx := indexOf(schedule, x)
	yIdx := indexOf(schedule, y)
	if xIdx < 0 || yIdx < 0 || xIdx >= yIdx {
		return nil, false
	}

	a := schedule[:xIdx]
	b := schedule[xIdx+1 : yIdx]
	c := schedule[yIdx+1:]

	bPrime, bDoublePrime := partitionDependents(b, x, hb, nil)

	out := make(racetypes.StrictSchedule, 0, len(schedule))
	out = append(out, a...)
	out = append(out, bPrime...)
	out = append(out, y)
	out = append(out, x)
	out = append(out, bDoublePrime...)
	out = append(out, c...)
	return out, true
}

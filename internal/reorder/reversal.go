// ============================================================================
// racewalk Race-Reversal Reorderer
// ============================================================================
//
// Package: internal/reorder
// File: reversal.go
// Purpose: Given a recorded strict schedule and a racing pair (x, y) with x
// before y, build a new executable schedule that swaps them while
// preserving the happens-before relation of events causally dependent on x.
//
// Rewrite shape:
//   S = a . [x] . b . [y] . c
//   out = a . b' . <change>? . [y] . <relax>? . [x] . b'' . c
//
// where b'++b'' = b order-preserving, and an event u in b lands in b'' iff
// it depends (transitively) on some event already in b'' — starting with
// just x. Dependency is the union of:
//   - hb(v, u) for any v already in b''
//   - v and u race (a RaceInfo with event1=v, event2=u exists)
//
// b'' is therefore the transitive causal downstream of x within b;
// placing it after y keeps the reordering happens-before safe. b' is
// independent of x in the prefix and can run earlier without changing
// anything races or hb constrain.
//
// ============================================================================

package reorder

import (
	"fmt"

	"github.com/ChuLiYu/racewalk/pkg/racetypes"
)

// Result is what a successful reversal produces: the rewritten executable
// schedule, plus the positions of x and y within its strict form — the
// explorer compares these against the actually-executed schedule to flag
// stack states raceFirst/raceSecond for the mini sleep-set check.
type Result struct {
	Executable racetypes.ExecutableSchedule
	// XIndex and YIndex are indices into Executable's strict subsequence
	// of the reversed pair (y always precedes x there, per the rewrite
	// shape), not into the input schedule s.
	XIndex, YIndex int
}

// Reverse builds the reordered schedule for race (x=race.Event1,
// y=race.Event2) over strict schedule s, given a happens-before oracle and
// the full race set of the execution that produced s (used for the
// race-dependency leg of "does u depend on something already moved after
// y"). opts controls the optional sentinels.
//
// Reverse fails if either event is absent from s — the spec treats an
// out-of-range race id as a recoverable failure for the caller to drop,
// not a panic.
func Reverse(s racetypes.StrictSchedule, race racetypes.RaceInfo, hb racetypes.EventGraph, races []racetypes.RaceInfo, opts racetypes.Options) (Result, error) {
	xIdx := indexOf(s, race.Event1)
	yIdx := indexOf(s, race.Event2)
	if xIdx < 0 || yIdx < 0 {
		return Result{}, fmt.Errorf("reorder: race (%d,%d) not found in schedule", race.Event1, race.Event2)
	}
	if xIdx >= yIdx {
		return Result{}, fmt.Errorf("reorder: race event1 %d does not precede event2 %d", race.Event1, race.Event2)
	}

	a := s[:xIdx]
	x := s[xIdx]
	b := s[xIdx+1 : yIdx]
	y := s[yIdx]
	c := s[yIdx+1:]

	bPrime, bDoublePrime := partitionDependents(b, x, hb, races)

	// strictPos tracks the position within the *strict* subsequence as we
	// build out — sentinels (inserted below) don't advance it, since
	// XIndex/YIndex must line up with the executed schedule S' the
	// replay runtime reports, which carries no sentinels.
	strictPos := len(a) + len(bPrime)

	out := make(racetypes.ExecutableSchedule, 0, len(s)+2)
	out = append(out, a...)
	out = append(out, bPrime...)
	if opts.IncludeChangeMarker {
		out = append(out, racetypes.ChangeMarker)
	}
	outYIdx := strictPos
	out = append(out, y)
	strictPos++
	if opts.RelaxReplayAfterAllRaces {
		out = append(out, racetypes.RelaxMarker)
	}
	outXIdx := strictPos
	out = append(out, x)
	out = append(out, bDoublePrime...)
	out = append(out, c...)

	return Result{Executable: out, XIndex: outXIdx, YIndex: outYIdx}, nil
}

// partitionDependents splits b into (b', b'') where b'' holds the
// transitive causal downstream of seed within b, in original order, and
// b' holds everything else, also in original order.
//
// The dependency set starts at {seed} and grows incrementally: each u in
// b (in order) is tested against every member already placed in b'' so
// far, not just against seed. If u depends (directly) on any of them, u
// joins b'' and the set grows; otherwise u is independent of everything
// moved so far and stays in b'. This mirrors the incremental set growth
// in the ground-truth reorderer rather than a plain suffix split —
// elements past the first dependent one are not swept in automatically,
// since an element can be independent of x yet come after, in schedule
// order, an element that does depend on x.
func partitionDependents(b racetypes.StrictSchedule, seed racetypes.EventID, hb racetypes.EventGraph, races []racetypes.RaceInfo) (bPrime, bDoublePrime racetypes.StrictSchedule) {
	moved := []racetypes.EventID{seed}
	for _, u := range b {
		dependent := false
		for _, v := range moved {
			if dependsDirect(v, u, hb, races) {
				dependent = true
				break
			}
		}
		if dependent {
			bDoublePrime = append(bDoublePrime, u)
			moved = append(moved, u)
		} else {
			bPrime = append(bPrime, u)
		}
	}
	return bPrime, bDoublePrime
}

func dependsDirect(v, u racetypes.EventID, hb racetypes.EventGraph, races []racetypes.RaceInfo) bool {
	if hb != nil && hb.AreOrdered(v, u) {
		return true
	}
	for _, r := range races {
		if r.Event1 == v && r.Event2 == u {
			return true
		}
	}
	return false
}

func indexOf(s racetypes.StrictSchedule, id racetypes.EventID) int {
	for i, e := range s {
		if e == id {
			return i
		}
	}
	return -1
}

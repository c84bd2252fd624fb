// ============================================================================
// racewalk EAT Exploration Engine — stack bookkeeping
// ============================================================================
//
// Package: internal/explorer
// File: stack.go
// Purpose: the per-prefix stack of StackState values and the pending
// continuations (EATEntry) attached to them, plus the three operations
// that keep pending continuations correctly rooted as the stack grows:
// StateHasUnexploredEAT, EATMerge, EATPropagate.
//
// Data Structure:
//   jobs map style from the job manager does not apply here — there is
//   no persistent id-keyed store, only an append-only stack of owned
//   states. Each StackState is uniquely owned by its slot in the stack;
//   popping a state destroys it (drops the last reference).
//
// Ownership:
//   EATPropagate swaps a state's EAT slice out from under it — a caller
//   holding a *StackState across an EATPropagate(stack, sameIndex) call
//   must re-fetch it afterward; the struct itself is not replaced, only
//   its EAT field.
//
// ============================================================================

package explorer

import (
	"github.com/ChuLiYu/racewalk/internal/schedule"
	"github.com/ChuLiYu/racewalk/pkg/racetypes"
)

// EATEntry is a pending continuation of some prefix on the stack: the
// run that produced it, the race that proposed it (-1 for the initial
// seed), the strict suffix still to be scheduled, the full executable
// form (with sentinels) ready to hand to the schedule store, and the
// reversal depth it carries.
type EATEntry struct {
	BaseRaceOutputDir  string
	RaceID             int
	ScheduleSuffix     racetypes.StrictSchedule
	ExecutableSchedule racetypes.ExecutableSchedule
	Reorder            *schedule.Store
	Origin             string
	// XIndex and YIndex are the positions, within ExecutableSchedule's
	// strict form, of the race's first and second event — carried so
	// that once this entry is actually executed, the newly pushed
	// states at those positions can be flagged RaceFirst/RaceSecond for
	// the mini sleep-set check. -1 for the seed entry (no reversal).
	XIndex int
	YIndex int
	Depth              int
}

// StackState is one explored prefix: the path from the stack's root to
// here, the set of next-events already tried from this prefix, the
// pending continuations rooted here, and the bookkeeping the engine's
// pruning rules consult.
type StackState struct {
	Name          string
	Schedule      racetypes.StrictSchedule
	Visited       map[racetypes.EventID]bool
	EAT           []EATEntry
	RaceFirst     bool
	RaceSecond    bool
	OldStyleDepth int
}

// NewStackState returns a StackState with an initialized Visited set.
func NewStackState(name string, sched racetypes.StrictSchedule) *StackState {
	return &StackState{
		Name:     name,
		Schedule: sched,
		Visited:  make(map[racetypes.EventID]bool),
	}
}

// lastEvent returns the last event id of the state's schedule, or -1 for
// an empty (root) schedule.
func (s *StackState) lastEvent() racetypes.EventID {
	if len(s.Schedule) == 0 {
		return -1
	}
	return s.Schedule[len(s.Schedule)-1]
}

// StateHasUnexploredEAT scans state.EAT in insertion order and returns
// the first entry whose suffix's next event has not already been
// selected from this prefix. No entry is removed from state.EAT by this
// call — StateHasUnexploredEAT only peeks.
func StateHasUnexploredEAT(state *StackState) (EATEntry, bool) {
	for _, e := range state.EAT {
		if len(e.ScheduleSuffix) == 0 {
			continue
		}
		if !state.Visited[e.ScheduleSuffix[0]] {
			return e, true
		}
	}
	return EATEntry{}, false
}

// EATMerge walks the longest common prefix between the stack descending
// from offset and entry.ScheduleSuffix, then pushes onto the stack state
// at the end of that walk a copy of entry truncated past the common
// prefix. Returns the schedule offset within entry.ScheduleSuffix where
// the walk stopped, or -1 if the whole suffix was already consumed by
// the existing stack (this continuation is already on-stack, nothing
// new to add).
//
// Dedup: if the target state already holds an EAT entry with the same
// RaceID, the new entry carries nothing EATMerge hasn't already recorded
// for that race and is dropped — this is what makes two identical
// EATMerge calls in a row idempotent (see P3): the first call records
// the race id, the second finds it already present.
func EATMerge(stack []*StackState, offset int, entry EATEntry) int {
	k := offset
	scheduleOffset := 0
	for k+1 < len(stack) &&
		scheduleOffset < len(entry.ScheduleSuffix) &&
		stack[k+1].lastEvent() == entry.ScheduleSuffix[scheduleOffset] {
		k++
		scheduleOffset++
	}

	if scheduleOffset >= len(entry.ScheduleSuffix) {
		return -1
	}

	target := stack[k]
	for _, existing := range target.EAT {
		if existing.RaceID == entry.RaceID {
			return -1
		}
	}

	truncated := entry
	truncated.ScheduleSuffix = entry.ScheduleSuffix[scheduleOffset:]
	target.EAT = append(target.EAT, truncated)
	return scheduleOffset
}

// EATPropagate drains stack[index].EAT and re-merges each entry via
// EATMerge, rooting it at whatever point of the (now possibly longer)
// stack its suffix's common prefix reaches. Called after an execution
// has extended the stack past index, to push the parent's still-pending
// continuations down onto the new states where they belong.
func EATPropagate(stack []*StackState, index int) {
	pending := stack[index].EAT
	stack[index].EAT = nil
	for _, e := range pending {
		EATMerge(stack, index, e)
	}
}

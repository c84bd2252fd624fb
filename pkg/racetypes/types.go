// ============================================================================
// racewalk Core Type Definitions
// ============================================================================
//
// Package: pkg/racetypes
// Purpose: Core domain models shared by every component of the explorer —
// schedules, races, happens-before, and reorderer options. The EAT/stack
// bookkeeping types live in internal/explorer.
//
// Design Principles:
//   1. Event ids are dense non-negative integers assigned by the external
//      replay runtime; two sentinels extend the alphabet for executable
//      schedules (see ChangeMarker / RelaxMarker below).
//   2. Types here are pure data — no I/O, no subprocess invocation. Reading
//      and writing schedule files lives in internal/schedule; running the
//      replay command lives in internal/replay.
//
// ============================================================================

// Package racetypes defines the shared data model for schedules, races,
// and happens-before queries used by the exploration engine.
package racetypes

// EventID identifies a single event action. The replay runtime assigns
// dense, non-negative ids in execution order.
type EventID int

const (
	// ChangeMarker is the executable-schedule sentinel "-2": a hint to the
	// replay runtime that an alternate continuation begins here.
	ChangeMarker EventID = -2

	// RelaxMarker is the executable-schedule sentinel "-1": a hint that the
	// replay runtime may relax enforcement of the schedule after this point.
	RelaxMarker EventID = -1
)

// IsSentinel reports whether id is one of the two markers rather than a
// real event id.
func (id EventID) IsSentinel() bool {
	return id == ChangeMarker || id == RelaxMarker
}

// StrictSchedule is an ordered sequence of real event ids only — no
// markers.
type StrictSchedule []EventID

// ExecutableSchedule is an ordered sequence over the extended alphabet
// {ChangeMarker, RelaxMarker, 0..N}; this is what gets written to a
// schedule file and handed to the replay runtime.
type ExecutableSchedule []EventID

// Strict drops the sentinels, yielding the strict subsequence.
func (s ExecutableSchedule) Strict() StrictSchedule {
	out := make(StrictSchedule, 0, len(s))
	for _, id := range s {
		if !id.IsSentinel() {
			out = append(out, id)
		}
	}
	return out
}

// RaceInfo is a single race record as produced by the external race
// detector. A race is uncovered iff MultiParentRaces is empty and
// CoveredBy == -1.
type RaceInfo struct {
	Event1           EventID
	Event2           EventID
	VarID            string
	MultiParentRaces []EventID
	CoveredBy        EventID
}

// Uncovered reports whether this race has not already been subsumed by a
// broader multi-parent race or an earlier covering reversal.
func (r RaceInfo) Uncovered() bool {
	return len(r.MultiParentRaces) == 0 && r.CoveredBy == -1
}

// VarsInfo is the external race detector's result set for one execution:
// the races discovered over that execution's recorded accesses.
type VarsInfo interface {
	// Races returns every race the detector found in the trace it ingested.
	Races() []RaceInfo
}

// EventGraph is the external happens-before oracle: areOrdered(a,b)
// reports whether the replay runtime's enforced ordering places a and b in
// a causal relationship (in either direction — the query is symmetric in
// its arguments, not in its meaning).
type EventGraph interface {
	AreOrdered(a, b EventID) bool
}

// Options configures the optional sentinels emitted by the race-reversal
// reorderer (C2).
type Options struct {
	// IncludeChangeMarker inserts ChangeMarker immediately before the
	// reversed event y.
	IncludeChangeMarker bool

	// RelaxReplayAfterAllRaces inserts RelaxMarker immediately after y.
	RelaxReplayAfterAllRaces bool
}

// ============================================================================
// racewalk EAT Exploration Engine
// ============================================================================
//
// Package: internal/explorer
// File: engine.go
// Purpose: The single-threaded, depth-first driver that turns a seed
// schedule into a tree of re-executions, each one reversing an uncovered
// race discovered in the previous run's trace.
//
// Architecture:
//   ┌────────────┐  pop unexplored EAT   ┌─────────────┐
//   │   stack    │ --------------------> │ replay.Run  │
//   │ (owned,    │ <-------------------- │  (C5)       │
//   │  LIFO)     │   extend / propagate  └─────────────┘
//   └────────────┘                              │
//        ▲                                       ▼
//        │                             TraceLoader.Load (external
//        │                             race detector query)
//        │                                       │
//        └──────── EATMerge per uncovered race ──┘
//
// Concurrency: none. The only suspension point is the blocking Runner.Run
// call (C5); everything else is synchronous in-process bookkeeping, per
// the single-threaded mandate for the core engine (WAVE is the sole
// carve-out — see internal/reorder).
//
// ============================================================================

package explorer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ChuLiYu/racewalk/internal/reorder"
	"github.com/ChuLiYu/racewalk/internal/replay"
	"github.com/ChuLiYu/racewalk/internal/schedule"
	"github.com/ChuLiYu/racewalk/pkg/racetypes"
)

// Runner is the subset of *replay.Invoker the engine depends on —
// narrowed to an interface so tests can substitute a fake external
// replay runtime.
type Runner interface {
	Run(ctx context.Context, name, origin, schedulePath string) (replay.Result, error)
}

// RunNamer hands out the run-name label stamped into each new execution.
type RunNamer interface {
	Next() string
}

// Trace is the race-detector query result for one completed execution:
// the strict schedule it actually ran (may diverge from the requested
// one past the enforced prefix) and the happens-before/race information
// needed to propose further reversals.
type Trace struct {
	Schedule racetypes.StrictSchedule
	Races    []racetypes.RaceInfo
	HB       racetypes.EventGraph
}

// TraceLoader resolves a completed run's output directory into the
// race-detector query result the engine consumes. This is the seam to
// the out-of-scope external race detector (VarsInfo, EventGraphInterface
// in the spec's vocabulary).
type TraceLoader interface {
	Load(runDir string) (Trace, error)
}

// Metrics receives observability callbacks from the explore loop.
// Implementations must tolerate being nil-checked away — Engine treats a
// nil Metrics as "don't record".
type Metrics interface {
	IncScheduled()
	IncSuccessfulReverse()
	ObserveStackDepth(n int)
	ObserveEATPending(n int)
}

// Config bounds and options for one Explore run.
type Config struct {
	ConflictReversalBound         int
	ConflictReversalBoundOldStyle bool
	IterationBound                int // -1 means unlimited
	SameStateReversalOpt          bool
	Options                       racetypes.Options
	WorkDir                       string // where per-iteration schedule files are written before Run
}

// Stats tallies the S5-style run-end counters.
type Stats struct {
	AllSchedules        int
	SuccessfulReverses  int
	SuccessfulSchedules int
}

// Engine drives the explore loop.
type Engine struct {
	cfg     Config
	runner  Runner
	loader  TraceLoader
	namer   RunNamer
	metrics Metrics
}

// New returns an Engine. metrics may be nil.
func New(cfg Config, runner Runner, loader TraceLoader, namer RunNamer, metrics Metrics) *Engine {
	return &Engine{cfg: cfg, runner: runner, loader: loader, namer: namer, metrics: metrics}
}

// Explore runs the stack-based DFS over seed, seeding a single root
// state whose EAT holds one entry (raceId=-1) wrapping the seed
// schedule, and returns the final stats.
func (e *Engine) Explore(ctx context.Context, seed racetypes.ExecutableSchedule, seedStore *schedule.Store) (Stats, error) {
	root := NewStackState("root", racetypes.StrictSchedule{})
	root.EAT = []EATEntry{{
		RaceID:             -1,
		ScheduleSuffix:     seed.Strict(),
		ExecutableSchedule: seed,
		Reorder:            seedStore,
		Origin:             "seed",
		Depth:              0,
		XIndex:             -1,
		YIndex:             -1,
	}}
	stack := []*StackState{root}

	var stats Stats
	iterations := 0

	for len(stack) > 0 {
		if e.cfg.IterationBound >= 0 && iterations >= e.cfg.IterationBound {
			break
		}

		top := len(stack) - 1
		state := stack[top]
		e.reportDepthMetrics(stack)

		entry, ok := StateHasUnexploredEAT(state)
		if !ok {
			stack = stack[:top]
			continue
		}
		iterations++

		state.Visited[entry.ScheduleSuffix[0]] = true

		name := e.namer.Next()
		schedPath := filepath.Join(e.cfg.WorkDir, name+".schedule.data")
		if err := entry.Reorder.Save(schedPath, entry.ExecutableSchedule); err != nil {
			return stats, fmt.Errorf("explorer: save schedule for %s: %w", name, err)
		}

		// The seed entry (RaceID == -1) is executed like any other but,
		// per the spec's run-end counters, is not itself a "schedule" —
		// it establishes the baseline the reversals are measured
		// against, so only race-derived entries tick these three.
		isReversal := entry.RaceID != -1
		if isReversal {
			stats.AllSchedules++
			stats.SuccessfulReverses++
		}

		res, err := e.runner.Run(ctx, name, entry.Origin, schedPath)
		if err != nil {
			// I/O / execution failure: the EAT entry was already marked
			// visited above, so the loop makes progress regardless. No
			// new state is pushed and the current state is not popped —
			// the next unexplored EAT (if any) is tried next iteration.
			slog.Default().Warn("explorer: replay failed", "run", name, "err", err)
			continue
		}
		if e.metrics != nil {
			e.metrics.IncScheduled()
		}
		if isReversal {
			stats.SuccessfulSchedules++
		}

		trace, err := e.loader.Load(res.RunDir)
		if err != nil {
			slog.Default().Warn("explorer: load trace failed", "run", name, "dir", res.RunDir, "err", err)
			continue
		}

		oldIdx := len(stack) - 1
		currentDepth := entry.Depth
		e.pushExecutedStates(&stack, state.Schedule, trace.Schedule, entry.XIndex, entry.YIndex)
		if isReversal && e.metrics != nil && len(stack) > oldIdx+1 {
			e.metrics.IncSuccessfulReverse()
		}

		EATPropagate(stack, oldIdx)
		// state is no longer valid past this point: EATPropagate swapped
		// stack[oldIdx].EAT out from under it.

		e.ingestRaces(stack, trace, currentDepth, name, res.Benign, entry.Reorder)
	}

	return stats, nil
}

// pushExecutedStates appends one StackState per event of executed
// beyond the length of parentPrefix, each one event longer than its
// predecessor. xIndex/yIndex (or -1) mark the positions of the race
// reversal that produced this execution, for the mini sleep-set check.
func (e *Engine) pushExecutedStates(stack *[]*StackState, parentPrefix, executed racetypes.StrictSchedule, xIndex, yIndex int) {
	base := *stack
	parentDepth := base[len(base)-1].OldStyleDepth
	for i := len(parentPrefix); i < len(executed); i++ {
		sched := append(racetypes.StrictSchedule(nil), executed[:i+1]...)
		st := NewStackState(fmt.Sprintf("state-%d", i), sched)
		st.OldStyleDepth = parentDepth + 1
		st.RaceFirst = i == xIndex
		st.RaceSecond = i == yIndex
		parentDepth = st.OldStyleDepth
		base = append(base, st)
	}
	*stack = base
}

// ingestRaces applies the five pruning rules to every uncovered race in
// trace and, for survivors, asks the reorderer for a new schedule and
// merges the resulting EAT entry onto the stack. store is the schedule
// Store that produced the just-executed run — reused for every new entry
// since a reversal only reorders existing event ids, never mints new
// ones, so the same payload table still applies.
func (e *Engine) ingestRaces(stack []*StackState, trace Trace, currentDepth int, runName string, benign bool, store *schedule.Store) {
	indexOf := func(id racetypes.EventID) int {
		for i, st := range stack {
			if st.lastEvent() == id {
				return i
			}
		}
		return -1
	}

	for _, r := range trace.Races {
		if !r.Uncovered() {
			continue
		}

		if e.cfg.ConflictReversalBoundOldStyle {
			i1 := indexOf(r.Event1)
			if i1 >= 0 && stack[i1].OldStyleDepth >= e.cfg.ConflictReversalBound {
				continue
			}
		} else if currentDepth >= e.cfg.ConflictReversalBound {
			continue
		}

		lastOnPath := stack[len(stack)-1].lastEvent()
		if r.Event2 < lastOnPath {
			continue // past-prefix pruning
		}

		i1, i2 := indexOf(r.Event1), indexOf(r.Event2)
		if i1 >= 0 && i2 >= 0 && i2-i1 == 1 && stack[i1].RaceFirst && stack[i2].RaceSecond {
			continue // mini sleep-set pruning: this exact reversal was just applied
		}

		if e.cfg.SameStateReversalOpt && benign {
			onRaceState := (i1 >= 0 && (stack[i1].RaceFirst || stack[i1].RaceSecond)) ||
				(i2 >= 0 && (stack[i2].RaceFirst || stack[i2].RaceSecond))
			if !onRaceState {
				continue
			}
		}

		res, err := reorder.Reverse(trace.Schedule, r, trace.HB, trace.Races, e.cfg.Options)
		if err != nil {
			continue
		}

		if i1 < 1 {
			continue
		}
		// stack[i1] is the state whose last event is x, so stack[i1-1]
		// holds the prefix a that precedes x. The rewritten schedule
		// keeps a unchanged, so its strict form from position i1-1 on
		// (b'·y·x·b''·c) is the continuation rooted at that prefix.
		// res.XIndex/YIndex travel with the entry for the mini sleep-set
		// flags once it executes.
		root := i1 - 1
		full := res.Executable.Strict()
		if root >= len(full) {
			continue
		}
		suffix := full[root:]

		entry := EATEntry{
			RaceID:             int(r.Event1)*1_000_000 + int(r.Event2),
			ScheduleSuffix:     suffix,
			ExecutableSchedule: res.Executable,
			Reorder:            store,
			Origin:             runName,
			Depth:              currentDepth + 1,
			XIndex:             res.XIndex,
			YIndex:             res.YIndex,
		}
		EATMerge(stack, root, entry)
	}
}

func (e *Engine) reportDepthMetrics(stack []*StackState) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveStackDepth(len(stack))
	pending := 0
	for _, st := range stack {
		pending += len(st.EAT)
	}
	e.metrics.ObserveEATPending(pending)
}


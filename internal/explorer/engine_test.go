package explorer

// ============================================================================
// EAT Exploration Engine test file
// Purpose: verify the literal scenario (S5) against a fake Runner/
// TraceLoader standing in for the external replay runtime and race
// detector, plus the depth-bound pruning invariant (P5).
// ============================================================================

import (
	"context"
	"testing"

	"github.com/ChuLiYu/racewalk/internal/replay"
	"github.com/ChuLiYu/racewalk/internal/schedule"
	"github.com/ChuLiYu/racewalk/pkg/racetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequentialNamer hands out deterministic run names for tests.
type sequentialNamer struct{ n int }

func (s *sequentialNamer) Next() string {
	s.n++
	return "run" + string(rune('0'+s.n))
}

// fakeRunner records every schedule path it's asked to run and always
// succeeds, returning a run dir keyed by name.
type fakeRunner struct {
	calls []string
}

func (f *fakeRunner) Run(_ context.Context, name, _ string, _ string) (replay.Result, error) {
	f.calls = append(f.calls, name)
	return replay.Result{RunDir: name}, nil
}

// scriptedLoader returns the canned Trace registered for a run dir name,
// and an empty Trace for any name not registered.
type scriptedLoader struct {
	byName map[string]Trace
}

func (s *scriptedLoader) Load(runDir string) (Trace, error) {
	if t, ok := s.byName[runDir]; ok {
		return t, nil
	}
	return Trace{}, nil
}

func TestScenarioS5SingleRaceOneReversal(t *testing.T) {
	dir := t.TempDir()
	seed := racetypes.ExecutableSchedule{1, 2, 3}
	store := schedule.New()
	store.SetPayload(1, "a")
	store.SetPayload(2, "b")
	store.SetPayload(3, "c")

	namer := &sequentialNamer{}
	runner := &fakeRunner{}
	loader := &scriptedLoader{byName: map[string]Trace{
		// The seed run ("run1") produces exactly the race (2,3),
		// uncovered. The reversal run ("run2") produces no further
		// races, so the stack drains after it.
		"run1": {
			Schedule: racetypes.StrictSchedule{1, 2, 3},
			Races:    []racetypes.RaceInfo{{Event1: 2, Event2: 3, CoveredBy: -1}},
			HB:       emptyHB{},
		},
		"run2": {
			Schedule: racetypes.StrictSchedule{1, 3, 2},
			Races:    nil,
			HB:       emptyHB{},
		},
	}}

	e := New(Config{
		ConflictReversalBound: 1,
		IterationBound:        -1,
		WorkDir:               dir,
	}, runner, loader, namer, nil)

	stats, err := e.Explore(context.Background(), seed, store)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.AllSchedules)
	assert.Equal(t, 1, stats.SuccessfulReverses)
	assert.Equal(t, 1, stats.SuccessfulSchedules)
	assert.Len(t, runner.calls, 2) // seed + one reversal: 2 runs total
}

type emptyHB struct{}

func (emptyHB) AreOrdered(a, b racetypes.EventID) bool { return false }

func TestDepthBoundPreventsFurtherReversalsPastBound(t *testing.T) {
	dir := t.TempDir()
	seed := racetypes.ExecutableSchedule{1, 2}
	store := schedule.New()
	store.SetPayload(1, "a")
	store.SetPayload(2, "b")

	namer := &sequentialNamer{}
	runner := &fakeRunner{}
	loader := &scriptedLoader{byName: map[string]Trace{
		"run1": {
			Schedule: racetypes.StrictSchedule{1, 2},
			Races:    []racetypes.RaceInfo{{Event1: 1, Event2: 2, CoveredBy: -1}},
			HB:       emptyHB{},
		},
	}}

	e := New(Config{
		ConflictReversalBound: 0, // bound of 0: no reversal may be proposed
		IterationBound:        -1,
		WorkDir:               dir,
	}, runner, loader, namer, nil)

	stats, err := e.Explore(context.Background(), seed, store)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.SuccessfulReverses)
	assert.Len(t, runner.calls, 1) // only the seed ran
}

func TestIterationBoundStopsExploration(t *testing.T) {
	dir := t.TempDir()
	seed := racetypes.ExecutableSchedule{1}
	store := schedule.New()
	store.SetPayload(1, "a")

	namer := &sequentialNamer{}
	runner := &fakeRunner{}
	loader := &scriptedLoader{byName: map[string]Trace{}}

	e := New(Config{
		ConflictReversalBound: 5,
		IterationBound:        0,
		WorkDir:               dir,
	}, runner, loader, namer, nil)

	_, err := e.Explore(context.Background(), seed, store)
	require.NoError(t, err)
	assert.Empty(t, runner.calls)
}

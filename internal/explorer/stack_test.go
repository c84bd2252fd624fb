package explorer

// ============================================================================
// EAT stack bookkeeping test file
// Purpose: verify the literal scenario (S6), merge idempotence (P3), and
// that StateHasUnexploredEAT never mutates what it scans.
// ============================================================================

import (
	"testing"

	"github.com/ChuLiYu/racewalk/pkg/racetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioS6EATMergeWalksCommonPrefix(t *testing.T) {
	s0 := NewStackState("s0", racetypes.StrictSchedule{})
	s1 := NewStackState("s1", racetypes.StrictSchedule{5, 7})
	s2 := NewStackState("s2", racetypes.StrictSchedule{5, 7, 9})
	stack := []*StackState{s0, s1, s2}

	entry := EATEntry{RaceID: 3, ScheduleSuffix: racetypes.StrictSchedule{7, 9, 11}}

	offset := EATMerge(stack, 0, entry)
	require.Equal(t, 2, offset)
	require.Len(t, s2.EAT, 1)
	assert.Equal(t, racetypes.StrictSchedule{11}, s2.EAT[0].ScheduleSuffix)
}

func TestEATMergeFullyConsumedReturnsMinusOne(t *testing.T) {
	s0 := NewStackState("s0", racetypes.StrictSchedule{})
	s1 := NewStackState("s1", racetypes.StrictSchedule{7})
	stack := []*StackState{s0, s1}

	entry := EATEntry{RaceID: 1, ScheduleSuffix: racetypes.StrictSchedule{7}}
	offset := EATMerge(stack, 0, entry)
	assert.Equal(t, -1, offset)
	assert.Empty(t, s1.EAT)
}

func TestEATMergeIdempotence(t *testing.T) {
	s0 := NewStackState("s0", racetypes.StrictSchedule{})
	stack := []*StackState{s0}

	entry := EATEntry{RaceID: 42, ScheduleSuffix: racetypes.StrictSchedule{100, 200}}

	first := EATMerge(stack, 0, entry)
	assert.Equal(t, 0, first)
	require.Len(t, s0.EAT, 1)

	// P3: an immediately repeated identical call finds the race id
	// already recorded and adds nothing.
	second := EATMerge(stack, 0, entry)
	assert.Equal(t, -1, second)
	assert.Len(t, s0.EAT, 1)
}

func TestStateHasUnexploredEATSkipsVisitedFirstEvents(t *testing.T) {
	s := NewStackState("s", racetypes.StrictSchedule{})
	s.Visited[1] = true
	s.EAT = []EATEntry{
		{RaceID: 1, ScheduleSuffix: racetypes.StrictSchedule{1, 2}},
		{RaceID: 2, ScheduleSuffix: racetypes.StrictSchedule{3, 4}},
	}

	e, ok := StateHasUnexploredEAT(s)
	require.True(t, ok)
	assert.Equal(t, 2, e.RaceID)
	assert.Len(t, s.EAT, 2, "peeking must not remove entries")
}

func TestStateHasUnexploredEATNoneLeft(t *testing.T) {
	s := NewStackState("s", racetypes.StrictSchedule{})
	s.Visited[1] = true
	s.EAT = []EATEntry{{RaceID: 1, ScheduleSuffix: racetypes.StrictSchedule{1}}}

	_, ok := StateHasUnexploredEAT(s)
	assert.False(t, ok)
}

func TestEATPropagateRebasesOntoExtendedStack(t *testing.T) {
	s0 := NewStackState("s0", racetypes.StrictSchedule{})
	s0.EAT = []EATEntry{{RaceID: 9, ScheduleSuffix: racetypes.StrictSchedule{7, 9}}}
	s1 := NewStackState("s1", racetypes.StrictSchedule{7})
	stack := []*StackState{s0, s1}

	EATPropagate(stack, 0)
	assert.Empty(t, s0.EAT)
	require.Len(t, s1.EAT, 1)
	assert.Equal(t, racetypes.StrictSchedule{9}, s1.EAT[0].ScheduleSuffix)
}

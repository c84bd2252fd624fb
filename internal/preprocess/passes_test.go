package preprocess

// ============================================================================
// Trace Preprocessor test file
// Purpose: verify the literal scenarios (S3, S4) plus the fixed-point,
// nop-write, and compaction invariants (P6, P7, P8) over hand-built and
// generated action logs.
// ============================================================================

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func singleActionLog(cmds ...Command) *ActionLog {
	return &ActionLog{Actions: []EventAction{{Commands: cmds}}}
}

func commandsOf(l *ActionLog, opID int) []Command {
	return l.EventAction(opID).Commands
}

func TestScenarioS3RemoveEmptyReadWrites(t *testing.T) {
	const L, V = 10, 20
	log := singleActionLog(
		Command{ReadMemory, L}, Command{MemoryValue, V},
		Command{WriteMemory, L}, Command{MemoryValue, V},
	)
	New(log, nil).RemoveEmptyReadWrites()
	assert.Empty(t, commandsOf(log, 0))
}

func TestScenarioS4RemoveNopWrites(t *testing.T) {
	const L, V = 10, 7
	log := singleActionLog(
		Command{WriteMemory, L}, Command{MemoryValue, V},
		Command{WriteMemory, L}, Command{MemoryValue, V},
	)
	New(log, nil).RemoveNopWrites()
	assert.Equal(t, []Command{
		{WriteMemory, L}, {MemoryValue, V},
	}, commandsOf(log, 0))
}

func TestRemoveNopWritesNeverDeletesReads(t *testing.T) {
	const L, V = 1, 2
	log := singleActionLog(
		Command{ReadMemory, L}, Command{MemoryValue, V},
		Command{ReadMemory, L}, Command{MemoryValue, V},
	)
	New(log, nil).RemoveNopWrites()
	// P7: no reads are ever deleted by this pass.
	assert.Len(t, commandsOf(log, 0), 4)
	for _, cmd := range commandsOf(log, 0) {
		assert.NotEqual(t, Deleted, cmd.Type)
	}
}

func TestRemoveNopWritesDeletesOnlyRepeatedValue(t *testing.T) {
	const L = 1
	log := singleActionLog(
		Command{WriteMemory, L}, Command{MemoryValue, 1},
		Command{WriteMemory, L}, Command{MemoryValue, 2}, // changes value, kept
		Command{WriteMemory, L}, Command{MemoryValue, 2}, // repeats, deleted
	)
	New(log, nil).RemoveNopWrites()
	assert.Equal(t, []Command{
		{WriteMemory, L}, {MemoryValue, 1},
		{WriteMemory, L}, {MemoryValue, 2},
	}, commandsOf(log, 0))
}

func TestIgnoreLocationEmptyNameIsNoop(t *testing.T) {
	log := singleActionLog(Command{ReadMemory, 1}, Command{MemoryValue, 2})
	before := append([]Command(nil), commandsOf(log, 0)...)
	New(log, VarNames{1: "Ofoo"}).IgnoreLocation("")
	assert.Equal(t, before, commandsOf(log, 0))
}

func TestIgnoreLocationRemovesNamedLocation(t *testing.T) {
	vars := VarNames{1: "Ofoo", 2: "Obar"}
	log := singleActionLog(
		Command{ReadMemory, 1}, Command{MemoryValue, 5},
		Command{WriteMemory, 2}, Command{MemoryValue, 6},
	)
	New(log, vars).IgnoreLocation("Ofoo")
	assert.Equal(t, []Command{
		{WriteMemory, 2}, {MemoryValue, 6},
	}, commandsOf(log, 0))
}

func TestRemoveEmptyOperationsLeavesAlreadyEmptyEventActionsAlone(t *testing.T) {
	log := &ActionLog{Actions: []EventAction{{}, {Commands: []Command{{ReadMemory, 1}}}}}
	New(log, nil).RemoveEmptyOperations()
	assert.Empty(t, commandsOf(log, 0))
	assert.Len(t, commandsOf(log, 1), 1)
}

func TestRemoveUpdatesInSameMethodDeletesRepeatInSameScope(t *testing.T) {
	const L = 1
	log := singleActionLog(
		Command{EnterScope, 100},
		Command{ReadMemory, L}, Command{MemoryValue, 1},
		Command{WriteMemory, L}, Command{MemoryValue, 2}, // completes initialization in scope 100
		Command{ReadMemory, L}, Command{MemoryValue, 2}, // recurs in same scope: deleted
		Command{ExitScope, 100},
	)
	New(log, nil).RemoveUpdatesInSameMethod()

	// scope markers plus the initializing read/write survive; the
	// trailing same-scope read is compacted away.
	assert.Equal(t, []Command{
		{EnterScope, 100},
		{ReadMemory, L}, {MemoryValue, 1},
		{WriteMemory, L}, {MemoryValue, 2},
		{ExitScope, 100},
	}, commandsOf(log, 0))
}

func TestPreprocessorFixedPoint(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("RemoveNopWrites is idempotent (P6)", prop.ForAll(
		func(values []int) bool {
			const L = 1
			var cmds []Command
			for _, v := range values {
				cmds = append(cmds, Command{WriteMemory, L}, Command{MemoryValue, v})
			}
			log := singleActionLog(cmds...)
			New(log, nil).RemoveNopWrites()
			once := append([]Command(nil), commandsOf(log, 0)...)

			New(log, nil).RemoveNopWrites()
			twice := commandsOf(log, 0)

			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}

func TestRemoveEmptyOperationsCompactionInvariant(t *testing.T) {
	const L, V = 1, 2
	log := singleActionLog(
		Command{ReadMemory, L}, Command{MemoryValue, V},
		Command{WriteMemory, L}, Command{MemoryValue, V},
		Command{ReadMemory, 99}, Command{MemoryValue, 1},
	)
	New(log, nil).RemoveEmptyReadWrites()

	// P8: no command has Type == Deleted after compaction, and the
	// surviving order (the untouched trailing pair) is preserved.
	for _, cmd := range commandsOf(log, 0) {
		assert.NotEqual(t, Deleted, cmd.Type)
	}
	assert.Equal(t, []Command{
		{ReadMemory, 99}, {MemoryValue, 1},
	}, commandsOf(log, 0))
}

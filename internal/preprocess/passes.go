// ============================================================================
// racewalk Trace Preprocessor — passes
// ============================================================================
//
// Package: internal/preprocess
// File: passes.go
// Purpose: the peephole passes run over an ActionLog before races are
// computed on it, each eliminating a pattern of commands judged
// observationally irrelevant to the race set.
//
// Common skeleton: every pass walks the command list of each event
// action, sets Type = Deleted on commands it wants gone, and finishes by
// calling RemoveEmptyOperations, which compacts every event action's
// command list by forward-scanning, keeping survivors in order and
// truncating the tail. Event actions with no commands at all are left
// alone — a pass never invents a new empty event action.
//
// ============================================================================

package preprocess

// Preprocessor applies peephole passes to a single ActionLog in place,
// consulting VarNames for the location-name classifications some passes
// need.
type Preprocessor struct {
	log  *ActionLog
	vars VarNames

	// StrictIncrementCheck gates RemovePureIncrementation's extra
	// value-comparison step (v2 == v1+1). The pass that inspired this
	// flag shipped with that check dead — an unconditional continue
	// skipped it — so by default the pass matches the shipped
	// behavior (every RAW window on an object/array/activation-object
	// location is removed). Set true to also require the values to
	// differ by exactly one.
	StrictIncrementCheck bool
}

// New returns a Preprocessor over log, consulting vars for location name
// classification.
func New(log *ActionLog, vars VarNames) *Preprocessor {
	return &Preprocessor{log: log, vars: vars}
}

// IgnoreLocation marks every READ/WRITE of the memory location named
// location (plus its paired MEMORY_VALUE) for deletion. A no-op on an
// empty name.
func (p *Preprocessor) IgnoreLocation(location string) {
	if location == "" {
		return
	}
	p.forEachAccessPair(func(cmd0, cmd1 *Command) {
		if p.vars.Name(cmd0.Location) == location {
			cmd0.Type = Deleted
			cmd1.Type = Deleted
		}
	})
	p.RemoveEmptyOperations()
}

// RemoveGlobalLocals deletes every access to an object/array memory
// location ("O"/"A" name prefix) whose every touch, across the whole
// log, begins with a write to it within the event action that performs
// the read — i.e. no event action ever observes a value written by a
// different event action. lastOwner records, per location, the event
// action id that last safely accessed it; -1 marks the location as
// disqualified for good.
func (p *Preprocessor) RemoveGlobalLocals() {
	const noOwner = -2
	lastOwner := map[int]int{}

	for opID := range p.log.Actions {
		op := p.log.MutableEventAction(opID)
		for i := 1; i < len(op.Commands); i++ {
			cmd0 := &op.Commands[i-1]
			if cmd0.Type != ReadMemory && cmd0.Type != WriteMemory {
				continue
			}
			cmd1 := &op.Commands[i]
			if cmd1.Type != MemoryValue {
				continue
			}

			loc := cmd0.Location
			name := p.vars.Name(loc)
			if len(name) == 0 || (name[0] != 'O' && name[0] != 'A') {
				continue
			}

			owner, seen := lastOwner[loc]
			if !seen {
				owner = noOwner
			}
			if owner == -1 {
				continue // already disqualified
			}

			if cmd0.Type == ReadMemory && owner != opID {
				lastOwner[loc] = -1 // a read of an uninitialized or foreign value: disqualify
			} else {
				lastOwner[loc] = opID
			}
		}
	}

	p.forEachAccessPair(func(cmd0, cmd1 *Command) {
		if owner, ok := lastOwner[cmd0.Location]; ok && owner != -1 {
			cmd0.Type = Deleted
			cmd1.Type = Deleted
		}
	})
	p.RemoveEmptyOperations()
}

// RemovePureIncrementation deletes READ(loc),VALUE,WRITE(loc),VALUE
// windows over object/array/activation-object locations ("O", "A", or
// "J" name prefix), treating every such window as a commuting
// incrementor. A location with any read or write outside such a window
// is left untouched. See StrictIncrementCheck for the optional stricter
// value-based gate.
func (p *Preprocessor) RemovePureIncrementation() {
	safe := map[int]bool{}

	for opID := range p.log.Actions {
		op := p.log.MutableEventAction(opID)
		for i := 1; i < len(op.Commands); i++ {
			cmd0 := &op.Commands[i-1]
			if cmd0.Type != ReadMemory && cmd0.Type != WriteMemory {
				continue
			}
			cmd1 := &op.Commands[i]
			if cmd1.Type != MemoryValue {
				continue
			}

			loc := cmd0.Location
			if cmd0.Type == WriteMemory {
				// A write counts only as the tail of a READ(loc),VALUE
				// window; any other write disqualifies its location.
				if i < 3 || op.Commands[i-3].Type != ReadMemory || op.Commands[i-3].Location != loc || op.Commands[i-2].Type != MemoryValue {
					safe[loc] = false
				}
				continue
			}
			if i+2 >= len(op.Commands) {
				safe[loc] = false
				continue
			}
			cmd2 := &op.Commands[i+1]
			cmd3 := &op.Commands[i+2]
			if cmd2.Type != WriteMemory || cmd3.Type != MemoryValue || cmd2.Location != loc {
				safe[loc] = false
				continue
			}

			name := p.vars.Name(loc)
			if len(name) == 0 || (name[0] != 'O' && name[0] != 'A' && name[0] != 'J') {
				continue
			}

			if _, seen := safe[loc]; !seen {
				safe[loc] = true
			}

			if p.StrictIncrementCheck && safe[loc] {
				safe[loc] = cmd3.Location == cmd1.Location+1
			}
		}
	}

	p.forEachAccessPair(func(cmd0, cmd1 *Command) {
		if safe[cmd0.Location] {
			cmd0.Type = Deleted
			cmd1.Type = Deleted
		}
	})
	p.RemoveEmptyOperations()
}

// RemoveEmptyReadWrites deletes any 4-command window
// READ(loc),VALUE(v),WRITE(loc),VALUE(v) — an idempotent self-write of a
// just-read value, e.g. `x = x || expr` when expr is falsy.
func (p *Preprocessor) RemoveEmptyReadWrites() {
	for opID := range p.log.Actions {
		op := p.log.MutableEventAction(opID)
		for i := 3; i < len(op.Commands); i++ {
			cmd0 := &op.Commands[i-3]
			if cmd0.Type != ReadMemory {
				continue
			}
			cmd1 := &op.Commands[i-2]
			if cmd1.Type != MemoryValue {
				continue
			}
			cmd2 := &op.Commands[i-1]
			if cmd2.Type != WriteMemory || cmd2.Location != cmd0.Location {
				continue
			}
			cmd3 := &op.Commands[i]
			if cmd3.Type != MemoryValue || cmd3.Location != cmd1.Location {
				continue
			}
			cmd0.Type, cmd1.Type, cmd2.Type, cmd3.Type = Deleted, Deleted, Deleted, Deleted
		}
	}
	p.RemoveEmptyOperations()
}

// RemoveNopWrites deletes a write iff it writes the value already
// present at that location (the last value seen written or read there,
// across the whole log scanned so far in event-action order).
func (p *Preprocessor) RemoveNopWrites() {
	lastValue := map[int]int{}

	for opID := range p.log.Actions {
		op := p.log.MutableEventAction(opID)
		for i := 1; i < len(op.Commands); i++ {
			cmd0 := &op.Commands[i-1]
			if cmd0.Type != ReadMemory && cmd0.Type != WriteMemory {
				continue
			}
			cmd1 := &op.Commands[i]
			if cmd1.Type != MemoryValue {
				continue
			}

			loc := cmd0.Location
			value := cmd1.Location

			if cmd0.Type == WriteMemory {
				if last, ok := lastValue[loc]; ok && last == value {
					cmd0.Type = Deleted
					cmd1.Type = Deleted
				}
			}
			lastValue[loc] = value
		}
	}
	p.RemoveEmptyOperations()
}

// RemoveUpdatesInSameMethod deletes reads/writes of a location once that
// location's "initialization" scope (the innermost ENTER_SCOPE/EXIT_SCOPE
// frame in which a read-then-write first completed for it) is known and
// the current access recurs in that same scope. A location initialized
// in more than one scope is marked ambiguous (-1) and never matched
// again.
func (p *Preprocessor) RemoveUpdatesInSameMethod() {
	const unset = 0
	const ambiguous = -1
	initScope := map[int]int{}

	for opID := range p.log.Actions {
		op := p.log.MutableEventAction(opID)
		var scope []int
		memState := map[int]int{} // 0=unset, 1=read seen, 2=write-after-read seen

		for i := range op.Commands {
			cmd := &op.Commands[i]
			switch cmd.Type {
			case EnterScope:
				scope = append(scope, cmd.Location)
				continue
			case ExitScope:
				if len(scope) > 0 {
					scope = scope[:len(scope)-1]
				}
				continue
			}

			if cmd.Type != ReadMemory && cmd.Type != WriteMemory {
				continue
			}
			if i+1 >= len(op.Commands) || op.Commands[i+1].Type != MemoryValue {
				continue
			}
			valueCmd := &op.Commands[i+1]
			loc := cmd.Location

			if s, ok := initScope[loc]; ok && s != unset && len(scope) > 0 && s == scope[len(scope)-1] {
				cmd.Type = Deleted
				valueCmd.Type = Deleted
				continue
			}

			if cmd.Type == ReadMemory {
				if memState[loc] != unset {
					memState[loc] = ambiguous
					continue
				}
				memState[loc] = 1
			}
			if cmd.Type == WriteMemory {
				if memState[loc] != 1 {
					memState[loc] = ambiguous
					continue
				}
				memState[loc] = 2
				if initScope[loc] == unset && len(scope) > 0 {
					initScope[loc] = scope[len(scope)-1]
				} else {
					initScope[loc] = ambiguous
				}
			}
		}
	}
	p.RemoveEmptyOperations()
}

// RemoveEmptyOperations compacts every event action's command list: a
// forward scan keeps every non-Deleted command in order and truncates
// the remainder. Event actions that start out empty are left untouched.
func (p *Preprocessor) RemoveEmptyOperations() {
	for opID := range p.log.Actions {
		op := p.log.MutableEventAction(opID)
		if len(op.Commands) == 0 {
			continue
		}
		newLen := 0
		for _, cmd := range op.Commands {
			if cmd.Type == Deleted {
				continue
			}
			op.Commands[newLen] = cmd
			newLen++
		}
		op.Commands = op.Commands[:newLen]
	}
}

// forEachAccessPair calls fn on every adjacent (READ|WRITE, MEMORY_VALUE)
// command pair across all event actions, skipping event actions with no
// commands. Shared by the passes that scan first to classify locations
// and then make a second pass to delete matched accesses.
func (p *Preprocessor) forEachAccessPair(fn func(cmd0, cmd1 *Command)) {
	for opID := range p.log.Actions {
		op := p.log.MutableEventAction(opID)
		for i := 1; i < len(op.Commands); i++ {
			cmd0 := &op.Commands[i-1]
			if cmd0.Type != ReadMemory && cmd0.Type != WriteMemory {
				continue
			}
			cmd1 := &op.Commands[i]
			if cmd1.Type != MemoryValue {
				continue
			}
			fn(cmd0, cmd1)
		}
	}
}

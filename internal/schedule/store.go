// ============================================================================
// racewalk Schedule Store
// ============================================================================
//
// Package: internal/schedule
// File: store.go
// Purpose: Parse and serialize the schedule file format the replay runtime
// consumes and produces.
//
// Line Format:
//   <event-id>;<opaque payload>\n   # a real event, payload preserved verbatim
//   <change>\n                      # sentinel for EventID -2
//   <relax>\n                       # sentinel for EventID -1
//
//   Any other line is skipped on read — the replay runtime is free to emit
//   blank lines, comments, or lines from a future format revision and the
//   store must tolerate them rather than fail the whole load.
//
// Ownership:
//   A Store is immutable after Load: its action table is read-only, and
//   EAT entries across many explorer stack states commonly share one Store
//   pointer for the run that produced them (see internal/explorer).
//
// ============================================================================

package schedule

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ChuLiYu/racewalk/pkg/racetypes"
)

const (
	changeLine = "<change>"
	relaxLine  = "<relax>"
)

// Store holds a schedule loaded from disk: the strict event-id order it
// was read in, and a table mapping every event id seen to its opaque
// action payload. Duplicate event ids overwrite the payload — last write
// wins, matching the replay runtime's own "most recent recorded action for
// this id" semantics.
type Store struct {
	strict  racetypes.StrictSchedule
	payload []string // indexed by EventID; empty string means "no payload"
}

// New returns an empty Store, useful for building a schedule
// programmatically (e.g. the seed schedule before any run has executed).
func New() *Store {
	return &Store{}
}

// Load parses path into a Store. Unparseable lines are silently skipped,
// per the documented tolerance of the schedule file format.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schedule: open %s: %w", path, err)
	}
	defer f.Close()

	s := &Store{}
	var maxID racetypes.EventID = -1
	type pending struct {
		id      racetypes.EventID
		payload string
	}
	var lines []pending

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == changeLine {
			continue // markers never appear in the strict schedule
		}
		if line == relaxLine {
			continue
		}

		idPart, payload, ok := strings.Cut(line, ";")
		if !ok {
			continue // unparseable line, skip
		}
		n, err := strconv.Atoi(idPart)
		if err != nil {
			continue // unparseable line, skip
		}
		id := racetypes.EventID(n)
		if id < 0 {
			continue // negative ids are reserved for sentinels, not real events
		}

		lines = append(lines, pending{id: id, payload: payload})
		s.strict = append(s.strict, id)
		if id > maxID {
			maxID = id
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("schedule: read %s: %w", path, err)
	}

	s.payload = make([]string, maxID+1)
	for _, p := range lines {
		s.payload[p.id] = p.payload // last wins
	}

	return s, nil
}

// Strict returns the strict event-id sequence as read from the input
// file, in source order.
func (s *Store) Strict() racetypes.StrictSchedule {
	out := make(racetypes.StrictSchedule, len(s.strict))
	copy(out, s.strict)
	return out
}

// Payload returns the opaque action payload recorded for id, and whether
// one is present. An event id beyond the table (never seen at Load time)
// reports false.
func (s *Store) Payload(id racetypes.EventID) (string, bool) {
	if id < 0 || int(id) >= len(s.payload) {
		return "", false
	}
	return s.payload[id], s.payload[id] != ""
}

// SetPayload records (or overwrites) the payload for id, growing the
// table as needed. Used to fill a Store built with New.
func (s *Store) SetPayload(id racetypes.EventID, payload string) {
	if id < 0 {
		return
	}
	if int(id) >= len(s.payload) {
		grown := make([]string, id+1)
		copy(grown, s.payload)
		s.payload = grown
	}
	s.payload[id] = payload
}

// Save writes executable as a schedule file at path. Event ids with an
// empty payload are silently skipped — an id present in a schedule but
// with no recorded payload is a known hole, not an error.
func (s *Store) Save(path string, executable racetypes.ExecutableSchedule) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("schedule: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, id := range executable {
		switch id {
		case racetypes.ChangeMarker:
			fmt.Fprintln(w, changeLine)
		case racetypes.RelaxMarker:
			fmt.Fprintln(w, relaxLine)
		default:
			payload, ok := s.Payload(id)
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%d;%s\n", int(id), payload)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("schedule: write %s: %w", path, err)
	}
	return nil
}

// RemoveSpecialMarkers yields the strict subsequence of executable,
// dropping ChangeMarker and RelaxMarker.
func RemoveSpecialMarkers(executable racetypes.ExecutableSchedule) racetypes.StrictSchedule {
	return executable.Strict()
}

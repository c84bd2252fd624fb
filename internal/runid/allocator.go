// ============================================================================
// racewalk Run-ID Allocator
// ============================================================================
//
// Package: internal/runid
// File: allocator.go
// Purpose: Generates the run-name labels the explorer hands to the replay
// invoker and stamps into stack states and EAT entries.
//
// ============================================================================

package runid

import (
	"strconv"

	"github.com/google/uuid"
)

// Allocator hands out unique, monotonically-numbered run names of the
// form "run-<seq>-<short-uuid>" — the sequence number keeps run names
// human-orderable in a directory listing; the uuid suffix guards against
// collisions across process restarts sharing an out-dir.
type Allocator struct {
	seq int
}

// New returns a fresh Allocator starting its sequence at 0.
func New() *Allocator {
	return &Allocator{}
}

// Next returns the next run name and advances the sequence.
func (a *Allocator) Next() string {
	a.seq++
	return "run-" + strconv.Itoa(a.seq) + "-" + uuid.NewString()[:8]
}

// ============================================================================
// racewalk Trace File Loader
// ============================================================================
//
// Package: internal/tracefile
// File: loader.go
// Purpose: Bridges a completed run directory to internal/explorer.Trace —
// the seam to the external race detector (VarsInfo/EventGraphInterface in
// the spec's vocabulary). Detecting races is out of scope for racewalk;
// this loader only reads what the detector is expected to have already
// written alongside the replay runtime's own artifacts.
//
// File Contract (per run directory):
//   schedule.data  - the executed schedule, in the format internal/schedule
//                     already parses (required)
//   races.json     - a JSON array of detected races (optional; a run with
//                     no races omits the file entirely)
//   hb.json        - a JSON array of ordered-pair happens-before edges
//                     (optional)
//
// Grounded on the teacher's own use of encoding/json for the enqueue
// command's job file format (internal/cli.go's enqueueJobs) — the same
// "plain JSON sidecar, tolerant of absence" idiom applied to run output.
//
// ============================================================================

package tracefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ChuLiYu/racewalk/internal/explorer"
	"github.com/ChuLiYu/racewalk/internal/schedule"
	"github.com/ChuLiYu/racewalk/pkg/racetypes"
)

// raceRecord is the JSON shape of one races.json entry. CoveredBy must be
// written explicitly as -1 for an uncovered race — there is no implicit
// "omitted means uncovered" convention, since 0 is itself a valid event id.
type raceRecord struct {
	Event1           int    `json:"event1"`
	Event2           int    `json:"event2"`
	VarID            string `json:"var_id"`
	MultiParentRaces []int  `json:"multi_parent_races"`
	CoveredBy        int    `json:"covered_by"`
}

type hbEdge struct {
	A int `json:"a"`
	B int `json:"b"`
}

// pairGraph is a fixed, precomputed set of ordered pairs loaded from
// hb.json — no online recomputation, since the detector already resolved
// ordering for this run.
type pairGraph map[[2]racetypes.EventID]bool

func (g pairGraph) AreOrdered(a, b racetypes.EventID) bool {
	return g[[2]racetypes.EventID{a, b}] || g[[2]racetypes.EventID{b, a}]
}

// Loader implements explorer.TraceLoader by reading the file contract
// above from a run directory.
type Loader struct{}

// New returns a Loader.
func New() *Loader {
	return &Loader{}
}

// Load reads runDir's schedule.data, races.json, and hb.json into an
// explorer.Trace. Missing races.json/hb.json are not errors — they mean
// the detector found nothing to report.
func (l *Loader) Load(runDir string) (explorer.Trace, error) {
	store, err := schedule.Load(filepath.Join(runDir, "schedule.data"))
	if err != nil {
		return explorer.Trace{}, fmt.Errorf("tracefile: load schedule: %w", err)
	}

	races, err := loadRaces(filepath.Join(runDir, "races.json"))
	if err != nil {
		return explorer.Trace{}, fmt.Errorf("tracefile: load races: %w", err)
	}

	hb, err := loadHB(filepath.Join(runDir, "hb.json"))
	if err != nil {
		return explorer.Trace{}, fmt.Errorf("tracefile: load hb: %w", err)
	}

	return explorer.Trace{
		Schedule: store.Strict(),
		Races:    races,
		HB:       hb,
	}, nil
}

func loadRaces(path string) ([]racetypes.RaceInfo, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []raceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	races := make([]racetypes.RaceInfo, 0, len(records))
	for _, r := range records {
		multi := make([]racetypes.EventID, len(r.MultiParentRaces))
		for i, id := range r.MultiParentRaces {
			multi[i] = racetypes.EventID(id)
		}
		races = append(races, racetypes.RaceInfo{
			Event1:           racetypes.EventID(r.Event1),
			Event2:           racetypes.EventID(r.Event2),
			VarID:            r.VarID,
			MultiParentRaces: multi,
			CoveredBy:        racetypes.EventID(r.CoveredBy),
		})
	}
	return races, nil
}

func loadHB(path string) (racetypes.EventGraph, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return pairGraph{}, nil
	}
	if err != nil {
		return nil, err
	}

	var edges []hbEdge
	if err := json.Unmarshal(data, &edges); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	g := make(pairGraph, len(edges))
	for _, e := range edges {
		g[[2]racetypes.EventID{racetypes.EventID(e.A), racetypes.EventID(e.B)}] = true
	}
	return g, nil
}

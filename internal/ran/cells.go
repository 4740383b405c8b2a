package ran

import (
	"sort"
	"sync"
)

// CellClass is the operator designation of a base station. Classifications
// are fixed for the duration of a run; there is no runtime fault inference.
type CellClass string

const (
	// ClassLegitimate is a normally operating cell.
	ClassLegitimate CellClass = "LEGITIMATE"
	// ClassFaulty is a degraded cell (reduced power, added latency).
	ClassFaulty CellClass = "FAULTY"
	// ClassRogue is an attacker-controlled cell imitating a real one.
	ClassRogue CellClass = "ROGUE"
	// ClassUnknown is reported for any cell id the registry has not seen.
	ClassUnknown CellClass = "UNKNOWN"
)

// ParseCellClass maps a label to a CellClass, tolerating the legacy "FAKE"
// spelling found in older trace files. Anything unrecognised is UNKNOWN.
func ParseCellClass(s string) CellClass {
	switch s {
	case "LEGITIMATE":
		return ClassLegitimate
	case "FAULTY":
		return ClassFaulty
	case "ROGUE", "FAKE":
		return ClassRogue
	default:
		return ClassUnknown
	}
}

// CellRecord describes one base station registered at topology setup.
type CellRecord struct {
	CellID     uint16    `json:"cell_id"`
	NodeID     uint32    `json:"node_id"`
	Class      CellClass `json:"class"`
	Position   Vector    `json:"position"`
	TxPowerDbm float64   `json:"tx_power_dbm"`
}

// Registry holds the per-run cell classification table. Lookups are total:
// unregistered cell ids classify as UNKNOWN and never fail. The mutex exists
// for the monitor webserver, which reads snapshots from handler goroutines;
// event dispatch itself is single-threaded.
type Registry struct {
	mu    sync.RWMutex
	cells map[uint16]CellRecord
}

// NewRegistry creates an empty cell registry.
func NewRegistry() *Registry {
	return &Registry{cells: make(map[uint16]CellRecord)}
}

// Register inserts or overwrites the record for rec.CellID.
func (r *Registry) Register(rec CellRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cells[rec.CellID] = rec
}

// Classify returns the class for cellID, or ClassUnknown if unregistered.
func (r *Registry) Classify(cellID uint16) CellClass {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.cells[cellID]; ok {
		return rec.Class
	}
	return ClassUnknown
}

// Lookup returns the full record for cellID.
func (r *Registry) Lookup(cellID uint16) (CellRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.cells[cellID]
	return rec, ok
}

// Cells returns a snapshot of all registered cells ordered by cell id.
func (r *Registry) Cells() []CellRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CellRecord, 0, len(r.cells))
	for _, rec := range r.cells {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CellID < out[j].CellID })
	return out
}

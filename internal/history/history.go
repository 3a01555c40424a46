// Package history keeps the most recent scan results in memory for the
// session views and the XLSX export. It is a bounded ring: once full, every
// append evicts the oldest entry.
package history

import (
	"sync"

	"github.com/google/uuid"

	"github.com/fleetify/invoice-scan/constants"
	"github.com/fleetify/invoice-scan/internal/entity"
)

// DefaultCapacity bounds the ring when no explicit capacity is configured.
const DefaultCapacity = 50

// Ring is a fixed-capacity, concurrency-safe scan history. Entries are
// ordered newest first on read.
type Ring struct {
	mu       sync.RWMutex
	capacity int
	entries  []entity.ScanResult
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{capacity: capacity}
}

// Append records a finished scan, evicting the oldest entry when the ring
// is full.
func (r *Ring) Append(scan entity.ScanResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, scan)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (r *Ring) Recent(limit int) []entity.ScanResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]entity.ScanResult, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.entries[i])
	}
	return out
}

// Len reports how many scans the ring currently holds.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Resolve applies a confirmation or rejection to a held scan, keeping the
// in-memory view consistent with the persisted one. Unknown IDs are a no-op.
func (r *Ring) Resolve(scanID uuid.UUID, status constants.ScanStatus, customerID *uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID != scanID {
			continue
		}
		if !constants.CanTransition(r.entries[i].Status, status) {
			return false
		}
		r.entries[i].Status = status
		r.entries[i].ConfirmedCustomerID = customerID
		return true
	}
	return false
}

// Summary aggregates the held scans per decision tier, backing the
// analytics endpoint.
type Summary struct {
	Total        int `json:"total"`
	AutoAssign   int `json:"auto_assign"`
	NeedsReview  int `json:"needs_review"`
	ManualReview int `json:"manual_review"`
	Confirmed    int `json:"confirmed"`
	Rejected     int `json:"rejected"`
	Failed       int `json:"failed"`
}

func (r *Ring) Summarize() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s Summary
	for _, e := range r.entries {
		s.Total++
		switch e.Tier {
		case constants.TierAutoAssign:
			s.AutoAssign++
		case constants.TierNeedsReview:
			s.NeedsReview++
		case constants.TierManualReview:
			s.ManualReview++
		}
		switch e.Status {
		case constants.ScanStatusConfirmed:
			s.Confirmed++
		case constants.ScanStatusRejected:
			s.Rejected++
		case constants.ScanStatusFailed:
			s.Failed++
		}
	}
	return s
}

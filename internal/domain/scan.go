package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceStats holds per-source counters for one scan.
//
// Approved counts every persisted item, so flagged-for-review items are
// included; Flagged breaks them out (Flagged <= Approved). The invariant
// Processed == Approved + Rejected + Duplicates holds per source and for
// the totals, and Found >= Processed.
type SourceStats struct {
	SourceID   string
	Found      int
	Processed  int
	Approved   int
	Flagged    int
	Rejected   int
	Duplicates int
	Published  int
	Errors     []string
}

// ScanResult aggregates the outcome of one orchestration run.
type ScanResult struct {
	ScanID    uuid.UUID
	StartedAt time.Time
	Duration  time.Duration

	Sources []SourceStats

	TotalFound      int
	TotalProcessed  int
	TotalApproved   int
	TotalFlagged    int
	TotalRejected   int
	TotalDuplicates int
	TotalPublished  int

	// Success means no source-level errors occurred; the scan completes
	// and returns a result either way.
	Success bool
}

// AllErrors flattens per-source errors, prefixed with the source ID.
func (r *ScanResult) AllErrors() []string {
	var out []string
	for _, s := range r.Sources {
		for _, e := range s.Errors {
			out = append(out, s.SourceID+": "+e)
		}
	}
	return out
}

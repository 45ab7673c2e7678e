package domain

import "time"

// CandidateItem is a single piece of content surfaced by a source adapter
// during one scan. It is immutable; acceptance produces a ContentRecord.
type CandidateItem struct {
	SourceID        string // identifies the source adapter (e.g. "streetfoodfeed")
	ExternalID      string // source-native identifier, opaque, adapter-side only
	Text            string // title + body + captions + tags, the only field the filter inspects
	MediaURL        string
	CanonicalURL    string // global locator, part of the dedup identity
	EngagementScore int    // upvotes/views, scoring signal only
	PublishedAt     time.Time
}

// ContentAnalysis is the filter verdict for one CandidateItem.
type ContentAnalysis struct {
	IsSpam          bool
	IsInappropriate bool
	IsUnrelated     bool
	IsValidTopic    bool
	Confidence      float64  // always in [0,1]
	FlaggedPatterns []string // rule IDs that matched, audit only
}

// Action is the terminal decision for a candidate.
type Action string

const (
	ActionApproved  Action = "approved"
	ActionRejected  Action = "rejected"
	ActionDuplicate Action = "duplicate"
	ActionFlagged   Action = "flagged" // persisted, awaiting manual review
)

// ContentRecord is the durable artifact created for approved or flagged
// candidates. ContentHash is the store-enforced unique key.
type ContentRecord struct {
	ID              int64
	ContentHash     string
	CanonicalURL    string
	SourceID        string
	Text            string
	MediaURL        string
	Action          Action
	Confidence      float64
	FlaggedPatterns []string
	DiscoveredAt    time.Time
}

// FetchResult is what a source adapter returns for one scan invocation.
// Partial failures are reported through Errors, never by panicking.
type FetchResult struct {
	Items  []CandidateItem
	Errors []string
}

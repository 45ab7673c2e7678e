package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"content_scanner/internal/domain"
)

// SourceAdapter is the uniform contract every platform integration
// implements. Fetch reports expected failures (network, auth, rate limit,
// parse) through FetchResult.Errors and never returns an error value;
// unexpected panics are recovered by the orchestrator as a last resort.
type SourceAdapter interface {
	ID() string
	Name() string
	Fetch(ctx context.Context, budget int) domain.FetchResult
}

// ContentStore is the durable store for accepted records. It must be safe
// under concurrent callers; UpsertIfAbsent is the final authority for
// deduplication races.
type ContentStore interface {
	// UpsertIfAbsent inserts the record keyed by its ContentHash, reporting
	// whether a row was actually inserted.
	UpsertIfAbsent(ctx context.Context, record *domain.ContentRecord) (bool, error)
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	ExistsByURL(ctx context.Context, canonicalURL string) (bool, error)
}

// ScanReportStore persists aggregated scan results for audit.
type ScanReportStore interface {
	Save(ctx context.Context, result *domain.ScanResult) error
}

// Classifier produces the filter verdict for one candidate.
type Classifier interface {
	Classify(item domain.CandidateItem) domain.ContentAnalysis
}

// Publisher emits accepted records to the downstream publishing queue.
type Publisher interface {
	Publish(ctx context.Context, record *domain.ContentRecord) error
	Close() error
}

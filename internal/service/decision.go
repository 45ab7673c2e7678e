package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"content_scanner/internal/domain"
)

// DecisionConfig holds the two auto-moderation thresholds. Approval must be
// strictly greater than rejection; NewDecisionEngine enforces this.
type DecisionConfig struct {
	AutoApprovalThreshold  float64
	AutoRejectionThreshold float64
}

// Decision is the terminal outcome for one candidate. Record is nil for
// rejected and duplicate outcomes; Published reports whether the record
// reached the downstream queue.
type Decision struct {
	Action    domain.Action
	Analysis  domain.ContentAnalysis
	Record    *domain.ContentRecord
	Published bool
}

// DecisionEngine turns a classified candidate into exactly one of the four
// terminal actions, persisting a record for approved and flagged items.
type DecisionEngine struct {
	classifier Classifier
	store      ContentStore
	publisher  Publisher // optional
	logger     *slog.Logger
	cfg        DecisionConfig
}

// NewDecisionEngine validates the thresholds and wires the collaborators.
// Publisher may be nil when no downstream queue is configured.
func NewDecisionEngine(
	classifier Classifier,
	store ContentStore,
	publisher Publisher,
	logger *slog.Logger,
	cfg DecisionConfig,
) (*DecisionEngine, error) {
	if cfg.AutoApprovalThreshold <= cfg.AutoRejectionThreshold {
		return nil, fmt.Errorf(
			"decision: auto-approval threshold (%.2f) must be greater than auto-rejection threshold (%.2f)",
			cfg.AutoApprovalThreshold, cfg.AutoRejectionThreshold,
		)
	}
	return &DecisionEngine{
		classifier: classifier,
		store:      store,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}, nil
}

// Decide resolves one candidate whose hash was computed by the caller's
// merge pass. Exactly one store write happens for approved and flagged
// items, zero for rejected and duplicate ones. A returned error means the
// store was unavailable and the item produced nothing durable; the caller
// counts it as a per-item error and continues the scan.
func (e *DecisionEngine) Decide(ctx context.Context, item domain.CandidateItem, hash string) (Decision, error) {
	exists, err := e.store.ExistsByHash(ctx, hash)
	if err != nil {
		return Decision{}, fmt.Errorf("check hash: %w", err)
	}
	if !exists && item.CanonicalURL != "" {
		exists, err = e.store.ExistsByURL(ctx, item.CanonicalURL)
		if err != nil {
			return Decision{}, fmt.Errorf("check url: %w", err)
		}
	}
	if exists {
		return Decision{Action: domain.ActionDuplicate}, nil
	}

	analysis := e.classifier.Classify(item)
	if !analysis.IsValidTopic {
		e.logger.Debug("rejected off-topic candidate",
			"source", item.SourceID,
			"url", item.CanonicalURL,
			"patterns", analysis.FlaggedPatterns,
		)
		return Decision{Action: domain.ActionRejected, Analysis: analysis}, nil
	}

	var action domain.Action
	switch {
	case analysis.Confidence >= e.cfg.AutoApprovalThreshold:
		action = domain.ActionApproved
	case analysis.Confidence <= e.cfg.AutoRejectionThreshold:
		return Decision{Action: domain.ActionRejected, Analysis: analysis}, nil
	default:
		action = domain.ActionFlagged
	}

	record := &domain.ContentRecord{
		ContentHash:     hash,
		CanonicalURL:    item.CanonicalURL,
		SourceID:        item.SourceID,
		Text:            item.Text,
		MediaURL:        item.MediaURL,
		Action:          action,
		Confidence:      analysis.Confidence,
		FlaggedPatterns: analysis.FlaggedPatterns,
		DiscoveredAt:    time.Now().UTC(),
	}

	inserted, err := e.store.UpsertIfAbsent(ctx, record)
	if err != nil {
		return Decision{}, fmt.Errorf("persist record: %w", err)
	}
	if !inserted {
		// Another worker or a concurrent scan won the insert race; the
		// store's conditional upsert is the final authority.
		return Decision{Action: domain.ActionDuplicate, Analysis: analysis}, nil
	}

	d := Decision{Action: action, Analysis: analysis, Record: record}
	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, record); err != nil {
			e.logger.Warn("failed to publish record",
				"content_hash", record.ContentHash,
				"error", err,
			)
		} else {
			d.Published = true
		}
	}

	return d, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"content_scanner/internal/config"
	"content_scanner/internal/dedup"
	"content_scanner/internal/domain"
)

// Orchestrator runs one scan across the configured sources: bounded
// concurrent fetch fan-out, single-threaded cross-source dedup, then a
// bounded decision pool. The scan-scoped seen set lives entirely inside
// RunScan, so concurrent scans only meet at the durable store, whose
// conditional upsert keeps them from double-inserting.
type Orchestrator struct {
	sources []SourceAdapter
	decider *DecisionEngine
	hasher  *dedup.Hasher
	reports ScanReportStore // optional
	logger  *slog.Logger
	cfg     config.ScanConfig
}

func NewOrchestrator(
	sources []SourceAdapter,
	decider *DecisionEngine,
	hasher *dedup.Hasher,
	reports ScanReportStore,
	logger *slog.Logger,
	cfg config.ScanConfig,
) *Orchestrator {
	return &Orchestrator{
		sources: sources,
		decider: decider,
		hasher:  hasher,
		reports: reports,
		logger:  logger,
		cfg:     cfg,
	}
}

// pending is a merged candidate that survived cross-source dedup.
type pending struct {
	src  int // index into o.sources / stats
	item domain.CandidateItem
	hash string
}

type outcome struct {
	decision Decision
	err      error
}

// RunScan executes one scan over the given total item budget. It always
// returns a result: source failures, timeouts, and per-item store errors
// are accumulated into it, never raised to the caller.
func (o *Orchestrator) RunScan(ctx context.Context, totalBudget int) *domain.ScanResult {
	start := time.Now()
	result := &domain.ScanResult{
		ScanID:    uuid.New(),
		StartedAt: start,
		Sources:   make([]domain.SourceStats, len(o.sources)),
	}
	for i, src := range o.sources {
		result.Sources[i].SourceID = src.ID()
	}

	if o.cfg.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.OverallTimeout)
		defer cancel()
	}

	o.logger.Info("starting scan",
		"scan_id", result.ScanID,
		"sources", len(o.sources),
		"budget", totalBudget,
	)

	fetched := o.fetchAll(ctx, splitBudget(totalBudget, len(o.sources)))

	// Single-threaded merge and cross-source dedup. This is the only place
	// the seen set is touched, which keeps the later decision pool free of
	// shared mutable state.
	seen := dedup.NewSeenSet()
	var survivors []pending
	for i, fr := range fetched {
		st := &result.Sources[i]
		st.Found = len(fr.Items)
		st.Errors = append(st.Errors, fr.Errors...)
		for _, item := range fr.Items {
			hash := o.hasher.Hash(item.Text)
			if !seen.Add(hash, item.CanonicalURL) {
				st.Processed++
				st.Duplicates++
				continue
			}
			survivors = append(survivors, pending{src: i, item: item, hash: hash})
		}
	}

	outcomes := o.decideAll(ctx, survivors)

	for i, p := range survivors {
		st := &result.Sources[p.src]
		out := outcomes[i]
		if out.err != nil {
			st.Errors = append(st.Errors,
				fmt.Sprintf("process %q: %v", p.item.CanonicalURL, out.err))
			continue
		}
		st.Processed++
		switch out.decision.Action {
		case domain.ActionApproved:
			st.Approved++
		case domain.ActionFlagged:
			st.Approved++
			st.Flagged++
		case domain.ActionRejected:
			st.Rejected++
		case domain.ActionDuplicate:
			st.Duplicates++
		}
		if out.decision.Published {
			st.Published++
		}
	}

	result.Success = true
	for _, st := range result.Sources {
		result.TotalFound += st.Found
		result.TotalProcessed += st.Processed
		result.TotalApproved += st.Approved
		result.TotalFlagged += st.Flagged
		result.TotalRejected += st.Rejected
		result.TotalDuplicates += st.Duplicates
		result.TotalPublished += st.Published
		if len(st.Errors) > 0 {
			result.Success = false
		}
	}
	result.Duration = time.Since(start)

	if o.reports != nil {
		if err := o.reports.Save(context.WithoutCancel(ctx), result); err != nil {
			o.logger.Error("failed to persist scan report",
				"scan_id", result.ScanID,
				"error", err,
			)
		}
	}

	o.logger.Info("scan completed",
		"scan_id", result.ScanID,
		"found", result.TotalFound,
		"processed", result.TotalProcessed,
		"approved", result.TotalApproved,
		"flagged", result.TotalFlagged,
		"rejected", result.TotalRejected,
		"duplicates", result.TotalDuplicates,
		"errors", len(result.AllErrors()),
		"duration", result.Duration,
	)

	return result
}

// fetchAll fans out to every source with its sub-budget, bounded by the
// configured concurrency. Each invocation is isolated: a timeout or panic
// in one adapter becomes that source's error and never disturbs siblings.
func (o *Orchestrator) fetchAll(ctx context.Context, budgets []int) []domain.FetchResult {
	fetched := make([]domain.FetchResult, len(o.sources))

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxConcurrency)
	for i, src := range o.sources {
		i, src := i, src
		g.Go(func() error {
			fetched[i] = o.fetchOne(ctx, src, budgets[i])
			return nil
		})
	}
	_ = g.Wait()

	return fetched
}

func (o *Orchestrator) fetchOne(ctx context.Context, src SourceAdapter, budget int) (fr domain.FetchResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("source panicked", "source", src.ID(), "panic", r)
			fr = domain.FetchResult{Errors: []string{fmt.Sprintf("source panicked: %v", r)}}
		}
	}()

	sctx, cancel := context.WithTimeout(ctx, o.cfg.PerSourceTimeout)
	defer cancel()

	fr = src.Fetch(sctx, budget)

	// On timeout or cancellation, discard any partial data and report a
	// single zero-item error for this source.
	if err := sctx.Err(); err != nil {
		return domain.FetchResult{Errors: []string{fmt.Sprintf("fetch aborted: %v", err)}}
	}
	return fr
}

// decideAll runs the decision engine over the surviving candidates with
// bounded concurrency. Distinct hashes carry no data dependency between
// them, so workers only share the (concurrency-safe) store.
func (o *Orchestrator) decideAll(ctx context.Context, survivors []pending) []outcome {
	outcomes := make([]outcome, len(survivors))

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxConcurrency)
	for i, p := range survivors {
		i, p := i, p
		g.Go(func() error {
			d, err := o.decider.Decide(ctx, p.item, p.hash)
			outcomes[i] = outcome{decision: d, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// splitBudget divides total evenly across n sources, giving the remainder
// to the first sources in configured order. Deterministic so scan results
// are reproducible for a fixed input.
func splitBudget(total, n int) []int {
	if n == 0 {
		return nil
	}
	out := make([]int, n)
	base := total / n
	rem := total % n
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

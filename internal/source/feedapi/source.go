// Package feedapi implements the source adapter for paginated JSON feed
// APIs. One instance serves any platform exposing the common
// pageInfo/content envelope.
package feedapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"content_scanner/internal/domain"
)

// Config holds one feed endpoint's settings.
type Config struct {
	ID             string
	Name           string
	BaseURL        string
	PageSize       int
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type Source struct {
	httpClient     *http.Client
	id             string
	name           string
	baseURL        string
	pageSize       int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		id:             cfg.ID,
		name:           cfg.Name,
		baseURL:        cfg.BaseURL,
		pageSize:       cfg.PageSize,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger,
	}
}

func (s *Source) ID() string { return s.id }

func (s *Source) Name() string { return s.name }

// Fetch pages through the feed until the budget is filled or pages run
// out. Page-level failures are reported through the result's Errors; the
// items gathered before a failure are kept.
func (s *Source) Fetch(ctx context.Context, budget int) domain.FetchResult {
	var result domain.FetchResult

	for page := 0; len(result.Items) < budget; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("fetch page %d: %v", page, err))
			return result
		}

		for _, entry := range resp.Content {
			if len(result.Items) >= budget {
				break
			}
			result.Items = append(result.Items, s.transform(entry))
		}

		s.logger.Debug("fetched page",
			"page", page,
			"entries", len(resp.Content),
			"total", len(result.Items),
		)

		if page >= resp.PageInfo.NumPages-1 || len(resp.Content) == 0 {
			break
		}
	}

	return result
}

func (s *Source) fetchPage(ctx context.Context, page int) (*APIResponse, error) {
	url := fmt.Sprintf("%s?pageSize=%d&page=%d", s.baseURL, s.pageSize, page)

	var resp *APIResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx, url)
		if err == nil {
			return resp, nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context, url string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ContentScanner/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &apiResp, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

// transform flattens an entry into a candidate. Text concatenates every
// field the filter inspects.
func (s *Source) transform(entry Entry) domain.CandidateItem {
	parts := make([]string, 0, 4)
	for _, p := range []string{entry.Title, entry.Body, entry.Caption, strings.Join(entry.Tags, " ")} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}

	item := domain.CandidateItem{
		SourceID:        s.id,
		ExternalID:      entry.ID,
		Text:            strings.Join(parts, " "),
		MediaURL:        entry.MediaURL,
		CanonicalURL:    entry.CanonicalURL,
		EngagementScore: entry.Engagement,
	}

	if entry.PublishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, entry.PublishedAt); err == nil {
			item.PublishedAt = ts
		} else {
			s.logger.Warn("failed to parse publish date",
				"external_id", entry.ID,
				"published_at", entry.PublishedAt,
			)
		}
	}

	return item
}

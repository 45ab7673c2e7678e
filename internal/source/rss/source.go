// Package rss implements the source adapter for RSS and Atom feeds.
package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"content_scanner/internal/domain"
)

type Config struct {
	ID      string
	Name    string
	FeedURL string
	Timeout time.Duration
}

type Source struct {
	parser  *gofeed.Parser
	id      string
	name    string
	feedURL string
	logger  *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: cfg.Timeout}
	parser.UserAgent = "ContentScanner/1.0"
	return &Source{
		parser:  parser,
		id:      cfg.ID,
		name:    cfg.Name,
		feedURL: cfg.FeedURL,
		logger:  logger,
	}
}

func (s *Source) ID() string { return s.id }

func (s *Source) Name() string { return s.name }

// Fetch parses the feed and returns at most budget items. A feed that
// cannot be fetched or parsed yields a zero-item result with one error.
func (s *Source) Fetch(ctx context.Context, budget int) domain.FetchResult {
	var result domain.FetchResult

	feed, err := s.parser.ParseURLWithContext(s.feedURL, ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("parse feed: %v", err))
		return result
	}

	for _, entry := range feed.Items {
		if len(result.Items) >= budget {
			break
		}
		result.Items = append(result.Items, s.transform(entry))
	}

	s.logger.Debug("fetched feed",
		"entries", len(feed.Items),
		"taken", len(result.Items),
	)

	return result
}

func (s *Source) transform(entry *gofeed.Item) domain.CandidateItem {
	parts := make([]string, 0, 4)
	for _, p := range []string{entry.Title, entry.Description, entry.Content, strings.Join(entry.Categories, " ")} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}

	item := domain.CandidateItem{
		SourceID:     s.id,
		ExternalID:   entry.GUID,
		Text:         strings.Join(parts, " "),
		CanonicalURL: entry.Link,
	}

	if len(entry.Enclosures) > 0 {
		item.MediaURL = entry.Enclosures[0].URL
	} else if entry.Image != nil {
		item.MediaURL = entry.Image.URL
	}

	if entry.PublishedParsed != nil {
		item.PublishedAt = *entry.PublishedParsed
	}

	return item
}

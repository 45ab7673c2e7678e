package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"content_scanner/internal/domain"
)

type ContentStore struct {
	db *sqlx.DB
}

func NewContentStore(db *sqlx.DB) *ContentStore {
	return &ContentStore{db: db}
}

// UpsertIfAbsent inserts the record unless its content hash is already
// present. The unique index on content_hash makes this safe for concurrent
// scans converging on the same item.
func (s *ContentStore) UpsertIfAbsent(ctx context.Context, record *domain.ContentRecord) (bool, error) {
	query := `
		INSERT INTO content_records (
			content_hash, canonical_url, source_id, text, media_url,
			action, confidence, flagged_patterns, discovered_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (content_hash) DO NOTHING
		RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		record.ContentHash,
		record.CanonicalURL,
		record.SourceID,
		record.Text,
		record.MediaURL,
		string(record.Action),
		record.Confidence,
		pq.Array(record.FlaggedPatterns),
		record.DiscoveredAt,
	).Scan(&id)

	if err == sql.ErrNoRows {
		// Conflict: another writer already owns this hash.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	record.ID = id
	return true, nil
}

func (s *ContentStore) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM content_records WHERE content_hash = $1)", hash)
	return exists, err
}

func (s *ContentStore) ExistsByURL(ctx context.Context, canonicalURL string) (bool, error) {
	if canonicalURL == "" {
		return false, nil
	}
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM content_records WHERE canonical_url = $1)", canonicalURL)
	return exists, err
}

// GetByHash returns the stored record or nil when absent. Used by the
// review tooling and the integration tests.
func (s *ContentStore) GetByHash(ctx context.Context, hash string) (*domain.ContentRecord, error) {
	row := struct {
		ID           int64          `db:"id"`
		ContentHash  string         `db:"content_hash"`
		CanonicalURL string         `db:"canonical_url"`
		SourceID     string         `db:"source_id"`
		Text         string         `db:"text"`
		MediaURL     string         `db:"media_url"`
		Action       string         `db:"action"`
		Confidence   float64        `db:"confidence"`
		Patterns     pq.StringArray `db:"flagged_patterns"`
		DiscoveredAt sql.NullTime   `db:"discovered_at"`
	}{}

	err := s.db.GetContext(ctx, &row,
		`SELECT id, content_hash, canonical_url, source_id, text, media_url,
		        action, confidence, flagged_patterns, discovered_at
		 FROM content_records WHERE content_hash = $1`, hash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec := &domain.ContentRecord{
		ID:              row.ID,
		ContentHash:     row.ContentHash,
		CanonicalURL:    row.CanonicalURL,
		SourceID:        row.SourceID,
		Text:            row.Text,
		MediaURL:        row.MediaURL,
		Action:          domain.Action(row.Action),
		Confidence:      row.Confidence,
		FlaggedPatterns: row.Patterns,
	}
	if row.DiscoveredAt.Valid {
		rec.DiscoveredAt = row.DiscoveredAt.Time
	}
	return rec, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"content_scanner/internal/domain"
)

type ScanReportStore struct {
	db *sqlx.DB
}

func NewScanReportStore(db *sqlx.DB) *ScanReportStore {
	return &ScanReportStore{db: db}
}

// Save persists the aggregated result of one scan. The per-source
// breakdown is stored as jsonb; it is audit data, never queried
// relationally.
func (s *ScanReportStore) Save(ctx context.Context, result *domain.ScanResult) error {
	sources, err := json.Marshal(result.Sources)
	if err != nil {
		return fmt.Errorf("marshal source stats: %w", err)
	}

	query := `
		INSERT INTO scan_reports (
			scan_id, started_at, duration_ms, total_found, total_processed,
			total_approved, total_flagged, total_rejected, total_duplicates,
			total_published, success, sources
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (scan_id) DO NOTHING`

	_, err = s.db.ExecContext(ctx, query,
		result.ScanID,
		result.StartedAt,
		result.Duration.Milliseconds(),
		result.TotalFound,
		result.TotalProcessed,
		result.TotalApproved,
		result.TotalFlagged,
		result.TotalRejected,
		result.TotalDuplicates,
		result.TotalPublished,
		result.Success,
		sources,
	)
	return err
}

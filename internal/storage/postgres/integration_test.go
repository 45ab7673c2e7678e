//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"content_scanner/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_content_records.up.sql"),
			filepath.Join(migrationsPath, "002_create_scan_reports.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM content_records")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM scan_reports")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func testRecord(hash string) *domain.ContentRecord {
	return &domain.ContentRecord{
		ContentHash:     hash,
		CanonicalURL:    "https://example.com/" + hash,
		SourceID:        "test-source",
		Text:            "a hotdog worth recording",
		MediaURL:        "https://cdn.example.com/pic.jpg",
		Action:          domain.ActionApproved,
		Confidence:      0.85,
		FlaggedPatterns: []string{"heuristic.exclamation_flood"},
		DiscoveredAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresIntegrationSuite) TestContentStore_UpsertIfAbsent_Insert() {
	store := NewContentStore(s.db)
	record := testRecord("hash-insert")

	inserted, err := store.UpsertIfAbsent(s.ctx, record)
	s.NoError(err)
	s.True(inserted)
	s.Greater(record.ID, int64(0))

	got, err := store.GetByHash(s.ctx, "hash-insert")
	s.NoError(err)
	s.Require().NotNil(got)
	s.Equal(record.CanonicalURL, got.CanonicalURL)
	s.Equal(domain.ActionApproved, got.Action)
	s.Equal([]string{"heuristic.exclamation_flood"}, []string(got.FlaggedPatterns))
}

func (s *PostgresIntegrationSuite) TestContentStore_UpsertIfAbsent_Conflict() {
	store := NewContentStore(s.db)

	first := testRecord("hash-conflict")
	inserted, err := store.UpsertIfAbsent(s.ctx, first)
	s.Require().NoError(err)
	s.Require().True(inserted)

	second := testRecord("hash-conflict")
	second.Text = "a different rendering of the same content"
	inserted, err = store.UpsertIfAbsent(s.ctx, second)
	s.NoError(err)
	s.False(inserted, "the second writer must lose the insert race")

	var count int
	err = s.db.GetContext(s.ctx, &count,
		"SELECT COUNT(*) FROM content_records WHERE content_hash = $1", "hash-conflict")
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestContentStore_ExistsByHash() {
	store := NewContentStore(s.db)

	exists, err := store.ExistsByHash(s.ctx, "hash-missing")
	s.NoError(err)
	s.False(exists)

	_, err = store.UpsertIfAbsent(s.ctx, testRecord("hash-present"))
	s.Require().NoError(err)

	exists, err = store.ExistsByHash(s.ctx, "hash-present")
	s.NoError(err)
	s.True(exists)
}

func (s *PostgresIntegrationSuite) TestContentStore_ExistsByURL() {
	store := NewContentStore(s.db)

	record := testRecord("hash-url")
	_, err := store.UpsertIfAbsent(s.ctx, record)
	s.Require().NoError(err)

	exists, err := store.ExistsByURL(s.ctx, record.CanonicalURL)
	s.NoError(err)
	s.True(exists)

	exists, err = store.ExistsByURL(s.ctx, "https://example.com/other")
	s.NoError(err)
	s.False(exists)

	exists, err = store.ExistsByURL(s.ctx, "")
	s.NoError(err)
	s.False(exists, "empty url never matches")
}

func (s *PostgresIntegrationSuite) TestContentStore_GetByHash_Missing() {
	store := NewContentStore(s.db)

	got, err := store.GetByHash(s.ctx, "hash-nope")
	s.NoError(err)
	s.Nil(got)
}

func (s *PostgresIntegrationSuite) TestScanReportStore_Save() {
	store := NewScanReportStore(s.db)

	result := &domain.ScanResult{
		ScanID:    uuid.New(),
		StartedAt: time.Now().UTC().Truncate(time.Microsecond),
		Duration:  1200 * time.Millisecond,
		Sources: []domain.SourceStats{
			{SourceID: "blog", Found: 3, Processed: 3, Approved: 2, Rejected: 1},
			{SourceID: "forum", Found: 1, Processed: 1, Duplicates: 1, Errors: []string{"slow"}},
		},
		TotalFound:      4,
		TotalProcessed:  4,
		TotalApproved:   2,
		TotalRejected:   1,
		TotalDuplicates: 1,
		Success:         false,
	}

	s.NoError(store.Save(s.ctx, result))

	var count int
	err := s.db.GetContext(s.ctx, &count,
		"SELECT COUNT(*) FROM scan_reports WHERE scan_id = $1", result.ScanID)
	s.NoError(err)
	s.Equal(1, count)

	// Saving the same scan again is a no-op, not an error.
	s.NoError(store.Save(s.ctx, result))
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM scan_reports")
	s.NoError(err)
	s.Equal(1, count)
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lst-platform/internal/models"
	"lst-platform/internal/repository"
	"lst-platform/migrations"
	"lst-platform/pkg/database"
	"lst-platform/pkg/logging"
)

func newTestArchive(t *testing.T) repository.ArchiveRepository {
	t.Helper()

	logger := logging.NewNopLogger()
	collector := testCollector()

	db, err := database.Open(context.Background(), &database.Config{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "archive.db"),
	}, logger, collector)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	stmts, err := migrations.Statements("001_create_schema.up.sql")
	require.NoError(t, err)
	for _, stmt := range stmts {
		_, err := db.ExecContext(context.Background(), "migrate", stmt)
		require.NoError(t, err)
	}

	return repository.NewArchiveRepository(db, models.Calendar{Year: 2024}, logger, collector)
}

func TestIngestDays_SkipsMissingAndBrokenDays(t *testing.T) {
	archive := newTestArchive(t)
	src := &fakeSource{missing: map[int]bool{2: true}, broken: map[int]bool{4: true}}
	svc := NewIngestionService(src, archive, logging.NewNopLogger(), testCollector())

	result, err := svc.IngestDays(context.Background(), 5, 1)
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalDays)
	assert.Equal(t, 3, result.StoredDays)
	assert.Equal(t, 1, result.MissingDays)
	assert.Equal(t, 1, result.FailedDays)
	assert.Equal(t, 6, result.TotalSamples)
	assert.Len(t, result.Errors, 2)

	days, err := archive.ListDays(context.Background())
	require.NoError(t, err)
	stored := make([]int, len(days))
	for i, d := range days {
		stored[i] = d.Day
	}
	assert.Equal(t, []int{1, 3, 5}, stored)

	snap, err := archive.FetchDay(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, snap.Samples, 2)
	assert.Equal(t, 253.0, snap.Samples[0].LST)
}

func TestIngestDays_Cancelled(t *testing.T) {
	archive := newTestArchive(t)
	svc := NewIngestionService(&fakeSource{}, archive, logging.NewNopLogger(), testCollector())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.IngestDays(ctx, 3, 100)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.StoredDays)
}

func TestArchiveFeedsDataStore(t *testing.T) {
	archive := newTestArchive(t)
	_, err := NewIngestionService(&fakeSource{}, archive, logging.NewNopLogger(), testCollector()).
		IngestDays(context.Background(), 3, 10)
	require.NoError(t, err)

	store := newTestStore(t, archive, 3)
	require.Len(t, store.Snapshots(), 3)

	snap, ok := store.Snapshot(2)
	require.True(t, ok)
	assert.Equal(t, 262.0, snap.Samples[1].LST)
}

func TestStatistics_CalculateAndExport(t *testing.T) {
	archive := newTestArchive(t)
	src := &fakeSource{empty: map[int]bool{2: true}}
	_, err := NewIngestionService(src, archive, logging.NewNopLogger(), testCollector()).
		IngestDays(context.Background(), 3, 10)
	require.NoError(t, err)

	stats := NewStatisticsService(archive, models.Calendar{Year: 2024}, logging.NewNopLogger(), testCollector())

	stored, err := stats.CalculateDailyMeans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stored)

	means, err := stats.GetDailyMeans(context.Background())
	require.NoError(t, err)
	require.Len(t, means, 3)
	assert.InDelta(t, 256.0, means[0].MeanLST, 1e-9)
	assert.True(t, math.IsNaN(means[1].MeanLST))
	assert.Equal(t, 0, means[1].SampleCount)
	assert.InDelta(t, 258.0, means[2].MeanLST, 1e-9)

	var buf bytes.Buffer
	n, err := stats.ExportDailyMeans(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-001", rows[0]["date"])
	assert.Equal(t, 256.0, rows[0]["mean_LST"])
	assert.Nil(t, rows[1]["mean_LST"])
}

func TestStatistics_EmptyArchive(t *testing.T) {
	stats := NewStatisticsService(newTestArchive(t), models.Calendar{Year: 2024}, logging.NewNopLogger(), testCollector())

	stored, err := stats.CalculateDailyMeans(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stored)

	var buf bytes.Buffer
	n, err := stats.ExportDailyMeans(context.Background(), &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.JSONEq(t, `[]`, buf.String())
}

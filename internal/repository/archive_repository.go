package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"lst-platform/internal/models"
	"lst-platform/pkg/database"
	"lst-platform/pkg/logging"
	"lst-platform/pkg/metrics"
)

// ArchiveRepository stores ingested snapshots and their daily means.
// It also serves as a SnapshotSource for the server.
type ArchiveRepository interface {
	SnapshotSource

	SaveDay(ctx context.Context, snapshot *models.DaySnapshot, batchSize int) error
	ListDays(ctx context.Context) ([]DayRecord, error)
	SaveDailyMean(ctx context.Context, mean models.DailyMean) error
	ListDailyMeans(ctx context.Context) ([]models.DailyMean, error)
	HealthCheck(ctx context.Context) error
}

// DayRecord is one row of lst_days
type DayRecord struct {
	Day         int             `db:"day"`
	DateKey     string          `db:"date_key"`
	SampleCount int             `db:"sample_count"`
	MeanLST     sql.NullFloat64 `db:"mean_lst"`
}

type archiveRepository struct {
	db      *database.DB
	cal     models.Calendar
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewArchiveRepository creates a repository over an open archive
func NewArchiveRepository(db *database.DB, cal models.Calendar, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ArchiveRepository {
	return &archiveRepository{
		db:      db,
		cal:     cal,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// SaveDay replaces everything stored for the snapshot's day in one transaction
func (r *archiveRepository) SaveDay(ctx context.Context, snapshot *models.DaySnapshot, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 1000
	}

	timer := time.Now()
	defer func() {
		r.logger.Debug(ctx, "[REPO_SAVE_DAY] Day stored", logging.Fields{
			"day":         snapshot.Day,
			"samples":     len(snapshot.Samples),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM lst_samples WHERE day = ?`), snapshot.Day); err != nil {
		return fmt.Errorf("failed to clear samples: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM lst_days WHERE day = ?`), snapshot.Day); err != nil {
		return fmt.Errorf("failed to clear day: %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO lst_days (day, date_key, sample_count, mean_lst, ingested_at)
		VALUES (?, ?, ?, NULL, ?)
	`), snapshot.Day, r.cal.Key(snapshot.Day), len(snapshot.Samples), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to insert day: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO lst_samples (day, seq, lon, lat, lst)
		VALUES (?, ?, ?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inBatch := 0
	for i, s := range snapshot.Samples {
		if _, err := stmt.ExecContext(ctx, snapshot.Day, i, s.Lon, s.Lat, s.LST); err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
		inBatch++
		if inBatch == batchSize {
			r.metrics.IngestionBatchSize.Observe(float64(inBatch))
			inBatch = 0
		}
	}
	if inBatch > 0 {
		r.metrics.IngestionBatchSize.Observe(float64(inBatch))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IngestionRecordsTotal.Add(float64(len(snapshot.Samples)))
	return nil
}

// FetchDay loads one stored day, samples in their original order
func (r *archiveRepository) FetchDay(ctx context.Context, day int) (*models.DaySnapshot, error) {
	var count int
	err := r.db.GetContext(ctx, "get_day", &count, `SELECT sample_count FROM lst_days WHERE day = ?`, day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "lst_day", ID: strconv.Itoa(day)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get day: %w", err)
	}

	samples := make([]models.RasterSample, 0, count)
	err = r.db.SelectContext(ctx, "select_samples", &samples, `
		SELECT lon, lat, lst
		FROM lst_samples
		WHERE day = ?
		ORDER BY seq
	`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to select samples: %w", err)
	}

	return &models.DaySnapshot{Day: day, Samples: samples}, nil
}

func (r *archiveRepository) Describe() string {
	return "sql:" + r.db.Driver()
}

// ListDays returns every stored day in ascending order
func (r *archiveRepository) ListDays(ctx context.Context) ([]DayRecord, error) {
	var days []DayRecord
	err := r.db.SelectContext(ctx, "list_days", &days, `
		SELECT day, date_key, sample_count, mean_lst
		FROM lst_days
		ORDER BY day
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list days: %w", err)
	}
	return days, nil
}

// SaveDailyMean records the mean of an already stored day. NaN is stored as NULL.
func (r *archiveRepository) SaveDailyMean(ctx context.Context, mean models.DailyMean) error {
	var value interface{}
	if !math.IsNaN(mean.MeanLST) {
		value = mean.MeanLST
	}

	result, err := r.db.ExecContext(ctx, "update_daily_mean",
		`UPDATE lst_days SET mean_lst = ?, sample_count = ? WHERE day = ?`,
		value, mean.SampleCount, mean.Day)
	if err != nil {
		return fmt.Errorf("failed to save daily mean: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &NotFoundError{Resource: "lst_day", ID: strconv.Itoa(mean.Day)}
	}
	return nil
}

// ListDailyMeans returns stored means; days whose mean was never computed are skipped
func (r *archiveRepository) ListDailyMeans(ctx context.Context) ([]models.DailyMean, error) {
	days, err := r.ListDays(ctx)
	if err != nil {
		return nil, err
	}

	means := make([]models.DailyMean, 0, len(days))
	for _, d := range days {
		mean := math.NaN()
		if d.MeanLST.Valid {
			mean = d.MeanLST.Float64
		} else if d.SampleCount > 0 {
			continue
		}
		means = append(means, models.DailyMean{Day: d.Day, MeanLST: mean, SampleCount: d.SampleCount})
	}
	return means, nil
}

// HealthCheck performs a repository health check
func (r *archiveRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

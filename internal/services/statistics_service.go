package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"lst-platform/internal/models"
	"lst-platform/internal/repository"
	"lst-platform/pkg/logging"
	"lst-platform/pkg/metrics"
)

// StatisticsService computes and stores the daily means of archived days
type StatisticsService struct {
	repo    repository.ArchiveRepository
	cal     models.Calendar
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(repo repository.ArchiveRepository, cal models.Calendar, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StatisticsService {
	return &StatisticsService{
		repo:    repo,
		cal:     cal,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// CalculateDailyMeans recomputes the mean of every archived day. A day
// that cannot be read or written is logged and skipped; the count of
// stored means is returned.
func (s *StatisticsService) CalculateDailyMeans(ctx context.Context) (int, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[STATS_CALC_START] Starting daily mean calculation", logging.Fields{
		"stage": "INITIALIZATION",
	})

	days, err := s.repo.ListDays(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list days: %w", err)
	}

	stored := 0
	for _, d := range days {
		snap, err := s.repo.FetchDay(ctx, d.Day)
		if err != nil {
			s.logger.Error(ctx, "[STATS_CALC_ERROR] Failed to read day", logging.Fields{
				"day": d.Day,
			}, err)
			continue
		}

		mean := ComputeDailyMeans([]models.DaySnapshot{*snap})[0]
		if err := s.repo.SaveDailyMean(ctx, mean); err != nil {
			s.logger.Error(ctx, "[STATS_SAVE_ERROR] Failed to save daily mean", logging.Fields{
				"day": d.Day,
			}, err)
			continue
		}
		stored++

		fields := logging.Fields{"day": d.Day, "samples": mean.SampleCount}
		if !math.IsNaN(mean.MeanLST) {
			fields["mean_lst"] = mean.MeanLST
		}
		s.logger.Debug(ctx, "[STATS_DAY_COMPLETE] Daily mean stored", fields)
	}

	s.logger.Info(ctx, "[STATS_CALC_COMPLETE] Daily mean calculation completed", logging.Fields{
		"total_days":       len(days),
		"stored_means":     stored,
		"duration_seconds": time.Since(startTime).Seconds(),
		"stage":            "COMPLETE",
	})

	return stored, nil
}

// GetDailyMeans returns the stored means in day order
func (s *StatisticsService) GetDailyMeans(ctx context.Context) ([]models.DailyMean, error) {
	return s.repo.ListDailyMeans(ctx)
}

// ExportDailyMeans writes the stored means as daily_mean_LST_US.json rows
func (s *StatisticsService) ExportDailyMeans(ctx context.Context, w io.Writer) (int, error) {
	means, err := s.repo.ListDailyMeans(ctx)
	if err != nil {
		return 0, err
	}

	records := make([]models.DailyMeanRecord, len(means))
	for i, m := range means {
		records[i] = models.DailyMeanRecord{Date: s.cal.Key(m.Day), MeanLST: models.Float(m.MeanLST)}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return 0, fmt.Errorf("failed to encode daily means: %w", err)
	}
	return len(records), nil
}

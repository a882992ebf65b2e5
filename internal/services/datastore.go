package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"lst-platform/internal/models"
	"lst-platform/internal/repository"
	"lst-platform/pkg/logging"
	"lst-platform/pkg/metrics"
)

var (
	// ErrAlreadyLoaded is returned by a second LoadAll; the store is populated once.
	ErrAlreadyLoaded = errors.New("data store already loaded")

	// ErrNotReady is returned by readers that need the settled store while
	// LoadAll is still running.
	ErrNotReady = errors.New("snapshots still loading")
)

// DataStore holds every loaded day snapshot and the derived daily means.
// It is written once by LoadAll and read-only afterwards.
type DataStore struct {
	source      repository.SnapshotSource
	cal         models.Calendar
	days        int
	concurrency int
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector

	mu        sync.RWMutex
	loaded    bool
	snapshots []models.DaySnapshot
	byDay     map[int]int
	means     []models.DailyMean
}

// NewDataStore creates an empty store for days [1, days] of cal.Year
func NewDataStore(source repository.SnapshotSource, cal models.Calendar, days, concurrency int, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DataStore {
	if concurrency < 1 {
		concurrency = 1
	}
	return &DataStore{
		source:      source,
		cal:         cal,
		days:        days,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metricsCollector,
		byDay:       make(map[int]int),
	}
}

// LoadAll fetches every day concurrently and waits for all of them to settle.
// A day that fails is dropped, never the batch; the result is ordered by day
// and may have gaps. Cancelling ctx only drops the days still in flight:
// the days that completed are kept and the store is marked loaded.
func (s *DataStore) LoadAll(ctx context.Context) ([]models.DaySnapshot, error) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil, ErrAlreadyLoaded
	}

	startTime := time.Now()
	s.logger.Info(ctx, "[LOAD_START] Loading day snapshots", logging.Fields{
		"source":      s.source.Describe(),
		"days":        s.days,
		"concurrency": s.concurrency,
	})

	results := make([]*models.DaySnapshot, s.days)
	var cancelled atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for day := 1; day <= s.days; day++ {
		day := day
		g.Go(func() error {
			snap, err := s.source.FetchDay(gctx, day)
			if err != nil {
				if s.skipDay(gctx, day, err) == "cancelled" {
					cancelled.Add(1)
				}
				return nil
			}
			results[day-1] = snap
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		s.logger.Warn(ctx, "[LOAD_INCOMPLETE] Load deadline reached, keeping the completed days", logging.Fields{
			"cancelled_days": cancelled.Load(),
			"error":          err.Error(),
		})
	}

	snapshots := make([]models.DaySnapshot, 0, s.days)
	samples := 0
	for _, snap := range results {
		if snap == nil {
			continue
		}
		snapshots = append(snapshots, *snap)
		samples += len(snap.Samples)
	}
	means := ComputeDailyMeans(snapshots)

	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil, ErrAlreadyLoaded
	}
	s.snapshots = snapshots
	for i := range snapshots {
		s.byDay[snapshots[i].Day] = i
	}
	s.means = means
	s.loaded = true
	s.mu.Unlock()

	duration := time.Since(startTime)
	s.metrics.LoadDuration.Observe(duration.Seconds())
	s.metrics.DaysLoadedTotal.Add(float64(len(snapshots)))
	s.metrics.SamplesLoadedTotal.Add(float64(samples))

	s.logger.Info(ctx, "[LOAD_COMPLETE] Day snapshots loaded", logging.Fields{
		"loaded_days":      len(snapshots),
		"skipped_days":     s.days - len(snapshots),
		"samples":          samples,
		"duration_seconds": duration.Seconds(),
	})

	return snapshots, nil
}

// skipDay records a dropped day and returns the reason label
func (s *DataStore) skipDay(ctx context.Context, day int, err error) string {
	reason := "fetch_error"
	var verr *models.ValidationError
	switch {
	case repository.IsNotFound(err):
		reason = "missing"
	case errors.As(err, &verr):
		reason = "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		reason = "cancelled"
	}
	s.metrics.RecordDaySkipped(reason)
	s.logger.Warn(ctx, "[LOAD_DAY_SKIPPED] Day excluded from the loaded set", logging.Fields{
		"day":    day,
		"reason": reason,
		"error":  err.Error(),
	})
	return reason
}

// ComputeDailyMeans returns the arithmetic mean LST of each snapshot, in input order.
// An empty snapshot yields NaN.
func ComputeDailyMeans(snapshots []models.DaySnapshot) []models.DailyMean {
	means := make([]models.DailyMean, len(snapshots))
	for i, snap := range snapshots {
		mean := math.NaN()
		if n := len(snap.Samples); n > 0 {
			sum := 0.0
			for _, sample := range snap.Samples {
				sum += sample.LST
			}
			mean = sum / float64(n)
		}
		means[i] = models.DailyMean{Day: snap.Day, MeanLST: mean, SampleCount: len(snap.Samples)}
	}
	return means
}

// Loaded reports whether LoadAll has completed
func (s *DataStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Days is N, the size of the configured day range
func (s *DataStore) Days() int {
	return s.days
}

// InRange reports whether day lies within [1, N]
func (s *DataStore) InRange(day int) bool {
	return day >= 1 && day <= s.days
}

// Calendar returns the calendar the days belong to
func (s *DataStore) Calendar() models.Calendar {
	return s.cal
}

// Snapshot returns the loaded snapshot for day
func (s *DataStore) Snapshot(day int) (*models.DaySnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byDay[day]
	if !ok {
		return nil, false
	}
	return &s.snapshots[i], true
}

// Snapshots returns every loaded snapshot in day order. Callers must not modify it.
func (s *DataStore) Snapshots() []models.DaySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshots
}

// LoadedDays lists the day indices that loaded
func (s *DataStore) LoadedDays() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	days := make([]int, len(s.snapshots))
	for i := range s.snapshots {
		days[i] = s.snapshots[i].Day
	}
	return days
}

// Means returns one DailyMean per loaded snapshot, in day order
func (s *DataStore) Means() []models.DailyMean {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.means
}

// DailyMeanRecords returns the means as daily_mean_LST_US.json rows
func (s *DataStore) DailyMeanRecords() []models.DailyMeanRecord {
	means := s.Means()
	records := make([]models.DailyMeanRecord, len(means))
	for i, m := range means {
		records[i] = models.DailyMeanRecord{Date: s.cal.Key(m.Day), MeanLST: models.Float(m.MeanLST)}
	}
	return records
}

// ExportDailyMeans writes DailyMeanRecords as a JSON array
func (s *DataStore) ExportDailyMeans(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(s.DailyMeanRecords()); err != nil {
		return fmt.Errorf("failed to encode daily means: %w", err)
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"lst-platform/internal/repository"
	"lst-platform/pkg/logging"
	"lst-platform/pkg/metrics"
)

// IngestionService copies day snapshots from a source into the archive
type IngestionService struct {
	source  repository.SnapshotSource
	archive repository.ArchiveRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalDays    int
	StoredDays   int
	MissingDays  int
	FailedDays   int
	TotalSamples int
	Duration     time.Duration
	Errors       []string
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(source repository.SnapshotSource, archive repository.ArchiveRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		source:  source,
		archive: archive,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// IngestDays stores days [1, days] one at a time. A missing or malformed
// day is recorded and skipped; a failing archive write aborts the run.
func (s *IngestionService) IngestDays(ctx context.Context, days, batchSize int) (*IngestionResult, error) {
	startTime := time.Now()
	log := s.logger.WithFields(logging.Fields{"source": s.source.Describe()})

	log.Info(ctx, "[INGEST_START] Starting archive ingestion", logging.Fields{
		"days":       days,
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	result := &IngestionResult{TotalDays: days, Errors: make([]string, 0)}

	for day := 1; day <= days; day++ {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("ingestion interrupted at day %d: %w", day, err)
		}

		snap, err := s.source.FetchDay(ctx, day)
		if err != nil {
			if repository.IsNotFound(err) {
				result.MissingDays++
				s.metrics.RecordIngestionError("missing_day")
			} else {
				result.FailedDays++
				s.metrics.RecordIngestionError("fetch_error")
			}
			result.Errors = append(result.Errors, fmt.Sprintf("day %d: %v", day, err))
			log.Warn(ctx, "[INGEST_DAY_SKIPPED] Day not ingested", logging.Fields{
				"day":   day,
				"error": err.Error(),
				"stage": "FETCH",
			})
			continue
		}

		if err := s.archive.SaveDay(ctx, snap, batchSize); err != nil {
			s.metrics.RecordIngestionError("write_error")
			log.Error(ctx, "[INGEST_DAY_ERROR] Failed to store day", logging.Fields{
				"day":   day,
				"stage": "WRITE",
			}, err)
			return result, fmt.Errorf("failed to store day %d: %w", day, err)
		}

		result.StoredDays++
		result.TotalSamples += len(snap.Samples)
		log.Debug(ctx, "[INGEST_DAY_SUCCESS] Day stored", logging.Fields{
			"day":     day,
			"samples": len(snap.Samples),
			"stage":   "DAY_COMPLETE",
		})
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	log.Info(ctx, "[INGEST_COMPLETE] Archive ingestion completed", logging.Fields{
		"total_days":       result.TotalDays,
		"stored_days":      result.StoredDays,
		"missing_days":     result.MissingDays,
		"failed_days":      result.FailedDays,
		"total_samples":    result.TotalSamples,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

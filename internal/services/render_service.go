package services

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"lst-platform/internal/models"
	"lst-platform/internal/render"
	"lst-platform/pkg/logging"
	"lst-platform/pkg/metrics"
)

// RenderService serves the drawn surfaces for the loaded data. Heatmaps,
// the legend, the overlay and the daily-mean graph are cached; pixel
// series graphs depend on the probe and are drawn per request.
type RenderService struct {
	renderer *render.Renderer
	store    *DataStore
	overlay  *render.Overlay
	cache    *render.Cache
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewRenderService creates a render service. overlay may be nil when the
// boundary file failed to load.
func NewRenderService(renderer *render.Renderer, store *DataStore, overlay *render.Overlay, cache *render.Cache, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *RenderService {
	return &RenderService{
		renderer: renderer,
		store:    store,
		overlay:  overlay,
		cache:    cache,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// Heatmap returns the PNG canvas of day; a day that did not load is blank.
// Nothing is drawn or cached before the store settles.
func (s *RenderService) Heatmap(ctx context.Context, day int) ([]byte, error) {
	if !s.store.Loaded() {
		return nil, ErrNotReady
	}
	if !s.store.InRange(day) {
		return nil, fmt.Errorf("%w: %d", ErrDayOutOfRange, day)
	}
	snap, _ := s.store.Snapshot(day)
	return s.cached(ctx, "heatmap", fmt.Sprintf("heatmap:%d", day), func(w io.Writer) error {
		return s.renderer.HeatmapPNG(w, snap)
	})
}

// Legend returns the colour bar PNG
func (s *RenderService) Legend(ctx context.Context) ([]byte, error) {
	return s.cached(ctx, "legend", "legend", s.renderer.LegendPNG)
}

// Overlay returns the boundary and graticule PNG
func (s *RenderService) Overlay(ctx context.Context) ([]byte, error) {
	return s.cached(ctx, "overlay", "overlay", func(w io.Writer) error {
		return s.renderer.OverlayPNG(w, s.overlay)
	})
}

// DailyMeans returns the daily-mean graph SVG with currentDay highlighted
func (s *RenderService) DailyMeans(ctx context.Context, currentDay, width int) ([]byte, error) {
	if !s.store.Loaded() {
		return nil, ErrNotReady
	}
	if !s.store.InRange(currentDay) {
		return nil, fmt.Errorf("%w: %d", ErrDayOutOfRange, currentDay)
	}
	key := fmt.Sprintf("means:%d:%d", currentDay, width)
	return s.cached(ctx, "daily_means", key, func(w io.Writer) error {
		return s.renderer.DailyMeanSVG(w, s.store.Means(), s.store.Days(), currentDay, width)
	})
}

// PixelSeries returns the per-pixel graph SVG; render.ErrNoData when the
// series has no finite value.
func (s *RenderService) PixelSeries(ctx context.Context, series *models.ProbeTimeSeries, currentDay, width int) ([]byte, error) {
	timer := s.metrics.NewTimer(s.metrics.RenderDuration.WithLabelValues("pixel_series"))
	defer timer.ObserveDuration()

	var buf bytes.Buffer
	if err := s.renderer.PixelSeriesSVG(&buf, series, currentDay, width); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *RenderService) cached(ctx context.Context, surface, key string, draw func(io.Writer) error) ([]byte, error) {
	data, hit, err := s.cache.GetOrRender(key, func(w io.Writer) error {
		timer := s.metrics.NewTimer(s.metrics.RenderDuration.WithLabelValues(surface))
		defer timer.ObserveDuration()
		return draw(w)
	})
	s.metrics.RecordCacheLookup(hit)
	if err != nil {
		s.logger.Debug(ctx, "[RENDER_FAILED] Surface not drawn", logging.Fields{
			"surface": surface,
			"key":     key,
			"error":   err.Error(),
		})
		return nil, err
	}
	return data, nil
}

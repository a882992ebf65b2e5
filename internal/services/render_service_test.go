package services

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lst-platform/internal/geo"
	"lst-platform/internal/models"
	"lst-platform/internal/render"
	"lst-platform/pkg/logging"
	"lst-platform/pkg/metrics"
)

func newTestRenders(t *testing.T, store *DataStore, collector *metrics.Collector) *RenderService {
	t.Helper()
	scale, err := render.NewColorScale(render.DefaultMinK, render.DefaultMaxK)
	require.NoError(t, err)
	cache, err := render.NewCache(8)
	require.NoError(t, err)
	renderer := render.NewRenderer(geo.NewMapper(geo.ContinentalUS, 300, 140), scale, store.Calendar(), render.DefaultCellSize)
	return NewRenderService(renderer, store, nil, cache, logging.NewNopLogger(), collector)
}

func TestRenderService_HeatmapIsCached(t *testing.T) {
	collector := testCollector()
	svc := newTestRenders(t, newTestStore(t, &fakeSource{}, 3), collector)

	first, err := svc.Heatmap(context.Background(), 2)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(first))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 140, img.Bounds().Dy())

	second, err := svc.Heatmap(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.RenderCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.RenderCacheTotal.WithLabelValues("miss")))
}

func TestRenderService_DayOutOfRange(t *testing.T) {
	svc := newTestRenders(t, newTestStore(t, &fakeSource{}, 3), testCollector())

	_, err := svc.Heatmap(context.Background(), 4)
	assert.ErrorIs(t, err, ErrDayOutOfRange)
	_, err = svc.DailyMeans(context.Background(), 0, 600)
	assert.ErrorIs(t, err, ErrDayOutOfRange)
}

func TestRenderService_StaticSurfaces(t *testing.T) {
	svc := newTestRenders(t, newTestStore(t, &fakeSource{}, 3), testCollector())

	legend, err := svc.Legend(context.Background())
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(legend))
	require.NoError(t, err)

	overlay, err := svc.Overlay(context.Background())
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(overlay))
	require.NoError(t, err)
}

func TestRenderService_Graphs(t *testing.T) {
	store := newTestStore(t, &fakeSource{}, 3)
	svc := newTestRenders(t, store, testCollector())

	means, err := svc.DailyMeans(context.Background(), 2, 600)
	require.NoError(t, err)
	assert.Contains(t, string(means), "<svg")

	v := 280.0
	series := &models.ProbeTimeSeries{Location: models.ProbeLocation{Lon: -100, Lat: 40}, Values: []*float64{&v, nil, &v}}
	pixel, err := svc.PixelSeries(context.Background(), series, 1, 600)
	require.NoError(t, err)
	assert.Contains(t, string(pixel), "<svg")

	_, err = svc.PixelSeries(context.Background(), &models.ProbeTimeSeries{Values: []*float64{nil, nil, nil}}, 1, 600)
	assert.ErrorIs(t, err, render.ErrNoData)
}

func TestRenderService_NotReadyBeforeLoad(t *testing.T) {
	collector := testCollector()
	store := NewDataStore(&fakeSource{}, models.Calendar{Year: 2024}, 3, 2, logging.NewNopLogger(), collector)
	svc := newTestRenders(t, store, collector)

	_, err := svc.Heatmap(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = svc.DailyMeans(context.Background(), 2, 600)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Zero(t, svc.cache.Len(), "nothing drawn before the load")

	_, err = store.LoadAll(context.Background())
	require.NoError(t, err)

	data, err := svc.Heatmap(context.Background(), 2)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.RenderCacheTotal.WithLabelValues("miss")))
}

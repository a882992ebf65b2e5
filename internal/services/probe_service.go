package services

import (
	"lst-platform/internal/geo"
	"lst-platform/internal/models"
	"lst-platform/pkg/metrics"
)

// ProbeService builds per-location time series from the loaded snapshots.
type ProbeService struct {
	store   *DataStore
	metrics *metrics.Collector
}

// NewProbeService creates a probe service over store
func NewProbeService(store *DataStore, metricsCollector *metrics.Collector) *ProbeService {
	return &ProbeService{store: store, metrics: metricsCollector}
}

// TimeSeries returns the nearest-sample LST at loc for every day in [1, N].
// Days that did not load, or loaded empty, are nil.
func (p *ProbeService) TimeSeries(loc models.ProbeLocation, trigger string) *models.ProbeTimeSeries {
	timer := p.metrics.NewTimer(p.metrics.ProbeDuration)
	defer timer.ObserveDuration()
	p.metrics.ProbeComputations.WithLabelValues(trigger).Inc()

	series := &models.ProbeTimeSeries{
		Location: loc,
		Values:   make([]*float64, p.store.Days()),
	}
	for _, snap := range p.store.Snapshots() {
		if snap.Day < 1 || snap.Day > len(series.Values) {
			continue
		}
		if lst, ok := geo.Nearest(&snap, loc.Lon, loc.Lat); ok {
			series.Values[snap.Day-1] = models.Float(lst)
		}
	}
	return series
}

package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lst-platform/internal/models"
)

func TestMapper_Corners(t *testing.T) {
	m := NewMapper(ContinentalUS, 960, 448)

	x, y := m.ToScreen(MinLon, MaxLat)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	x, y = m.ToScreen(MaxLon, MinLat)
	assert.InDelta(t, 960, x, 1e-9)
	assert.InDelta(t, 448, y, 1e-9, "minimum latitude sits at the bottom edge")

	lon, lat := m.ToGeo(480, 224)
	assert.InDelta(t, -102.5, lon, 1e-9)
	assert.InDelta(t, 37.5, lat, 1e-9)
}

func TestMapper_RoundTrip(t *testing.T) {
	m := NewMapper(ContinentalUS, 960, 448)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		lon := MinLon + rng.Float64()*(MaxLon-MinLon)
		lat := MinLat + rng.Float64()*(MaxLat-MinLat)

		x, y := m.ToScreen(lon, lat)
		gotLon, gotLat := m.ToGeo(x, y)

		require.InDelta(t, lon, gotLon, 1e-9)
		require.InDelta(t, lat, gotLat, 1e-9)
	}
}

func TestMapper_Contains(t *testing.T) {
	m := NewMapper(ContinentalUS, 100, 50)

	assert.True(t, m.Contains(0, 0))
	assert.True(t, m.Contains(100, 50))
	assert.False(t, m.Contains(-1, 10))
	assert.False(t, m.Contains(10, 51))

	w, h := m.Size()
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
	assert.True(t, m.BoundingBox().Contains(-100, 40))
	assert.False(t, m.BoundingBox().Contains(-150, 40))
}

func TestNearest(t *testing.T) {
	snap := &models.DaySnapshot{Day: 1, Samples: []models.RasterSample{
		{Lon: -100, Lat: 40, LST: 280},
		{Lon: -90, Lat: 35, LST: 290},
		{Lon: -80, Lat: 30, LST: 300},
	}}

	tests := []struct {
		name     string
		lon, lat float64
		want     float64
	}{
		{"exact hit", -90, 35, 290},
		{"closer to first", -99, 39, 280},
		{"closer to last", -81, 31, 300},
		{"far outside picks closest", -200, 80, 280},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Nearest(snap, tt.lon, tt.lat)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNearest_TieGoesToFirst(t *testing.T) {
	snap := &models.DaySnapshot{Samples: []models.RasterSample{
		{Lon: -101, Lat: 40, LST: 270},
		{Lon: -99, Lat: 40, LST: 310},
	}}

	got, ok := Nearest(snap, -100, 40)
	require.True(t, ok)
	assert.Equal(t, 270.0, got)
}

func TestNearest_EmptySnapshot(t *testing.T) {
	_, ok := Nearest(&models.DaySnapshot{Day: 3}, -100, 40)
	assert.False(t, ok)

	_, ok = Nearest(nil, -100, 40)
	assert.False(t, ok)

	assert.Equal(t, -1, NearestIndex(nil, 0, 0))
}

func TestNearest_IsMinimumDistance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	samples := make([]models.RasterSample, 500)
	for i := range samples {
		samples[i] = models.RasterSample{
			Lon: MinLon + rng.Float64()*(MaxLon-MinLon),
			Lat: MinLat + rng.Float64()*(MaxLat-MinLat),
			LST: 250 + rng.Float64()*50,
		}
	}

	for q := 0; q < 200; q++ {
		lon := MinLon + rng.Float64()*(MaxLon-MinLon)
		lat := MinLat + rng.Float64()*(MaxLat-MinLat)

		idx := NearestIndex(samples, lon, lat)
		require.GreaterOrEqual(t, idx, 0)
		best := math.Hypot(samples[idx].Lon-lon, samples[idx].Lat-lat)
		for _, s := range samples {
			require.LessOrEqual(t, best, math.Hypot(s.Lon-lon, s.Lat-lat))
		}
	}
}

package geo

import (
	"lst-platform/internal/models"
)

// Nearest returns the LST of the sample closest to lon/lat in plain lon/lat
// space. The first sample wins a tie. ok is false for an empty snapshot; the
// caller must treat that as "no data", never as zero.
func Nearest(snapshot *models.DaySnapshot, lon, lat float64) (lst float64, ok bool) {
	if snapshot == nil {
		return 0, false
	}
	idx := NearestIndex(snapshot.Samples, lon, lat)
	if idx < 0 {
		return 0, false
	}
	return snapshot.Samples[idx].LST, true
}

// NearestIndex is Nearest over a bare slice; it returns -1 when samples is empty.
// Squared distance keeps the ordering and skips the sqrt.
func NearestIndex(samples []models.RasterSample, lon, lat float64) int {
	best := -1
	var bestDist float64
	for i := range samples {
		dLon := samples[i].Lon - lon
		dLat := samples[i].Lat - lat
		d := dLon*dLon + dLat*dLat
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// Package render draws the map and graph surfaces: the heatmap canvas,
// its legend and boundary overlay as PNG, and the two line graphs as SVG.
package render

import (
	"fmt"
	"image/color"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// Default colour domain in kelvin
const (
	DefaultMinK = 250.0
	DefaultMaxK = 300.0
)

// ylOrRd control points, dark to light so luminance increases
var ylOrRd = []string{
	"800026", "bd0026", "e31a1c", "fc4e2a", "fd8d3c",
	"feb24c", "fed976", "ffeda0", "ffffcc",
}

// ColorScale maps kelvin onto a yellow-orange-red ramp. Values outside
// the domain take the colour of the nearer end.
type ColorScale struct {
	cmap     palette.ColorMap
	min, max float64
}

// NewColorScale builds the ramp over [min, max]
func NewColorScale(min, max float64) (*ColorScale, error) {
	if !(max > min) {
		return nil, fmt.Errorf("invalid colour domain [%g, %g]", min, max)
	}
	controls := make([]color.Color, len(ylOrRd))
	for i, hex := range ylOrRd {
		controls[i] = drawing.ColorFromHex(hex)
	}
	cmap, err := moreland.NewLuminance(controls)
	if err != nil {
		return nil, fmt.Errorf("failed to build colour map: %w", err)
	}
	cmap.SetMin(min)
	cmap.SetMax(max)
	return &ColorScale{cmap: cmap, min: min, max: max}, nil
}

// Domain returns the kelvin range of the ramp
func (s *ColorScale) Domain() (min, max float64) {
	return s.min, s.max
}

// Color returns the fill for k. NaN is transparent.
func (s *ColorScale) Color(k float64) color.Color {
	if math.IsNaN(k) {
		return color.Transparent
	}
	k = math.Max(s.min, math.Min(s.max, k))
	// the control points run dark to light, the ramp runs light to dark
	c, err := s.cmap.At(s.min + s.max - k)
	if err != nil {
		return color.Transparent
	}
	return c
}

// At returns the colour at fraction t of the domain, t in [0, 1]
func (s *ColorScale) At(t float64) color.Color {
	return s.Color(s.min + t*(s.max-s.min))
}

// Ticks returns round tick values covering the domain, about count of them
func (s *ColorScale) Ticks(count int) []float64 {
	return niceTicks(s.min, s.max, count)
}

// niceTicks picks a 1, 2 or 5 times power-of-ten step so that about
// count ticks fall inside [lo, hi].
func niceTicks(lo, hi float64, count int) []float64 {
	if count < 1 || !(hi > lo) {
		return nil
	}
	step := niceStep((hi - lo) / float64(count))
	first := math.Ceil(lo/step) * step
	var ticks []float64
	for v := first; v <= hi+step*1e-9; v += step {
		ticks = append(ticks, math.Round(v/step)*step)
	}
	return ticks
}

func niceStep(raw float64) float64 {
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch r := raw / mag; {
	case r >= 7.07:
		return 10 * mag
	case r >= 3.16:
		return 5 * mag
	case r >= 1.41:
		return 2 * mag
	default:
		return mag
	}
}

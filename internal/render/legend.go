package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
)

// Legend geometry in pixels
const (
	LegendBarWidth  = 350
	LegendBarHeight = 20
	legendMarginX   = 20
	legendAxisSpace = 24
	legendStep      = 0.02
	legendTickCount = 5
)

// LegendPNG draws the colour bar with a kelvin axis underneath
func (r *Renderer) LegendPNG(w io.Writer) error {
	dc := gg.NewContext(LegendBarWidth+2*legendMarginX, LegendBarHeight+legendAxisSpace)
	dc.SetColor(color.White)
	dc.Clear()

	stops := r.legendStops()
	for px := 0; px < LegendBarWidth; px++ {
		dc.SetColor(gradientAt(stops, float64(px)/float64(LegendBarWidth-1)))
		dc.DrawRectangle(float64(legendMarginX+px), 0, 1, LegendBarHeight)
		dc.Fill()
	}

	lo, hi := r.scale.Domain()
	dc.SetColor(color.Black)
	dc.SetLineWidth(1)
	dc.DrawLine(legendMarginX, LegendBarHeight+0.5, legendMarginX+LegendBarWidth, LegendBarHeight+0.5)
	dc.Stroke()
	for _, v := range r.scale.Ticks(legendTickCount) {
		x := legendMarginX + (v-lo)/(hi-lo)*LegendBarWidth
		dc.DrawLine(x, LegendBarHeight, x, LegendBarHeight+6)
		dc.Stroke()
		dc.DrawStringAnchored(TickLabel(v), x, LegendBarHeight+8, 0.5, 1)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode legend: %w", err)
	}
	return nil
}

// TickLabel formats a legend tick, e.g. "260 K"
func TickLabel(k float64) string {
	return fmt.Sprintf("%.0f K", k)
}

// legendStops samples the scale every legendStep of the domain, ends included
func (r *Renderer) legendStops() []color.Color {
	n := int(math.Round(1 / legendStep))
	stops := make([]color.Color, n+1)
	for i := range stops {
		stops[i] = r.scale.At(float64(i) / float64(n))
	}
	return stops
}

// gradientAt interpolates linearly in RGB between the two stops around t
func gradientAt(stops []color.Color, t float64) color.Color {
	if t <= 0 {
		return stops[0]
	}
	if t >= 1 {
		return stops[len(stops)-1]
	}
	pos := t * float64(len(stops)-1)
	i := int(pos)
	frac := pos - float64(i)

	r0, g0, b0, a0 := stops[i].RGBA()
	r1, g1, b1, a1 := stops[i+1].RGBA()
	lerp := func(a, b uint32) uint8 {
		return uint8((float64(a)+(float64(b)-float64(a))*frac)/257 + 0.5)
	}
	return color.RGBA{R: lerp(r0, r1), G: lerp(g0, g1), B: lerp(b0, b1), A: lerp(a0, a1)}
}

package render

import (
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/fogleman/gg"
	geojson "github.com/paulmach/go.geojson"
)

// Graticule spacing in degrees
const GraticuleStep = 5.0

var (
	boundaryColor  = color.Black
	graticuleColor = color.NRGBA{R: 211, G: 211, B: 211, A: 153} // lightgray at 0.6
)

// Overlay holds the boundary rings of a feature collection in lon/lat
type Overlay struct {
	Rings [][][]float64
}

// LoadOverlay reads a GeoJSON feature collection from path
func LoadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overlay %s: %w", path, err)
	}
	return ParseOverlay(data)
}

// ParseOverlay keeps the outline of every polygon, multipolygon and line feature
func ParseOverlay(data []byte) (*Overlay, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse overlay: %w", err)
	}

	ov := &Overlay{}
	for _, f := range fc.Features {
		g := f.Geometry
		if g == nil {
			continue
		}
		switch {
		case g.IsPolygon():
			ov.Rings = append(ov.Rings, g.Polygon...)
		case g.IsMultiPolygon():
			for _, poly := range g.MultiPolygon {
				ov.Rings = append(ov.Rings, poly...)
			}
		case g.IsLineString():
			ov.Rings = append(ov.Rings, g.LineString)
		case g.IsMultiLineString():
			ov.Rings = append(ov.Rings, g.MultiLineString...)
		}
	}
	if len(ov.Rings) == 0 {
		return nil, fmt.Errorf("overlay has no drawable geometry")
	}
	return ov, nil
}

// OverlayPNG draws the graticule and the boundaries on a transparent canvas.
// A nil overlay draws a placeholder marker in place of the boundaries so a
// failed load is visible but does not break the map.
func (r *Renderer) OverlayPNG(w io.Writer, overlay *Overlay) error {
	width, height := r.mapper.Size()
	dc := gg.NewContext(width, height)
	dc.SetColor(color.Transparent)
	dc.Clear()

	r.drawGraticule(dc)
	if overlay != nil {
		r.drawBoundaries(dc, overlay)
	} else {
		drawPlaceholder(dc, "boundary overlay unavailable")
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode overlay: %w", err)
	}
	return nil
}

func (r *Renderer) drawGraticule(dc *gg.Context) {
	bbox := r.mapper.BoundingBox()
	w, h := r.mapper.Size()

	dc.SetColor(graticuleColor)
	dc.SetLineWidth(1)
	for lon := bbox.MinLon; lon <= bbox.MaxLon; lon += GraticuleStep {
		x := r.mapper.X(lon)
		dc.DrawLine(x, 0, x, float64(h))
		dc.Stroke()
	}
	for lat := bbox.MinLat; lat <= bbox.MaxLat; lat += GraticuleStep {
		y := r.mapper.Y(lat)
		dc.DrawLine(0, y, float64(w), y)
		dc.Stroke()
	}
}

func (r *Renderer) drawBoundaries(dc *gg.Context, overlay *Overlay) {
	dc.SetColor(boundaryColor)
	dc.SetLineWidth(3)
	dc.SetLineJoin(gg.LineJoinRound)
	for _, ring := range overlay.Rings {
		if len(ring) < 2 {
			continue
		}
		dc.NewSubPath()
		for _, pt := range ring {
			if len(pt) < 2 {
				continue
			}
			x, y := r.mapper.ToScreen(pt[0], pt[1])
			dc.LineTo(x, y)
		}
		dc.Stroke()
	}
}

func drawPlaceholder(dc *gg.Context, label string) {
	w, h := float64(dc.Width()), float64(dc.Height())
	dc.SetColor(color.NRGBA{R: 200, G: 0, B: 0, A: 180})
	dc.SetLineWidth(2)
	dc.DrawRectangle(4, 4, w-8, h-8)
	dc.Stroke()
	dc.DrawStringAnchored(label, w/2, h/2, 0.5, 0.5)
}

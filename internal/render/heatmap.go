package render

import (
	"fmt"
	"image/color"
	"io"

	"github.com/fogleman/gg"

	"lst-platform/internal/geo"
	"lst-platform/internal/models"
)

// DefaultCellSize is the side of the square painted per sample
const DefaultCellSize = 8

// Renderer draws every surface for one canvas geometry and colour scale.
// It holds no per-request state and is safe for concurrent use.
type Renderer struct {
	mapper   *geo.Mapper
	scale    *ColorScale
	cal      models.Calendar
	cellSize float64
}

// NewRenderer creates a renderer for the canvas described by mapper
func NewRenderer(mapper *geo.Mapper, scale *ColorScale, cal models.Calendar, cellSize int) *Renderer {
	if cellSize < 1 {
		cellSize = DefaultCellSize
	}
	return &Renderer{mapper: mapper, scale: scale, cal: cal, cellSize: float64(cellSize)}
}

// Scale returns the colour scale shared by the heatmap and legend
func (r *Renderer) Scale() *ColorScale {
	return r.scale
}

// HeatmapPNG clears the canvas and paints each sample as a cell whose
// top-left corner sits at the sample's projected position. A nil snapshot
// yields the cleared canvas.
func (r *Renderer) HeatmapPNG(w io.Writer, snapshot *models.DaySnapshot) error {
	width, height := r.mapper.Size()
	dc := gg.NewContext(width, height)
	dc.SetColor(color.Transparent)
	dc.Clear()

	if snapshot != nil {
		for _, s := range snapshot.Samples {
			x, y := r.mapper.ToScreen(s.Lon, s.Lat)
			dc.SetColor(r.scale.Color(s.LST))
			dc.DrawRectangle(x, y, r.cellSize, r.cellSize)
			dc.Fill()
		}
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode heatmap: %w", err)
	}
	return nil
}

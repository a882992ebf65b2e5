package render

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"lst-platform/internal/models"
)

// ErrNoData means a graph has no finite point to plot
var ErrNoData = errors.New("no data to plot")

// Graph layout, in pixels
const (
	DefaultGraphWidth = 960
	GraphHeight       = 180
	graphMarginTop    = 20
	graphMarginRight  = 30
	graphMarginBottom = 40
	graphMarginLeft   = 50
	graphTickEvery    = 10

	meanPadK  = 2.0
	pixelPadK = 1.0
)

var (
	meanLineColor    = drawing.ColorFromHex("4682b4")
	meanDotColor     = drawing.ColorFromHex("f88379")
	currentDayColor  = drawing.ColorRed
	pixelSeriesColor = drawing.ColorFromHex("ff4444")
)

// point is one finite (day, kelvin) pair
type point struct {
	day   int
	value float64
}

// DailyMeanSVG draws the mean LST of every loaded day. The current day's
// marker is red and enlarged; NaN means leave a gap in the line.
func (r *Renderer) DailyMeanSVG(w io.Writer, means []models.DailyMean, days, currentDay, width int) error {
	values := make([]*float64, days)
	for _, m := range means {
		if m.Day >= 1 && m.Day <= days {
			values[m.Day-1] = models.Float(m.MeanLST)
		}
	}

	lineStyle := chart.Style{
		StrokeColor: meanLineColor,
		StrokeWidth: 1.5,
		DotColor:    meanDotColor,
		DotWidth:    4,
	}
	return r.lineGraph(w, values, currentDay, width, meanPadK, lineStyle, 6)
}

// PixelSeriesSVG draws one probe location's time series. The graph is
// rebuilt from scratch on every call; null days leave gaps.
func (r *Renderer) PixelSeriesSVG(w io.Writer, series *models.ProbeTimeSeries, currentDay, width int) error {
	if series == nil {
		return ErrNoData
	}
	lineStyle := chart.Style{
		StrokeColor: pixelSeriesColor,
		StrokeWidth: 2,
		DotColor:    pixelSeriesColor,
		DotWidth:    3,
	}
	return r.lineGraph(w, series.Values, currentDay, width, pixelPadK, lineStyle, 5)
}

func (r *Renderer) lineGraph(w io.Writer, values []*float64, currentDay, width int, pad float64, lineStyle chart.Style, markerRadius float64) error {
	segments, lo, hi := splitSegments(values)
	if len(segments) == 0 {
		return ErrNoData
	}
	if width <= 0 {
		width = DefaultGraphWidth
	}

	graph := chart.Chart{
		Width:  width,
		Height: GraphHeight,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    graphMarginTop,
				Right:  graphMarginRight,
				Bottom: graphMarginBottom,
				Left:   graphMarginLeft,
			},
		},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: 1, Max: math.Max(2, float64(len(values)))},
			Ticks: r.dayTicks(len(values)),
		},
		YAxis: chart.YAxis{
			Name:           "Temperature (K)",
			Range:          &chart.ContinuousRange{Min: lo - pad, Max: hi + pad},
			ValueFormatter: func(v interface{}) string { return fmt.Sprintf("%.0f", v) },
		},
	}

	for _, seg := range segments {
		xs := make([]float64, len(seg))
		ys := make([]float64, len(seg))
		for i, p := range seg {
			xs[i] = float64(p.day)
			ys[i] = p.value
		}
		graph.Series = append(graph.Series, chart.ContinuousSeries{
			Style:   lineStyle,
			XValues: xs,
			YValues: ys,
		})
	}

	if currentDay >= 1 && currentDay <= len(values) && values[currentDay-1] != nil {
		graph.Series = append(graph.Series, chart.ContinuousSeries{
			Style: chart.Style{
				StrokeColor: drawing.ColorTransparent,
				DotColor:    currentDayColor,
				DotWidth:    markerRadius,
			},
			XValues: []float64{float64(currentDay)},
			YValues: []float64{*values[currentDay-1]},
		})
	}

	if err := graph.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("failed to render line graph: %w", err)
	}
	return nil
}

// dayTicks labels every tenth day starting at day 1 and always closes on
// the last day. go-chart fits the x range to the tick span, so the first
// and last ticks must sit on 1 and days; a one-day graph gets an unlabelled
// tick at 2 to keep the range non-empty.
func (r *Renderer) dayTicks(days int) []chart.Tick {
	last := days
	if last < 2 {
		last = 2
	}

	var ticks []chart.Tick
	for day := 1; day < last; day += graphTickEvery {
		ticks = append(ticks, chart.Tick{Value: float64(day), Label: r.cal.AxisLabel(day)})
	}
	// a regular tick this close to the end would overprint the final label
	if n := len(ticks); n > 1 && float64(last)-ticks[n-1].Value < graphTickEvery/2 {
		ticks = ticks[:n-1]
	}

	label := ""
	if last == days {
		label = r.cal.AxisLabel(days)
	}
	return append(ticks, chart.Tick{Value: float64(last), Label: label})
}

// splitSegments breaks values at nil or non-finite entries into runs of
// consecutive days, and returns the extent of the finite values.
func splitSegments(values []*float64) (segments [][]point, lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	var run []point
	for i, v := range values {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			if len(run) > 0 {
				segments = append(segments, run)
				run = nil
			}
			continue
		}
		run = append(run, point{day: i + 1, value: *v})
		lo = math.Min(lo, *v)
		hi = math.Max(hi, *v)
	}
	if len(run) > 0 {
		segments = append(segments, run)
	}
	return segments, lo, hi
}

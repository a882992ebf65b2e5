package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lst-platform/internal/geo"
	"lst-platform/internal/models"
)

// 750x350 over the continental box is exactly 10 px per degree
func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	scale, err := NewColorScale(DefaultMinK, DefaultMaxK)
	require.NoError(t, err)
	return NewRenderer(geo.NewMapper(geo.ContinentalUS, 750, 350), scale, models.Calendar{Year: 2024}, DefaultCellSize)
}

func rgb8(c color.Color) [4]uint8 {
	r, g, b, a := c.RGBA()
	return [4]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

func assertColorNear(t *testing.T, want, got color.Color, tol int) {
	t.Helper()
	w, g := rgb8(want), rgb8(got)
	for i := range w {
		assert.InDelta(t, int(w[i]), int(g[i]), float64(tol), "channel %d: want %v got %v", i, w, g)
	}
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestColorScale_Ends(t *testing.T) {
	scale, err := NewColorScale(250, 300)
	require.NoError(t, err)

	assertColorNear(t, color.RGBA{0xff, 0xff, 0xcc, 0xff}, scale.Color(250), 2)
	assertColorNear(t, color.RGBA{0x80, 0x00, 0x26, 0xff}, scale.Color(300), 2)

	// clamped outside the domain
	assert.Equal(t, rgb8(scale.Color(250)), rgb8(scale.Color(180)))
	assert.Equal(t, rgb8(scale.Color(300)), rgb8(scale.Color(345)))

	assert.Equal(t, color.Transparent, scale.Color(math.NaN()))
}

func TestColorScale_DarkensWithTemperature(t *testing.T) {
	scale, err := NewColorScale(250, 300)
	require.NoError(t, err)

	lum := func(c color.Color) float64 {
		r, g, b, _ := c.RGBA()
		return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
	}
	prev := math.Inf(1)
	for k := 250.0; k <= 300; k += 5 {
		l := lum(scale.Color(k))
		assert.Less(t, l, prev, "colour at %g K", k)
		prev = l
	}
}

func TestColorScale_InvalidDomain(t *testing.T) {
	_, err := NewColorScale(300, 250)
	assert.Error(t, err)
	_, err = NewColorScale(250, 250)
	assert.Error(t, err)
}

func TestNiceTicks(t *testing.T) {
	tests := []struct {
		lo, hi float64
		count  int
		want   []float64
	}{
		{250, 300, 5, []float64{250, 260, 270, 280, 290, 300}},
		{0, 1, 5, []float64{0, 0.2, 0.4, 0.6, 0.8, 1}},
		{273, 291, 4, []float64{275, 280, 285, 290}},
	}
	for _, tt := range tests {
		got := niceTicks(tt.lo, tt.hi, tt.count)
		require.Len(t, got, len(tt.want))
		for i := range got {
			assert.InDelta(t, tt.want[i], got[i], 1e-9)
		}
	}
	assert.Nil(t, niceTicks(1, 1, 5))
}

func TestHeatmapPNG_PaintsCells(t *testing.T) {
	r := newTestRenderer(t)
	snap := &models.DaySnapshot{Day: 1, Samples: []models.RasterSample{
		{Lon: -100, Lat: 40, LST: 300},
		{Lon: -130, Lat: 50, LST: 250},
	}}

	var buf bytes.Buffer
	require.NoError(t, r.HeatmapPNG(&buf, snap))
	img := decodePNG(t, buf.Bytes())

	assert.Equal(t, image.Rect(0, 0, 750, 350), img.Bounds())
	// cells extend right and down from the projected point
	assertColorNear(t, r.Scale().Color(300), img.At(403, 153), 2)
	assertColorNear(t, r.Scale().Color(250), img.At(103, 53), 2)
	assert.Equal(t, uint8(0), rgb8(img.At(399, 149))[3], "outside the cell stays clear")
	assert.Equal(t, uint8(0), rgb8(img.At(600, 300))[3])
}

func TestHeatmapPNG_NilSnapshotIsBlank(t *testing.T) {
	r := newTestRenderer(t)

	var buf bytes.Buffer
	require.NoError(t, r.HeatmapPNG(&buf, nil))
	img := decodePNG(t, buf.Bytes())

	for _, pt := range []image.Point{{0, 0}, {375, 175}, {749, 349}} {
		assert.Equal(t, uint8(0), rgb8(img.At(pt.X, pt.Y))[3])
	}
}

func TestLegendPNG(t *testing.T) {
	r := newTestRenderer(t)

	var buf bytes.Buffer
	require.NoError(t, r.LegendPNG(&buf))
	img := decodePNG(t, buf.Bytes())

	assert.Equal(t, LegendBarWidth+2*legendMarginX, img.Bounds().Dx())
	assertColorNear(t, r.Scale().Color(250), img.At(legendMarginX, LegendBarHeight/2), 3)
	assertColorNear(t, r.Scale().Color(300), img.At(legendMarginX+LegendBarWidth-1, LegendBarHeight/2), 3)
	assertColorNear(t, r.Scale().Color(275), img.At(legendMarginX+LegendBarWidth/2, LegendBarHeight/2), 6)
}

func TestTickLabel(t *testing.T) {
	assert.Equal(t, "260 K", TickLabel(260))
	assert.Equal(t, "300 K", TickLabel(299.6))
}

const squareGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "box"},
     "geometry": {"type": "Polygon", "coordinates": [[[-120, 30], [-100, 30], [-100, 40], [-120, 40], [-120, 30]]]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[-90, 25], [-80, 25], [-80, 30], [-90, 25]]]]}}
  ]
}`

func TestParseOverlay(t *testing.T) {
	ov, err := ParseOverlay([]byte(squareGeoJSON))
	require.NoError(t, err)
	assert.Len(t, ov.Rings, 2)
	assert.Len(t, ov.Rings[0], 5)

	_, err = ParseOverlay([]byte(`{"type":"FeatureCollection","features":[]}`))
	assert.Error(t, err)
	_, err = ParseOverlay([]byte(`not json`))
	assert.Error(t, err)

	_, err = LoadOverlay("does-not-exist.geo.json")
	assert.Error(t, err)
}

func TestOverlayPNG_DrawsBoundariesAndGraticule(t *testing.T) {
	r := newTestRenderer(t)
	ov, err := ParseOverlay([]byte(squareGeoJSON))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.OverlayPNG(&buf, ov))
	img := decodePNG(t, buf.Bytes())
	assert.Equal(t, image.Rect(0, 0, 750, 350), img.Bounds())

	// bottom edge of the box, lat 30 -> y 250
	edge := rgb8(img.At(300, 250))
	assert.Equal(t, uint8(255), edge[3])
	assert.Less(t, edge[0], uint8(40))

	// graticule at lon -135 -> x 50, away from any boundary
	grid := rgb8(img.At(50, 20))
	assert.Greater(t, grid[3], uint8(0))
	assert.Less(t, grid[3], uint8(255))

	// between graticule lines nothing is drawn
	assert.Equal(t, uint8(0), rgb8(img.At(25, 25))[3])
}

func TestOverlayPNG_PlaceholderWhenMissing(t *testing.T) {
	r := newTestRenderer(t)

	var buf bytes.Buffer
	require.NoError(t, r.OverlayPNG(&buf, nil))
	img := decodePNG(t, buf.Bytes())

	marker := rgb8(img.At(4, 100))
	assert.Greater(t, marker[3], uint8(0), "placeholder border is drawn")
	assert.Greater(t, marker[0], marker[1])
}

func ptr(v float64) *float64 { return &v }

func TestSplitSegments(t *testing.T) {
	values := []*float64{ptr(280), ptr(281), nil, ptr(279), nil, nil, ptr(math.NaN()), ptr(285)}

	segs, lo, hi := splitSegments(values)
	require.Len(t, segs, 3)
	assert.Equal(t, []point{{1, 280}, {2, 281}}, segs[0])
	assert.Equal(t, []point{{4, 279}}, segs[1])
	assert.Equal(t, []point{{8, 285}}, segs[2])
	assert.Equal(t, 279.0, lo)
	assert.Equal(t, 285.0, hi)

	segs, _, _ = splitSegments([]*float64{nil, nil})
	assert.Empty(t, segs)
}

func TestDailyMeanSVG(t *testing.T) {
	r := newTestRenderer(t)
	means := []models.DailyMean{
		{Day: 1, MeanLST: 271.2, SampleCount: 10},
		{Day: 2, MeanLST: 272.9, SampleCount: 10},
		{Day: 4, MeanLST: math.NaN()},
		{Day: 5, MeanLST: 274.1, SampleCount: 10},
	}

	var buf bytes.Buffer
	require.NoError(t, r.DailyMeanSVG(&buf, means, 12, 2, 600))
	svg := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(svg), "<svg"))
	assert.Contains(t, svg, "January 1")
	assert.Contains(t, svg, "January 12")
	assert.NotContains(t, svg, "January 11", "tick next to the last day is dropped")
}

func TestDayTicks_SpanFirstToLastDay(t *testing.T) {
	r := newTestRenderer(t)

	ticks := r.dayTicks(129)
	require.NotEmpty(t, ticks)
	assert.Equal(t, 1.0, ticks[0].Value)
	assert.Equal(t, 129.0, ticks[len(ticks)-1].Value)
	assert.Equal(t, "May 8", ticks[len(ticks)-1].Label)
	assert.Equal(t, 121.0, ticks[len(ticks)-2].Value)

	ticks = r.dayTicks(5)
	require.Len(t, ticks, 2)
	assert.Equal(t, []float64{1, 5}, []float64{ticks[0].Value, ticks[1].Value})

	ticks = r.dayTicks(1)
	require.Len(t, ticks, 2)
	assert.Equal(t, 2.0, ticks[1].Value)
	assert.Empty(t, ticks[1].Label)
}

func TestDailyMeanSVG_ShortAndLongYears(t *testing.T) {
	r := newTestRenderer(t)

	for _, days := range []int{1, 3, 10} {
		means := make([]models.DailyMean, days)
		for i := range means {
			means[i] = models.DailyMean{Day: i + 1, MeanLST: 270 + float64(i), SampleCount: 4}
		}
		var buf bytes.Buffer
		require.NoError(t, r.DailyMeanSVG(&buf, means, days, 1, 600), "days=%d", days)
		assert.Contains(t, buf.String(), "<svg")
	}

	means := make([]models.DailyMean, 129)
	for i := range means {
		means[i] = models.DailyMean{Day: i + 1, MeanLST: 280, SampleCount: 4}
	}
	var buf bytes.Buffer
	require.NoError(t, r.DailyMeanSVG(&buf, means, 129, 129, 600))
	assert.Contains(t, buf.String(), "May 8", "last day is on the axis")
}

func TestPixelSeriesSVG(t *testing.T) {
	r := newTestRenderer(t)
	series := &models.ProbeTimeSeries{
		Location: models.ProbeLocation{Lon: -100, Lat: 40},
		Values:   []*float64{ptr(280), nil, ptr(282.5)},
	}

	var buf bytes.Buffer
	require.NoError(t, r.PixelSeriesSVG(&buf, series, 3, 0))
	assert.Contains(t, buf.String(), "<svg")
	assert.Contains(t, buf.String(), "January 3")

	buf.Reset()
	single := &models.ProbeTimeSeries{Values: []*float64{ptr(281)}}
	require.NoError(t, r.PixelSeriesSVG(&buf, single, 1, 0))
	assert.Contains(t, buf.String(), "January 1")
}

func TestPixelSeriesSVG_NoData(t *testing.T) {
	r := newTestRenderer(t)

	err := r.PixelSeriesSVG(io.Discard, &models.ProbeTimeSeries{Values: []*float64{nil, nil}}, 1, 0)
	assert.ErrorIs(t, err, ErrNoData)
	assert.ErrorIs(t, r.PixelSeriesSVG(io.Discard, nil, 1, 0), ErrNoData)
	assert.ErrorIs(t, r.DailyMeanSVG(io.Discard, nil, 5, 1, 0), ErrNoData)
}

func TestCache(t *testing.T) {
	cache, err := NewCache(2)
	require.NoError(t, err)

	draws := 0
	draw := func(s string) func(io.Writer) error {
		return func(w io.Writer) error {
			draws++
			_, err := io.WriteString(w, s)
			return err
		}
	}

	data, hit, err := cache.GetOrRender("a", draw("A"))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "A", string(data))

	data, hit, err = cache.GetOrRender("a", draw("other"))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "A", string(data))
	assert.Equal(t, 1, draws)

	_, _, err = cache.GetOrRender("b", draw("B"))
	require.NoError(t, err)
	_, _, err = cache.GetOrRender("c", draw("C"))
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len(), "bounded")

	_, hit, _ = cache.GetOrRender("a", draw("A"))
	assert.False(t, hit, "least recently used entry evicted")

	boom := errors.New("boom")
	_, _, err = cache.GetOrRender("d", func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
	_, hit, err = cache.GetOrRender("d", draw("D"))
	require.NoError(t, err)
	assert.False(t, hit, "errors are not cached")

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}

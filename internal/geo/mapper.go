// Package geo maps between geographic and canvas coordinates and answers
// nearest-sample queries against a day's raster.
package geo

// Continental-US bounding box used for every canvas.
const (
	MinLon = -140.0
	MaxLon = -65.0
	MinLat = 20.0
	MaxLat = 55.0
)

// BoundingBox is a lon/lat rectangle
type BoundingBox struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// ContinentalUS is the fixed domain of the map scales
var ContinentalUS = BoundingBox{MinLon: MinLon, MaxLon: MaxLon, MinLat: MinLat, MaxLat: MaxLat}

// Contains reports whether lon/lat lies inside the box, edges included
func (b BoundingBox) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// LinearScale maps [D0,D1] onto [R0,R1] without clamping
type LinearScale struct {
	D0, D1 float64
	R0, R1 float64
}

// Apply maps a domain value into the range
func (s LinearScale) Apply(v float64) float64 {
	return s.R0 + (v-s.D0)*(s.R1-s.R0)/(s.D1-s.D0)
}

// Invert maps a range value back into the domain
func (s LinearScale) Invert(v float64) float64 {
	return s.D0 + (v-s.R0)*(s.D1-s.D0)/(s.R1-s.R0)
}

// Mapper converts between lon/lat and canvas pixels. Y is inverted since
// screen y grows downward while latitude grows upward.
type Mapper struct {
	bbox   BoundingBox
	width  float64
	height float64
	lonToX LinearScale
	latToY LinearScale
}

// NewMapper builds the two scales for a width x height canvas over bbox
func NewMapper(bbox BoundingBox, width, height int) *Mapper {
	w, h := float64(width), float64(height)
	return &Mapper{
		bbox:   bbox,
		width:  w,
		height: h,
		lonToX: LinearScale{D0: bbox.MinLon, D1: bbox.MaxLon, R0: 0, R1: w},
		latToY: LinearScale{D0: bbox.MinLat, D1: bbox.MaxLat, R0: h, R1: 0},
	}
}

// ToScreen maps lon/lat to canvas x/y
func (m *Mapper) ToScreen(lon, lat float64) (x, y float64) {
	return m.lonToX.Apply(lon), m.latToY.Apply(lat)
}

// ToGeo maps canvas x/y to lon/lat
func (m *Mapper) ToGeo(x, y float64) (lon, lat float64) {
	return m.lonToX.Invert(x), m.latToY.Invert(y)
}

// X maps a longitude alone
func (m *Mapper) X(lon float64) float64 { return m.lonToX.Apply(lon) }

// Y maps a latitude alone
func (m *Mapper) Y(lat float64) float64 { return m.latToY.Apply(lat) }

// Contains reports whether a cursor position lies on the canvas
func (m *Mapper) Contains(x, y float64) bool {
	return x >= 0 && x <= m.width && y >= 0 && y <= m.height
}

// Size returns the canvas dimensions in pixels
func (m *Mapper) Size() (width, height int) {
	return int(m.width), int(m.height)
}

// BoundingBox returns the geographic domain
func (m *Mapper) BoundingBox() BoundingBox {
	return m.bbox
}

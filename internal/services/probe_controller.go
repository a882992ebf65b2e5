package services

import (
	"errors"
	"fmt"
	"sync"

	"lst-platform/internal/geo"
	"lst-platform/internal/models"
)

var (
	// ErrDayOutOfRange rejects a day outside [1, N]; nothing is redrawn.
	ErrDayOutOfRange = errors.New("day out of range")
	// ErrOutsideCanvas rejects a cursor position that is not on the canvas.
	ErrOutsideCanvas = errors.New("cursor outside canvas")
)

// DefaultPanelTitle is shown above the per-pixel graph when nothing is probed
const DefaultPanelTitle = "Hover over the map to inspect a pixel"

// ProbeState is the hover/lock state of the pixel probe
type ProbeState int

const (
	// Hovering follows the mouse
	Hovering ProbeState = iota
	// Locked is pinned to the last click until a click lands outside the canvas
	Locked
)

func (s ProbeState) String() string {
	if s == Locked {
		return "locked"
	}
	return "hovering"
}

// MarshalText encodes the state by name
func (s ProbeState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names written by MarshalText
func (s *ProbeState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "hovering":
		*s = Hovering
	case "locked":
		*s = Locked
	default:
		return &models.ValidationError{Field: "state", Value: string(text), Message: "must be hovering or locked"}
	}
	return nil
}

// Surfaces receives the redraw decisions of a ProbeController
type Surfaces interface {
	ShowDate(day int, label string)
	// SetDayControls moves both the slider and the dropdown to day
	SetDayControls(day int)
	// DrawHeatmap paints day's raster; snapshot is nil when the day did not load
	DrawHeatmap(day int, snapshot *models.DaySnapshot)
	HighlightDailyMean(day int)
	// DrawPixelSeries replaces the per-pixel graph
	DrawPixelSeries(series *models.ProbeTimeSeries, currentDay int)
	ClearPixelSeries()
	SetPanelTitle(title string)
	ShowTooltip(text string, x, y float64)
	HideTooltip()
}

// ProbeController owns the inspected location and keeps every surface
// consistent with it and with the displayed day. Methods are safe for
// concurrent use; each event runs to completion under one lock.
type ProbeController struct {
	mu       sync.Mutex
	store    *DataStore
	probes   *ProbeService
	mapper   *geo.Mapper
	surfaces Surfaces

	state    ProbeState
	location *models.ProbeLocation
	series   *models.ProbeTimeSeries
	day      int

	// where the tooltip was last shown; cleared when the cursor leaves
	tooltipShown     bool
	cursorX, cursorY float64
}

// NewProbeController creates a controller in the Hovering state with no location
func NewProbeController(store *DataStore, probes *ProbeService, mapper *geo.Mapper, surfaces Surfaces) *ProbeController {
	return &ProbeController{
		store:    store,
		probes:   probes,
		mapper:   mapper,
		surfaces: surfaces,
		state:    Hovering,
		day:      1,
	}
}

// Init paints the initial day and the empty probe panel
func (c *ProbeController) Init(day int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.store.InRange(day) {
		return fmt.Errorf("%w: %d", ErrDayOutOfRange, day)
	}
	c.surfaces.SetPanelTitle(DefaultPanelTitle)
	c.surfaces.ClearPixelSeries()
	c.setDay(day)
	return nil
}

// OnMouseMove probes the cursor position while Hovering; it is ignored while Locked
func (c *ProbeController) OnMouseMove(x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Hovering {
		return nil
	}
	if !c.mapper.Contains(x, y) {
		return ErrOutsideCanvas
	}

	c.probe(x, y, "hover")
	c.surfaces.SetPanelTitle("Pixel time series at " + c.location.String())
	return nil
}

// OnMouseLeaveCanvas hides the tooltip; while Hovering it also drops the probe
func (c *ProbeController) OnMouseLeaveCanvas() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.surfaces.HideTooltip()
	c.tooltipShown = false
	if c.state == Hovering {
		c.reset()
	}
}

// OnClick locks the probe at the clicked point, relocking if already Locked
func (c *ProbeController) OnClick(x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mapper.Contains(x, y) {
		return ErrOutsideCanvas
	}

	c.state = Locked
	c.probe(x, y, "click")
	c.surfaces.SetPanelTitle("Pixel time series at " + c.location.String() + " (locked)")
	return nil
}

// OnClickOutsideCanvas unlocks a Locked probe and clears the panel
func (c *ProbeController) OnClickOutsideCanvas() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Locked {
		return
	}
	c.state = Hovering
	c.reset()
}

// OnDaySliderChange handles input from the day slider
func (c *ProbeController) OnDaySliderChange(day int) error {
	return c.changeDay(day)
}

// OnDayDropdownChange handles input from the day dropdown
func (c *ProbeController) OnDayDropdownChange(day int) error {
	return c.changeDay(day)
}

func (c *ProbeController) changeDay(day int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.store.InRange(day) {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrDayOutOfRange, day, c.store.Days())
	}
	c.setDay(day)
	return nil
}

// setDay redraws everything tied to the displayed day. Caller holds mu.
func (c *ProbeController) setDay(day int) {
	c.day = day
	c.surfaces.SetDayControls(day)
	c.surfaces.ShowDate(day, c.store.Calendar().LongLabel(day))

	snap, _ := c.store.Snapshot(day)
	c.surfaces.DrawHeatmap(day, snap)
	c.surfaces.HighlightDailyMean(day)

	if c.location != nil {
		c.surfaces.DrawPixelSeries(c.series, day)
		if c.tooltipShown {
			c.surfaces.ShowTooltip(c.tooltip(), c.cursorX, c.cursorY)
		}
	}
}

// probe rebuilds the series for a cursor position and redraws. Caller holds mu.
func (c *ProbeController) probe(x, y float64, trigger string) {
	lon, lat := c.mapper.ToGeo(x, y)
	loc := models.ProbeLocation{Lon: lon, Lat: lat}

	c.location = &loc
	c.series = c.probes.TimeSeries(loc, trigger)

	c.surfaces.DrawPixelSeries(c.series, c.day)
	c.showTooltip(x, y)
}

func (c *ProbeController) showTooltip(x, y float64) {
	c.tooltipShown, c.cursorX, c.cursorY = true, x, y
	c.surfaces.ShowTooltip(c.tooltip(), x, y)
}

func (c *ProbeController) tooltip() string {
	text := fmt.Sprintf("Lon: %.2f, Lat: %.2f", c.location.Lon, c.location.Lat)
	if v, ok := c.series.At(c.day); ok {
		return text + fmt.Sprintf(", LST: %.1f K", v)
	}
	return text + ", LST: no data"
}

// reset drops the probe and empties the panel. Caller holds mu.
func (c *ProbeController) reset() {
	c.location = nil
	c.series = nil
	c.surfaces.ClearPixelSeries()
	c.surfaces.SetPanelTitle(DefaultPanelTitle)
}

// State returns the current hover/lock state
func (c *ProbeController) State() ProbeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Location returns the probed location, if any
func (c *ProbeController) Location() (models.ProbeLocation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.location == nil {
		return models.ProbeLocation{}, false
	}
	return *c.location, true
}

// Series returns the active time series, or nil
func (c *ProbeController) Series() *models.ProbeTimeSeries {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.series
}

// Day returns the displayed day
func (c *ProbeController) Day() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day
}

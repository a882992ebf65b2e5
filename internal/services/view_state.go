package services

import (
	"sync"

	"lst-platform/internal/models"
)

// Tooltip is the hover label over the canvas
type Tooltip struct {
	Visible bool    `json:"visible"`
	Text    string  `json:"text,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// ViewSnapshot is what a browser needs to repaint its page
type ViewSnapshot struct {
	SessionID      string                  `json:"session_id"`
	State          ProbeState              `json:"state"`
	Location       *models.ProbeLocation   `json:"location,omitempty"`
	Day            int                     `json:"day"`
	DateLabel      string                  `json:"date_label"`
	SliderDay      int                     `json:"slider_day"`
	DropdownDay    int                     `json:"dropdown_day"`
	HeatmapDay     int                     `json:"heatmap_day"`
	HeatmapLoaded  bool                    `json:"heatmap_loaded"`
	HighlightedDay int                     `json:"highlighted_mean_day"`
	PanelTitle     string                  `json:"panel_title"`
	Tooltip        Tooltip                 `json:"tooltip"`
	PixelSeries    *models.ProbeTimeSeries `json:"pixel_series"`
	PixelSeriesDay int                     `json:"pixel_series_day,omitempty"`
	Revision       uint64                  `json:"revision"`
}

// ViewState is a Surfaces that remembers the latest draw of every surface,
// so a remote page can be brought up to date by one snapshot.
type ViewState struct {
	mu   sync.Mutex
	view ViewSnapshot
}

// NewViewState returns an empty view
func NewViewState() *ViewState {
	return &ViewState{}
}

func (v *ViewState) update(fn func(*ViewSnapshot)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(&v.view)
	v.view.Revision++
}

func (v *ViewState) ShowDate(day int, label string) {
	v.update(func(s *ViewSnapshot) {
		s.Day = day
		s.DateLabel = label
	})
}

func (v *ViewState) SetDayControls(day int) {
	v.update(func(s *ViewSnapshot) {
		s.SliderDay = day
		s.DropdownDay = day
	})
}

func (v *ViewState) DrawHeatmap(day int, snapshot *models.DaySnapshot) {
	v.update(func(s *ViewSnapshot) {
		s.HeatmapDay = day
		s.HeatmapLoaded = snapshot != nil
	})
}

func (v *ViewState) HighlightDailyMean(day int) {
	v.update(func(s *ViewSnapshot) { s.HighlightedDay = day })
}

func (v *ViewState) DrawPixelSeries(series *models.ProbeTimeSeries, currentDay int) {
	v.update(func(s *ViewSnapshot) {
		s.PixelSeries = series
		s.PixelSeriesDay = currentDay
	})
}

func (v *ViewState) ClearPixelSeries() {
	v.update(func(s *ViewSnapshot) {
		s.PixelSeries = nil
		s.PixelSeriesDay = 0
	})
}

func (v *ViewState) SetPanelTitle(title string) {
	v.update(func(s *ViewSnapshot) { s.PanelTitle = title })
}

func (v *ViewState) ShowTooltip(text string, x, y float64) {
	v.update(func(s *ViewSnapshot) { s.Tooltip = Tooltip{Visible: true, Text: text, X: x, Y: y} })
}

func (v *ViewState) HideTooltip() {
	v.update(func(s *ViewSnapshot) { s.Tooltip = Tooltip{} })
}

// Snapshot copies the current view
func (v *ViewState) Snapshot() ViewSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.view
}

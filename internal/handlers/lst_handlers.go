package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"lst-platform/internal/models"
	"lst-platform/internal/render"
	"lst-platform/internal/services"
	"lst-platform/pkg/logging"
	"lst-platform/pkg/metrics"
)

// LSTHandler serves the loaded rasters, their means and the drawn map surfaces
type LSTHandler struct {
	responder
	store   *services.DataStore
	probes  *services.ProbeService
	renders *services.RenderService
}

// NewLSTHandler creates a new LST handler
func NewLSTHandler(
	store *services.DataStore,
	probes *services.ProbeService,
	renders *services.RenderService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *LSTHandler {
	return &LSTHandler{
		responder: responder{logger: logger, metrics: metricsCollector},
		store:     store,
		probes:    probes,
		renders:   renders,
	}
}

// DayInfo describes one day of the configured range
type DayInfo struct {
	Day    int    `json:"day"`
	Key    string `json:"key"`
	Label  string `json:"label"`
	Loaded bool   `json:"loaded"`
}

// DaysResponse lists the day range for the slider and dropdown
type DaysResponse struct {
	Year       int       `json:"year"`
	Days       int       `json:"days"`
	LoadedDays int       `json:"loaded_days"`
	Entries    []DayInfo `json:"entries"`
}

// GetDays handles GET /api/days
func (h *LSTHandler) GetDays(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/days"
	defer h.observe(endpoint)()

	cal := h.store.Calendar()
	loaded := make(map[int]bool)
	for _, day := range h.store.LoadedDays() {
		loaded[day] = true
	}

	response := DaysResponse{
		Year:       cal.Year,
		Days:       h.store.Days(),
		LoadedDays: len(loaded),
		Entries:    make([]DayInfo, 0, h.store.Days()),
	}
	for day := 1; day <= h.store.Days(); day++ {
		response.Entries = append(response.Entries, DayInfo{
			Day:    day,
			Key:    cal.Key(day),
			Label:  cal.LongLabel(day),
			Loaded: loaded[day],
		})
	}

	h.sendJSON(w, r, endpoint, response, http.StatusOK)
}

// GetDailyMeans handles GET /api/daily-means, in the daily_mean_LST_US.json layout
func (h *LSTHandler) GetDailyMeans(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/daily-means"
	defer h.observe(endpoint)()

	if !h.store.Loaded() {
		h.sendNotReady(w, r, endpoint)
		return
	}
	w.Header().Set("Content-Disposition", `inline; filename="daily_mean_LST_US.json"`)
	h.sendJSON(w, r, endpoint, h.store.DailyMeanRecords(), http.StatusOK)
}

// GetHeatmap handles GET /api/days/{day}/heatmap.png
func (h *LSTHandler) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/days/{day}/heatmap.png"
	defer h.observe(endpoint)()

	day, err := strconv.Atoi(mux.Vars(r)["day"])
	if err != nil {
		h.sendError(w, r, endpoint, "day must be an integer", http.StatusBadRequest)
		return
	}

	data, err := h.renders.Heatmap(r.Context(), day)
	switch {
	case errors.Is(err, services.ErrNotReady):
		h.sendNotReady(w, r, endpoint)
	case errors.Is(err, services.ErrDayOutOfRange):
		h.sendError(w, r, endpoint, err.Error(), http.StatusNotFound)
	case err != nil:
		h.sendInternalError(w, r, endpoint, "[API_HEATMAP_ERROR]", "failed to render heatmap", err)
	default:
		h.sendBytes(w, r, endpoint, "image/png", data)
	}
}

// GetLegend handles GET /api/legend.png
func (h *LSTHandler) GetLegend(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/legend.png"
	defer h.observe(endpoint)()

	data, err := h.renders.Legend(r.Context())
	if err != nil {
		h.sendInternalError(w, r, endpoint, "[API_LEGEND_ERROR]", "failed to render legend", err)
		return
	}
	h.sendBytes(w, r, endpoint, "image/png", data)
}

// GetOverlay handles GET /api/overlay.png
func (h *LSTHandler) GetOverlay(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/overlay.png"
	defer h.observe(endpoint)()

	data, err := h.renders.Overlay(r.Context())
	if err != nil {
		h.sendInternalError(w, r, endpoint, "[API_OVERLAY_ERROR]", "failed to render overlay", err)
		return
	}
	h.sendBytes(w, r, endpoint, "image/png", data)
}

// GetDailyMeanGraph handles GET /api/daily-means.svg?day=&width=
func (h *LSTHandler) GetDailyMeanGraph(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/daily-means.svg"
	defer h.observe(endpoint)()

	day, ok := intParam(r, "day", 1)
	if !ok {
		h.sendError(w, r, endpoint, "day must be an integer", http.StatusBadRequest)
		return
	}
	width, ok := intParam(r, "width", render.DefaultGraphWidth)
	if !ok || width < 100 || width > 4000 {
		h.sendError(w, r, endpoint, "width must be an integer between 100 and 4000", http.StatusBadRequest)
		return
	}

	data, err := h.renders.DailyMeans(r.Context(), day, width)
	switch {
	case errors.Is(err, services.ErrNotReady):
		h.sendNotReady(w, r, endpoint)
	case errors.Is(err, services.ErrDayOutOfRange):
		h.sendError(w, r, endpoint, err.Error(), http.StatusBadRequest)
	case errors.Is(err, render.ErrNoData):
		h.sendNoContent(w, r, endpoint)
	case err != nil:
		h.sendInternalError(w, r, endpoint, "[API_MEAN_GRAPH_ERROR]", "failed to render daily mean graph", err)
	default:
		h.sendBytes(w, r, endpoint, "image/svg+xml", data)
	}
}

// GetProbe handles GET /api/probe?lon=&lat=, a stateless time series lookup
func (h *LSTHandler) GetProbe(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/probe"
	defer h.observe(endpoint)()

	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if errLon != nil || errLat != nil || math.IsNaN(lon) || math.IsNaN(lat) ||
		math.Abs(lon) > 180 || math.Abs(lat) > 90 {
		h.sendError(w, r, endpoint, "lon and lat must be numbers within [-180, 180] and [-90, 90]", http.StatusBadRequest)
		return
	}

	if !h.store.Loaded() {
		h.sendNotReady(w, r, endpoint)
		return
	}
	series := h.probes.TimeSeries(models.ProbeLocation{Lon: lon, Lat: lat}, "api")
	h.sendJSON(w, r, endpoint, series, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *LSTHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(r.Context(), "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, r, "/health", status, http.StatusOK)
}

// Ready handles GET /ready; the service is ready once every day has settled
func (h *LSTHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.store.Loaded() {
		h.sendNotReady(w, r, "/ready")
		return
	}
	h.sendJSON(w, r, "/ready", map[string]interface{}{
		"status":      "ready",
		"loaded_days": len(h.store.LoadedDays()),
		"days":        h.store.Days(),
	}, http.StatusOK)
}

// RegisterRoutes registers all LST API routes
func (h *LSTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/days", h.GetDays).Methods("GET")
	router.HandleFunc("/api/days/{day}/heatmap.png", h.GetHeatmap).Methods("GET")
	router.HandleFunc("/api/daily-means", h.GetDailyMeans).Methods("GET")
	router.HandleFunc("/api/daily-means.svg", h.GetDailyMeanGraph).Methods("GET")
	router.HandleFunc("/api/legend.png", h.GetLegend).Methods("GET")
	router.HandleFunc("/api/overlay.png", h.GetOverlay).Methods("GET")
	router.HandleFunc("/api/probe", h.GetProbe).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/ready", h.Ready).Methods("GET")
}

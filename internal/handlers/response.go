package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"lst-platform/internal/services"
	"lst-platform/pkg/logging"
	"lst-platform/pkg/metrics"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// responder carries the logging and metrics every handler shares
type responder struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// observe starts timing endpoint; call the result when the handler returns
func (h *responder) observe(endpoint string) func() {
	startTime := time.Now()
	return func() {
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}
}

// sendJSON sends a JSON response
func (h *responder) sendJSON(w http.ResponseWriter, r *http.Request, endpoint string, data interface{}, statusCode int) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendBytes sends an already encoded body such as a PNG or SVG
func (h *responder) sendBytes(w http.ResponseWriter, r *http.Request, endpoint, contentType string, body []byte) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// sendNoContent answers 204
func (h *responder) sendNoContent(w http.ResponseWriter, r *http.Request, endpoint string) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, "204")
	w.WriteHeader(http.StatusNoContent)
}

// sendError sends an error response
func (h *responder) sendError(w http.ResponseWriter, r *http.Request, endpoint, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}
	h.sendJSON(w, r, endpoint, response, statusCode)
}

// sendNotReady answers 503 while the day snapshots are still loading
func (h *responder) sendNotReady(w http.ResponseWriter, r *http.Request, endpoint string) {
	w.Header().Set("Retry-After", "5")
	h.sendError(w, r, endpoint, services.ErrNotReady.Error(), http.StatusServiceUnavailable)
}

// sendInternalError logs err and answers 500 without leaking it
func (h *responder) sendInternalError(w http.ResponseWriter, r *http.Request, endpoint, tag, message string, err error) {
	h.logger.Error(r.Context(), tag+" "+message, logging.Fields{"endpoint": endpoint}, err)
	h.metrics.RecordAPIError("internal_error", endpoint)
	h.sendError(w, r, endpoint, message, http.StatusInternalServerError)
}

// intParam parses an optional integer query parameter
func intParam(r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"lst-platform/internal/render"
	"lst-platform/internal/repository"
	"lst-platform/internal/services"
	"lst-platform/pkg/logging"
	"lst-platform/pkg/metrics"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsReadLimit    = 4096
)

// SessionHandler exposes probe sessions over HTTP and websocket
type SessionHandler struct {
	responder
	sessions *services.SessionService
	renders  *services.RenderService
	upgrader websocket.Upgrader
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	sessions *services.SessionService,
	renders *services.RenderService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *SessionHandler {
	return &SessionHandler{
		responder: responder{logger: logger, metrics: metricsCollector},
		sessions:  sessions,
		renders:   renders,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// EventReply is one websocket answer: the view after the event, plus
// the reason when the event was rejected
type EventReply struct {
	View  services.ViewSnapshot `json:"view"`
	Error string                `json:"error,omitempty"`
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/sessions"
	defer h.observe(endpoint)()

	sess, err := h.sessions.Create(r.Context())
	if errors.Is(err, services.ErrNotReady) {
		h.sendNotReady(w, r, endpoint)
		return
	}
	if err != nil {
		h.sendInternalError(w, r, endpoint, "[API_SESSION_CREATE_ERROR]", "failed to create session", err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+sess.ID)
	h.sendJSON(w, r, endpoint, sess.Snapshot(), http.StatusCreated)
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/sessions/{id}"
	defer h.observe(endpoint)()

	sess, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		h.sendSessionError(w, r, endpoint, err)
		return
	}
	h.sendJSON(w, r, endpoint, sess.Snapshot(), http.StatusOK)
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/sessions/{id}"
	defer h.observe(endpoint)()

	if err := h.sessions.Delete(mux.Vars(r)["id"]); err != nil {
		h.sendSessionError(w, r, endpoint, err)
		return
	}
	h.sendNoContent(w, r, endpoint)
}

// PostEvent handles POST /api/sessions/{id}/events
func (h *SessionHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/sessions/{id}/events"
	defer h.observe(endpoint)()

	var ev services.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, wsReadLimit)).Decode(&ev); err != nil {
		h.sendError(w, r, endpoint, "invalid event body", http.StatusBadRequest)
		return
	}

	view, err := h.sessions.Dispatch(r.Context(), mux.Vars(r)["id"], ev)
	if err != nil {
		h.sendSessionError(w, r, endpoint, err)
		return
	}
	h.sendJSON(w, r, endpoint, view, http.StatusOK)
}

// GetPixelGraph handles GET /api/sessions/{id}/pixel.svg?width=.
// Answers 204 while nothing is probed or the probe has no data.
func (h *SessionHandler) GetPixelGraph(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/sessions/{id}/pixel.svg"
	defer h.observe(endpoint)()

	width, ok := intParam(r, "width", render.DefaultGraphWidth)
	if !ok || width < 100 || width > 4000 {
		h.sendError(w, r, endpoint, "width must be an integer between 100 and 4000", http.StatusBadRequest)
		return
	}
	sess, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		h.sendSessionError(w, r, endpoint, err)
		return
	}

	data, err := h.renders.PixelSeries(r.Context(), sess.Controller.Series(), sess.Controller.Day(), width)
	switch {
	case errors.Is(err, render.ErrNoData):
		h.sendNoContent(w, r, endpoint)
	case err != nil:
		h.sendInternalError(w, r, endpoint, "[API_PIXEL_GRAPH_ERROR]", "failed to render pixel graph", err)
	default:
		h.sendBytes(w, r, endpoint, "image/svg+xml", data)
	}
}

// Stream handles GET /api/sessions/{id}/ws. Each text frame carries one
// Event; each reply is an EventReply. The first frame sent is the
// current view.
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/sessions/{id}/ws"
	ctx := logging.WithSessionID(r.Context(), mux.Vars(r)["id"])

	sess, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		h.sendSessionError(w, r, endpoint, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client
		h.metrics.RecordAPIError("upgrade_failed", endpoint)
		return
	}
	defer conn.Close()
	h.metrics.RecordAPIRequest(endpoint, r.Method, "101")
	conn.SetReadLimit(wsReadLimit)

	h.logger.Info(ctx, "[SESSION_STREAM_OPEN] Probe stream connected", logging.Fields{
		"remote_addr": r.RemoteAddr,
	})

	if err := h.write(conn, EventReply{View: sess.Snapshot()}); err != nil {
		return
	}

	for {
		var ev services.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn(ctx, "[SESSION_STREAM_ERROR] Probe stream read failed", logging.Fields{
					"error": err.Error(),
				})
			}
			break
		}

		view, err := h.sessions.Dispatch(ctx, sess.ID, ev)
		reply := EventReply{View: view}
		if err != nil {
			if !services.IsRejected(err) {
				// session expired or was deleted underneath the stream
				h.write(conn, EventReply{Error: err.Error()})
				break
			}
			reply.Error = err.Error()
		}
		if err := h.write(conn, reply); err != nil {
			break
		}
	}

	h.logger.Info(ctx, "[SESSION_STREAM_CLOSED] Probe stream disconnected", logging.Fields{})
}

func (h *SessionHandler) write(conn *websocket.Conn, reply EventReply) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(reply)
}

// sendSessionError maps service errors onto status codes
func (h *SessionHandler) sendSessionError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	switch {
	case repository.IsNotFound(err):
		h.sendError(w, r, endpoint, err.Error(), http.StatusNotFound)
	case services.IsRejected(err):
		h.metrics.RecordAPIError("rejected_event", endpoint)
		h.sendError(w, r, endpoint, err.Error(), http.StatusBadRequest)
	default:
		h.sendInternalError(w, r, endpoint, "[API_SESSION_ERROR]", "session request failed", err)
	}
}

// RegisterRoutes registers all session routes
func (h *SessionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/sessions", h.CreateSession).Methods("POST")
	router.HandleFunc("/api/sessions/{id}", h.GetSession).Methods("GET")
	router.HandleFunc("/api/sessions/{id}", h.DeleteSession).Methods("DELETE")
	router.HandleFunc("/api/sessions/{id}/events", h.PostEvent).Methods("POST")
	router.HandleFunc("/api/sessions/{id}/pixel.svg", h.GetPixelGraph).Methods("GET")
	router.HandleFunc("/api/sessions/{id}/ws", h.Stream).Methods("GET")
}

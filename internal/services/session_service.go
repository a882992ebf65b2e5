package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"lst-platform/internal/geo"
	"lst-platform/internal/models"
	"lst-platform/internal/repository"
	"lst-platform/pkg/logging"
	"lst-platform/pkg/metrics"
)

// Event types accepted by Dispatch
const (
	EventMouseMove    = "move"
	EventMouseLeave   = "leave"
	EventClick        = "click"
	EventClickOutside = "click_outside"
	EventDaySlider    = "slider"
	EventDayDropdown  = "dropdown"
)

// Event is one browser interaction forwarded to a session
type Event struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Day  int     `json:"day"`
}

// Session pairs a probe controller with the view it draws into
type Session struct {
	ID         string
	Controller *ProbeController
	View       *ViewState

	mu       sync.Mutex
	lastSeen time.Time
}

// Snapshot returns the session's view merged with controller state
func (s *Session) Snapshot() ViewSnapshot {
	// surfaces are only written under the controller lock, so holding it
	// keeps the view and the probe state from the same event
	c := s.Controller
	c.mu.Lock()
	defer c.mu.Unlock()

	view := s.View.Snapshot()
	view.SessionID = s.ID
	view.State = c.state
	if c.location != nil {
		loc := *c.location
		view.Location = &loc
	}
	return view
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionService keeps one probe controller per browser session
type SessionService struct {
	store   *DataStore
	probes  *ProbeService
	mapper  *geo.Mapper
	clock   clockwork.Clock
	idle    time.Duration
	logger  *logging.StructuredLogger
	metrics *metrics.Collector

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService creates a registry whose sessions expire after idle
func NewSessionService(store *DataStore, probes *ProbeService, mapper *geo.Mapper, clock clockwork.Clock, idle time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SessionService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionService{
		store:    store,
		probes:   probes,
		mapper:   mapper,
		clock:    clock,
		idle:     idle,
		logger:   logger,
		metrics:  metricsCollector,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session showing day 1
func (s *SessionService) Create(ctx context.Context) (*Session, error) {
	if !s.store.Loaded() {
		return nil, ErrNotReady
	}
	view := NewViewState()
	sess := &Session{
		ID:         uuid.NewString(),
		Controller: NewProbeController(s.store, s.probes, s.mapper, view),
		View:       view,
		lastSeen:   s.clock.Now(),
	}
	if err := sess.Controller.Init(1); err != nil {
		return nil, fmt.Errorf("failed to initialise session: %w", err)
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.ActiveSessions.Set(float64(count))
	s.logger.Debug(logging.WithSessionID(ctx, sess.ID), "[SESSION_CREATE] Probe session created", logging.Fields{
		"active_sessions": count,
	})
	return sess, nil
}

// Get returns a live session and marks it used
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, &repository.NotFoundError{Resource: "session", ID: id}
	}
	sess.touch(s.clock.Now())
	return sess, nil
}

// Delete ends a session
func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return &repository.NotFoundError{Resource: "session", ID: id}
	}
	s.metrics.ActiveSessions.Set(float64(count))
	return nil
}

// Dispatch applies ev to the session's controller and returns the resulting view
func (s *SessionService) Dispatch(ctx context.Context, id string, ev Event) (ViewSnapshot, error) {
	sess, err := s.Get(id)
	if err != nil {
		return ViewSnapshot{}, err
	}
	if err := Apply(sess.Controller, ev); err != nil {
		s.logger.Debug(logging.WithSessionID(ctx, id), "[SESSION_EVENT_REJECTED] Event rejected", logging.Fields{
			"type":  ev.Type,
			"error": err.Error(),
		})
		return sess.Snapshot(), err
	}
	return sess.Snapshot(), nil
}

// Apply routes one event to the matching controller method
func Apply(c *ProbeController, ev Event) error {
	switch ev.Type {
	case EventMouseMove:
		return c.OnMouseMove(ev.X, ev.Y)
	case EventMouseLeave:
		c.OnMouseLeaveCanvas()
		return nil
	case EventClick:
		return c.OnClick(ev.X, ev.Y)
	case EventClickOutside:
		c.OnClickOutsideCanvas()
		return nil
	case EventDaySlider:
		return c.OnDaySliderChange(ev.Day)
	case EventDayDropdown:
		return c.OnDayDropdownChange(ev.Day)
	default:
		return &models.ValidationError{Field: "type", Value: ev.Type, Message: "unknown event type"}
	}
}

// IsRejected reports whether err is an input error rather than a failure
func IsRejected(err error) bool {
	var verr *models.ValidationError
	return errors.Is(err, ErrDayOutOfRange) || errors.Is(err, ErrOutsideCanvas) || errors.As(err, &verr)
}

// Sweep removes sessions idle for longer than the configured timeout
func (s *SessionService) Sweep(ctx context.Context) int {
	now := s.clock.Now()

	s.mu.Lock()
	expired := 0
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.idle {
			delete(s.sessions, id)
			expired++
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.ActiveSessions.Set(float64(count))
	if expired > 0 {
		s.logger.Info(ctx, "[SESSION_SWEEP] Idle probe sessions expired", logging.Fields{
			"expired":         expired,
			"active_sessions": count,
		})
	}
	return expired
}

// Count returns the number of live sessions
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Run sweeps every interval until ctx is done
func (s *SessionService) Run(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Sweep(ctx)
		}
	}
}

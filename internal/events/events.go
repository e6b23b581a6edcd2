package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satyamkes/JanSahyog/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventSchemeCreated is emitted when a scheme is added to the catalog
	EventSchemeCreated EventType = "scheme.created"
	// EventEligibilityChecked is emitted after a local eligibility check
	EventEligibilityChecked EventType = "eligibility.checked"
	// EventAIFallback is emitted when the AI service refused the connection
	// and the check was answered locally
	EventAIFallback EventType = "eligibility.ai_fallback"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// SchemeCreatedData contains data for scheme created events.
type SchemeCreatedData struct {
	Scheme models.Scheme
}

// EligibilityCheckedData contains data for eligibility checked events.
type EligibilityCheckedData struct {
	Profile       models.ApplicantProfile
	EligibleCount int
	SchemeIDs     []string
	CheckedAt     time.Time
}

// AIFallbackData contains data for AI fallback events.
type AIFallbackData struct {
	Profile models.ApplicantProfile
	Reason  string
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
	logger   *zap.Logger
	inflight sync.WaitGroup
}

// NewManager creates a new event manager.
func NewManager(enabled bool, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
		logger:   logger,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run
// asynchronously and must not rely on ctx outliving the request.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	m.mu.RLock()
	if !m.enabled {
		m.mu.RUnlock()
		return
	}
	handlers := m.handlers[eventType]
	if len(handlers) > 0 {
		m.inflight.Add(len(handlers))
	}
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	ctx = context.WithoutCancel(ctx)
	for _, handler := range handlers {
		go func(h Handler) {
			defer m.inflight.Done()
			if err := h(ctx, event); err != nil {
				m.logger.Warn("event handler failed",
					zap.String("event", string(event.Type)),
					zap.Error(err),
				)
			}
		}(handler)
	}
}

// PublishSchemeCreated publishes a scheme created event.
func (m *Manager) PublishSchemeCreated(ctx context.Context, scheme models.Scheme) {
	m.Publish(ctx, EventSchemeCreated, SchemeCreatedData{Scheme: scheme})
}

// PublishEligibilityChecked publishes an eligibility checked event.
func (m *Manager) PublishEligibilityChecked(ctx context.Context, profile models.ApplicantProfile, schemes []models.ScoredScheme) {
	ids := make([]string, 0, len(schemes))
	for _, s := range schemes {
		ids = append(ids, s.ID)
	}
	m.Publish(ctx, EventEligibilityChecked, EligibilityCheckedData{
		Profile:       profile,
		EligibleCount: len(schemes),
		SchemeIDs:     ids,
		CheckedAt:     time.Now(),
	})
}

// PublishAIFallback publishes an AI fallback event.
func (m *Manager) PublishAIFallback(ctx context.Context, profile models.ApplicantProfile, reason string) {
	m.Publish(ctx, EventAIFallback, AIFallbackData{Profile: profile, Reason: reason})
}

// LogHandler returns a handler that writes every event it receives to logger.
func LogHandler(logger *zap.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		fields := []zap.Field{zap.String("event", string(event.Type)), zap.Time("at", event.Timestamp)}
		switch d := event.Data.(type) {
		case SchemeCreatedData:
			fields = append(fields, zap.String("scheme_id", d.Scheme.ID), zap.String("scheme_name", d.Scheme.Name))
		case EligibilityCheckedData:
			fields = append(fields, zap.Int("eligible", d.EligibleCount), zap.String("state", d.Profile.State))
		case AIFallbackData:
			fields = append(fields, zap.String("reason", d.Reason))
		}
		logger.Info("event", fields...)
		return nil
	}
}

// Shutdown stops accepting events and waits for running handlers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
	m.mu.Unlock()

	m.inflight.Wait()
}

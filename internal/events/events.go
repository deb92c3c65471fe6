package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-recall/internal/domain"
)

// TypeSessionCompleted is emitted once for every quiz session that finishes.
const TypeSessionCompleted = "session.completed"

// Event is a typed, JSON-encoded notification.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent creates an Event of the given type with payload encoded as JSON.
func NewEvent(eventType string, payload any, now time.Time) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: now,
	}, nil
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// SessionCompletedPayload describes a finished quiz session.
type SessionCompletedPayload struct {
	SessionID   uuid.UUID     `json:"session_id"`
	UserID      string        `json:"user_id"`
	Score       int           `json:"score"`
	Period      domain.Period `json:"period"`
	CompletedAt time.Time     `json:"completed_at"`
}

// NewSessionCompletedEvent builds the completion event for a finished session.
// The period is taken from the session's end time.
func NewSessionCompletedEvent(session *domain.Session, now time.Time) (*Event, error) {
	completedAt := now
	if session.EndTime != nil {
		completedAt = *session.EndTime
	}
	return NewEvent(TypeSessionCompleted, SessionCompletedPayload{
		SessionID:   session.ID,
		UserID:      session.UserID,
		Score:       session.Score,
		Period:      domain.PeriodOf(completedAt),
		CompletedAt: completedAt,
	}, now)
}

// EventHandler processes events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter publishes events to whoever is listening.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}

// Package events publishes board activity (new questions, answers, users and
// votes) for downstream consumers such as notifiers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	UserCreated     = "user.created"
	QuestionCreated = "question.created"
	QuestionVoted   = "question.voted"
	AnswerCreated   = "answer.created"
	AnswerVoted     = "answer.voted"
)

// Event is the message published for each write.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt string      `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current UTC time.
func New(eventType string, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:    payload,
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

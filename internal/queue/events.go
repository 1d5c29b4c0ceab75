package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/tazhibayda/greetings-service/internal/domain"
)

const (
	KeyGreetingCreated = "greeting.created"
	KeyGreetingUpdated = "greeting.updated"
	KeyGreetingDeleted = "greeting.deleted"
)

// GreetingEvent is the body of every greeting.* message. Deletions carry
// only ID and OccurredAt.
type GreetingEvent struct {
	ID         uuid.UUID `json:"id"`
	Message    string    `json:"message,omitempty"`
	Sender     *string   `json:"sender,omitempty"`
	Recipient  *string   `json:"recipient,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewGreetingEvent(g domain.Greeting, at time.Time) GreetingEvent {
	return GreetingEvent{
		ID:         g.ID,
		Message:    g.Message,
		Sender:     g.Sender,
		Recipient:  g.Recipient,
		OccurredAt: at.UTC(),
	}
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Column limits of the greetings table.
const (
	MaxMessageLen = 500
	MaxPartyLen   = 100
)

type Greeting struct {
	ID        uuid.UUID
	Message   string
	Sender    *string // nil when not given
	Recipient *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSender reports whether the greeting carries exactly the given sender.
func (g Greeting) HasSender(sender string) bool {
	return g.Sender != nil && *g.Sender == sender
}

func (g Greeting) HasRecipient(recipient string) bool {
	return g.Recipient != nil && *g.Recipient == recipient
}

// Fields holds the mutable part of a greeting. Update overwrites all of them.
type Fields struct {
	Message   string
	Sender    *string
	Recipient *string
}

// Apply overwrites the mutable fields of g in place.
func (g *Greeting) Apply(f Fields) {
	g.Message = f.Message
	g.Sender = f.Sender
	g.Recipient = f.Recipient
}

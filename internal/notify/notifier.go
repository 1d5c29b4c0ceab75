package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/tazhibayda/greetings-service/internal/queue"
)

// Sender delivers a notification to a recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes notifications to the log instead of a real channel.
type LogSender struct {
	L *zap.Logger
}

func (s LogSender) Send(_ context.Context, to, subject, body string) error {
	s.L.Info("notify",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// Notifier turns greeting events into notifications for their recipients.
type Notifier struct {
	Sender Sender
	L      *zap.Logger
}

func New(s Sender, l *zap.Logger) *Notifier {
	return &Notifier{Sender: s, L: l}
}

// Handle is a queue.Handler. Undecodable bodies are reported as
// queue.ErrMalformed; events without a recipient are skipped.
func (n *Notifier) Handle(ctx context.Context, body []byte) error {
	var ev queue.GreetingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		n.L.Warn("drop undecodable event", zap.Error(err))
		return fmt.Errorf("%w: %v", queue.ErrMalformed, err)
	}
	if ev.Recipient == nil || *ev.Recipient == "" {
		n.L.Debug("event has no recipient", zap.String("id", ev.ID.String()))
		return nil
	}

	from := "someone"
	if ev.Sender != nil && *ev.Sender != "" {
		from = *ev.Sender
	}
	subject := fmt.Sprintf("A greeting from %s", from)
	return n.Sender.Send(ctx, *ev.Recipient, subject, ev.Message)
}

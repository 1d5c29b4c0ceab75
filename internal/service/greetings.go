// Package service holds the greeting use cases. Every exported method runs
// as one store transaction and reports failures as *Error.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/greetings-service/internal/domain"
	"github.com/tazhibayda/greetings-service/internal/log"
	"github.com/tazhibayda/greetings-service/internal/metrics"
	"github.com/tazhibayda/greetings-service/internal/queue"
	"github.com/tazhibayda/greetings-service/internal/repo"
)

// Client-facing messages for internal failures.
const (
	msgInternal     = "Internal server error"
	msgCreateFailed = "Failed to create greeting"
	msgListFailed   = "Failed to retrieve greetings"
	msgUpdateFailed = "Failed to update greeting"
	msgDeleteFailed = "Failed to delete greeting"
	msgCountFailed  = "Failed to retrieve greetings count"
)

type Greetings struct {
	store    repo.Store
	events   queue.Publisher
	exchange string
	log      *zap.Logger
	now      func() time.Time
}

type Option func(*Greetings)

// WithPublisher sends greeting.* events to exchange after each write.
func WithPublisher(p queue.Publisher, exchange string) Option {
	return func(s *Greetings) {
		s.events = p
		s.exchange = exchange
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Greetings) { s.log = l }
}

func New(store repo.Store, opts ...Option) *Greetings {
	s := &Greetings{
		store:  store,
		events: queue.NewNoop(),
		log:    zap.L(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func startSpan(ctx context.Context, op string) (ddtrace.Span, context.Context) {
	return tracer.StartSpanFromContext(ctx, "greetings."+op,
		tracer.ResourceName(op),
		tracer.SpanType("db"),
	)
}

// finish closes span, marking it failed only for internal errors.
func (s *Greetings) finish(ctx context.Context, span ddtrace.Span, op string, err error) {
	if err != nil && KindOf(err) == KindInternal {
		log.WithDD(ctx, s.log).Error("greetings "+op+" failed", zap.Error(err))
		span.Finish(tracer.WithError(err))
		return
	}
	span.Finish()
}

func (s *Greetings) read(ctx context.Context, fn func(ctx context.Context, r repo.GreetingRepository) error) error {
	return s.store.WithinTx(ctx, true, fn)
}

func (s *Greetings) write(ctx context.Context, fn func(ctx context.Context, r repo.GreetingRepository) error) error {
	return s.store.WithinTx(ctx, false, fn)
}

func (s *Greetings) publish(ctx context.Context, key string, ev queue.GreetingEvent) {
	result := "ok"
	if err := s.events.Publish(ctx, s.exchange, key, ev, log.RequestID(ctx)); err != nil {
		result = "error"
		log.WithDD(ctx, s.log).Warn("publish event",
			zap.String("key", key),
			zap.String("id", ev.ID.String()),
			zap.Error(err),
		)
	}
	metrics.EventsPublished.WithLabelValues(key, result).Inc()
}

func (s *Greetings) Create(ctx context.Context, g domain.Greeting) (out *domain.Greeting, err error) {
	span, ctx := startSpan(ctx, "create")
	defer func() { s.finish(ctx, span, "create", err) }()

	if verr := g.Fields().Validate(); verr != nil {
		return nil, Malformed(verr)
	}
	g.ID = uuid.Nil
	err = s.write(ctx, func(ctx context.Context, r repo.GreetingRepository) error {
		saved, err := r.Save(ctx, &g)
		out = saved
		return err
	})
	if err != nil {
		return nil, Internal(msgCreateFailed, err)
	}
	s.publish(ctx, queue.KeyGreetingCreated, queue.NewGreetingEvent(*out, s.now()))
	return out, nil
}

func (s *Greetings) Get(ctx context.Context, id uuid.UUID) (out *domain.Greeting, err error) {
	span, ctx := startSpan(ctx, "get")
	defer func() { s.finish(ctx, span, "get", err) }()

	err = s.read(ctx, func(ctx context.Context, r repo.GreetingRepository) error {
		g, err := r.FindByID(ctx, id)
		out = g
		return err
	})
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil, notFoundID(id)
	case err != nil:
		return nil, Internal(msgInternal, err)
	}
	return out, nil
}

func (s *Greetings) list(ctx context.Context, op string, fetch func(ctx context.Context, r repo.GreetingRepository) ([]domain.Greeting, error)) (out []domain.Greeting, err error) {
	span, ctx := startSpan(ctx, op)
	defer func() { s.finish(ctx, span, op, err) }()

	err = s.read(ctx, func(ctx context.Context, r repo.GreetingRepository) error {
		gs, err := fetch(ctx, r)
		out = gs
		return err
	})
	if err != nil {
		return nil, Internal(msgListFailed, err)
	}
	if out == nil {
		out = []domain.Greeting{}
	}
	return out, nil
}

func (s *Greetings) List(ctx context.Context) ([]domain.Greeting, error) {
	return s.list(ctx, "list", func(ctx context.Context, r repo.GreetingRepository) ([]domain.Greeting, error) {
		return r.FindAll(ctx)
	})
}

func (s *Greetings) BySender(ctx context.Context, sender string) ([]domain.Greeting, error) {
	return s.list(ctx, "by_sender", func(ctx context.Context, r repo.GreetingRepository) ([]domain.Greeting, error) {
		return r.FindBySender(ctx, sender)
	})
}

func (s *Greetings) ByRecipient(ctx context.Context, recipient string) ([]domain.Greeting, error) {
	return s.list(ctx, "by_recipient", func(ctx context.Context, r repo.GreetingRepository) ([]domain.Greeting, error) {
		return r.FindByRecipient(ctx, recipient)
	})
}

// SearchMessage matches fragment case-insensitively anywhere in the message.
func (s *Greetings) SearchMessage(ctx context.Context, fragment string) ([]domain.Greeting, error) {
	return s.list(ctx, "search", func(ctx context.Context, r repo.GreetingRepository) ([]domain.Greeting, error) {
		return r.FindByMessageContaining(ctx, fragment)
	})
}

func (s *Greetings) Between(ctx context.Context, sender, recipient string) ([]domain.Greeting, error) {
	return s.list(ctx, "between", func(ctx context.Context, r repo.GreetingRepository) ([]domain.Greeting, error) {
		return r.FindBySenderAndRecipient(ctx, sender, recipient)
	})
}

// CreatedAfter returns greetings created strictly after t.
func (s *Greetings) CreatedAfter(ctx context.Context, t time.Time) ([]domain.Greeting, error) {
	return s.list(ctx, "created_after", func(ctx context.Context, r repo.GreetingRepository) ([]domain.Greeting, error) {
		return r.FindCreatedAfter(ctx, t)
	})
}

func (s *Greetings) LatestBySender(ctx context.Context, sender string) (out *domain.Greeting, err error) {
	span, ctx := startSpan(ctx, "latest_by_sender")
	defer func() { s.finish(ctx, span, "latest_by_sender", err) }()

	err = s.read(ctx, func(ctx context.Context, r repo.GreetingRepository) error {
		g, err := r.FindLatestBySender(ctx, sender)
		out = g
		return err
	})
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil, NotFound("No greetings found for sender: %s", sender)
	case err != nil:
		return nil, Internal(msgInternal, err)
	}
	return out, nil
}

func (s *Greetings) Exists(ctx context.Context, id uuid.UUID) (ok bool, err error) {
	span, ctx := startSpan(ctx, "exists")
	defer func() { s.finish(ctx, span, "exists", err) }()

	err = s.read(ctx, func(ctx context.Context, r repo.GreetingRepository) error {
		found, err := r.ExistsByID(ctx, id)
		ok = found
		return err
	})
	if err != nil {
		return false, Internal(msgInternal, err)
	}
	return ok, nil
}

func (s *Greetings) Count(ctx context.Context) (n int64, err error) {
	span, ctx := startSpan(ctx, "count")
	defer func() { s.finish(ctx, span, "count", err) }()

	err = s.read(ctx, func(ctx context.Context, r repo.GreetingRepository) error {
		c, err := r.Count(ctx)
		n = c
		return err
	})
	if err != nil {
		return 0, Internal(msgCountFailed, err)
	}
	return n, nil
}

// Update overwrites message, sender and recipient of an existing greeting.
// A nil sender or recipient clears the stored value.
func (s *Greetings) Update(ctx context.Context, id uuid.UUID, f domain.Fields) (out *domain.Greeting, err error) {
	span, ctx := startSpan(ctx, "update")
	defer func() { s.finish(ctx, span, "update", err) }()

	if verr := f.Validate(); verr != nil {
		return nil, Malformed(verr)
	}
	err = s.write(ctx, func(ctx context.Context, r repo.GreetingRepository) error {
		g, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		g.Apply(f)
		saved, err := r.Save(ctx, g)
		out = saved
		return err
	})
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil, notFoundID(id)
	case err != nil:
		return nil, Internal(msgUpdateFailed, err)
	}
	s.publish(ctx, queue.KeyGreetingUpdated, queue.NewGreetingEvent(*out, s.now()))
	return out, nil
}

func (s *Greetings) Delete(ctx context.Context, id uuid.UUID) (err error) {
	span, ctx := startSpan(ctx, "delete")
	defer func() { s.finish(ctx, span, "delete", err) }()

	err = s.write(ctx, func(ctx context.Context, r repo.GreetingRepository) error {
		return r.DeleteByID(ctx, id)
	})
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return notFoundID(id)
	case err != nil:
		return Internal(msgDeleteFailed, err)
	}
	s.publish(ctx, queue.KeyGreetingDeleted, queue.GreetingEvent{ID: id, OccurredAt: s.now().UTC()})
	return nil
}

func notFoundID(id uuid.UUID) *Error {
	return NotFound("Greeting not found with ID: %s", id)
}

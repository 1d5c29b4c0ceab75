package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrMalformed marks a delivery that can never be processed. The consumer
// acks and drops it instead of requeueing.
var ErrMalformed = errors.New("malformed message")

// Handler processes one delivery body.
type Handler func(ctx context.Context, body []byte) error

// Delivery is the subset of amqp.Delivery the dispatch loop needs.
type Delivery interface {
	Body() []byte
	Ack() error
	Nack(requeue bool) error
}

type amqpDelivery struct{ d amqp.Delivery }

func (a amqpDelivery) Body() []byte            { return a.d.Body }
func (a amqpDelivery) Ack() error              { return a.d.Ack(false) }
func (a amqpDelivery) Nack(requeue bool) error { return a.d.Nack(false, requeue) }

type Consumer struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	q        string
	prefetch int
}

// NewConsumer declares exchange and a durable queue bound to it with key.
func NewConsumer(url, exchange, queue, key string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbit: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	fail := func(err error) (*Consumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if err := declareExchange(ch, exchange); err != nil {
		return fail(err)
	}
	qd, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fail(fmt.Errorf("declare queue: %w", err))
	}
	if err := ch.QueueBind(qd.Name, key, exchange, false, nil); err != nil {
		return fail(fmt.Errorf("bind queue: %w", err))
	}

	return &Consumer{conn: conn, ch: ch, q: qd.Name, prefetch: 50}, nil
}

func (c *Consumer) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Consume runs workers until ctx is cancelled or the broker closes the
// delivery channel.
func (c *Consumer) Consume(ctx context.Context, workers int, handle Handler) error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("consumer is not initialized")
	}

	if err := c.ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	msgs, err := c.ch.Consume(c.q, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	in := make(chan Delivery)
	go func() {
		defer close(in)
		for d := range msgs {
			select {
			case in <- amqpDelivery{d: d}:
			case <-ctx.Done():
				return
			}
		}
	}()

	Dispatch(ctx, workers, in, handle)
	if ctx.Err() != nil {
		return nil
	}
	return errors.New("delivery channel closed")
}

// Dispatch fans deliveries out to workers and settles each one: ack on
// success or ErrMalformed, nack with requeue on any other error. It returns
// once in is closed or ctx is done and every worker has finished.
func Dispatch(ctx context.Context, workers int, in <-chan Delivery, handle Handler) {
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case d, ok := <-in:
					if !ok {
						return
					}
					settle(ctx, d, handle)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()
}

func settle(ctx context.Context, d Delivery, handle Handler) {
	err := handle(ctx, d.Body())
	switch {
	case err == nil, errors.Is(err, ErrMalformed):
		_ = d.Ack()
	default:
		_ = d.Nack(true)
	}
}

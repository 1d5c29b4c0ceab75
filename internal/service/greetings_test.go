package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tazhibayda/greetings-service/internal/domain"
	"github.com/tazhibayda/greetings-service/internal/log"
	"github.com/tazhibayda/greetings-service/internal/queue"
	"github.com/tazhibayda/greetings-service/internal/repo"
	"github.com/tazhibayda/greetings-service/internal/service"
)

type published struct {
	exchange, key, reqID string
	event                queue.GreetingEvent
}

type fakePub struct {
	mu   sync.Mutex
	got  []published
	fail bool
}

func (p *fakePub) Publish(_ context.Context, exchange, key string, event any, reqID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.got = append(p.got, published{exchange, key, reqID, event.(queue.GreetingEvent)})
	return nil
}
func (p *fakePub) Close() error { return nil }

// brokenStore fails every transaction.
type brokenStore struct{ repo.Store }

func (brokenStore) WithinTx(context.Context, bool, func(context.Context, repo.GreetingRepository) error) error {
	return errors.New("db error: connection refused")
}

func ptr(s string) *string { return &s }

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newSvc(t *testing.T) (*service.Greetings, *fakePub) {
	t.Helper()
	store := repo.NewMemoryStore()
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store.SetClock(c.now)
	pub := &fakePub{}
	return service.New(store, service.WithPublisher(pub, "greetings.events"), service.WithLogger(zap.NewNop())), pub
}

func TestCreateThenGet(t *testing.T) {
	svc, pub := newSvc(t)
	ctx := log.WithRequestID(context.Background(), "req-1")

	created, err := svc.Create(ctx, domain.Greeting{Message: "Hello, World!", Sender: ptr("alice"), Recipient: ptr("bob")})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", got.Message)
	assert.Equal(t, "alice", *got.Sender)
	assert.Equal(t, "bob", *got.Recipient)

	require.Len(t, pub.got, 1)
	assert.Equal(t, "greetings.events", pub.got[0].exchange)
	assert.Equal(t, queue.KeyGreetingCreated, pub.got[0].key)
	assert.Equal(t, "req-1", pub.got[0].reqID)
	assert.Equal(t, created.ID, pub.got[0].event.ID)
}

func TestCreate_ValidationIsMalformed(t *testing.T) {
	svc, pub := newSvc(t)
	ctx := context.Background()

	cases := map[string]domain.Greeting{
		"blank":          {Message: "   "},
		"long message":   {Message: strings.Repeat("a", domain.MaxMessageLen+1)},
		"long sender":    {Message: "hi", Sender: ptr(strings.Repeat("s", domain.MaxPartyLen+1))},
		"long recipient": {Message: "hi", Recipient: ptr(strings.Repeat("r", domain.MaxPartyLen+1))},
	}
	for name, g := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, g)
			require.Error(t, err)
			require.Equal(t, service.KindMalformedInput, service.KindOf(err))
		})
	}
	require.Empty(t, pub.got)
}

func TestCreate_LimitsCountRunes(t *testing.T) {
	svc, _ := newSvc(t)
	_, err := svc.Create(context.Background(), domain.Greeting{Message: strings.Repeat("ü", domain.MaxMessageLen)})
	require.NoError(t, err)
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newSvc(t)
	id := uuid.New()

	_, err := svc.Get(context.Background(), id)
	require.Equal(t, service.KindNotFound, service.KindOf(err))
	require.Equal(t, "Greeting not found with ID: "+id.String(), service.Message(err))
}

func TestUpdate(t *testing.T) {
	svc, pub := newSvc(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.Greeting{Message: "Hi", Sender: ptr("alice"), Recipient: ptr("bob")})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, domain.Fields{Message: "Bye", Sender: ptr("carol")})
	require.NoError(t, err)
	assert.Equal(t, "Bye", updated.Message)
	assert.Equal(t, "carol", *updated.Sender)
	assert.Nil(t, updated.Recipient, "nil recipient clears the stored value")
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	require.Len(t, pub.got, 2)
	assert.Equal(t, queue.KeyGreetingUpdated, pub.got[1].key)
}

func TestUpdate_Missing(t *testing.T) {
	svc, pub := newSvc(t)
	_, err := svc.Update(context.Background(), uuid.New(), domain.Fields{Message: "x"})
	require.Equal(t, service.KindNotFound, service.KindOf(err))
	require.Empty(t, pub.got)
}

func TestDelete(t *testing.T) {
	svc, pub := newSvc(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.Greeting{Message: "Hi"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	err = svc.Delete(ctx, created.ID)
	require.Equal(t, service.KindNotFound, service.KindOf(err))

	require.Len(t, pub.got, 2)
	assert.Equal(t, queue.KeyGreetingDeleted, pub.got[1].key)
	assert.Equal(t, created.ID, pub.got[1].event.ID)
}

func TestQueries(t *testing.T) {
	svc, _ := newSvc(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, domain.Greeting{Message: "Hello World", Sender: ptr("alice"), Recipient: ptr("bob")})
	require.NoError(t, err)
	second, err := svc.Create(ctx, domain.Greeting{Message: "good morning", Sender: ptr("alice"), Recipient: ptr("carol")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.Greeting{Message: "100% done", Sender: ptr("dave")})
	require.NoError(t, err)

	bySender, err := svc.BySender(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, bySender, 2)

	byRecipient, err := svc.ByRecipient(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, byRecipient, 1)
	require.Equal(t, second.ID, byRecipient[0].ID)

	found, err := svc.SearchMessage(ctx, "hello")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, first.ID, found[0].ID)

	pct, err := svc.SearchMessage(ctx, "%")
	require.NoError(t, err)
	require.Len(t, pct, 1, "wildcards match literally")

	between, err := svc.Between(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, between, 1)
	require.Equal(t, first.ID, between[0].ID)

	after, err := svc.CreatedAfter(ctx, first.CreatedAt)
	require.NoError(t, err)
	require.Len(t, after, 2, "strictly after")

	latest, err := svc.LatestBySender(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)

	_, err = svc.LatestBySender(ctx, "nobody")
	require.Equal(t, service.KindNotFound, service.KindOf(err))
	require.Equal(t, "No greetings found for sender: nobody", service.Message(err))

	ok, err := svc.Exists(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = svc.Exists(ctx, uuid.New())
	require.NoError(t, err)
	require.False(t, ok)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	empty, err := svc.BySender(ctx, "nobody")
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	svc, pub := newSvc(t)
	pub.fail = true

	created, err := svc.Create(context.Background(), domain.Greeting{Message: "Hi"})
	require.NoError(t, err)
	require.NotNil(t, created)
}

func TestStoreFailureIsInternal(t *testing.T) {
	svc := service.New(brokenStore{}, service.WithLogger(zap.NewNop()))
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.Greeting{Message: "Hi"})
	require.Equal(t, service.KindInternal, service.KindOf(err))
	require.Equal(t, "Failed to create greeting", service.Message(err))
	require.ErrorContains(t, err, "connection refused")

	_, err = svc.List(ctx)
	require.Equal(t, "Failed to retrieve greetings", service.Message(err))

	_, err = svc.Count(ctx)
	require.Equal(t, "Failed to retrieve greetings count", service.Message(err))

	_, err = svc.Update(ctx, uuid.New(), domain.Fields{Message: "x"})
	require.Equal(t, "Failed to update greeting", service.Message(err))

	err = svc.Delete(ctx, uuid.New())
	require.Equal(t, "Failed to delete greeting", service.Message(err))

	_, err = svc.Get(ctx, uuid.New())
	require.Equal(t, service.KindInternal, service.KindOf(err))
	require.Equal(t, "Internal server error", service.Message(err))
}

func TestKindOf_ForeignError(t *testing.T) {
	err := errors.New("boom")
	require.Equal(t, service.KindInternal, service.KindOf(err))
	require.Equal(t, "Internal server error", service.Message(err))
}

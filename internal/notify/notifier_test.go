package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tazhibayda/greetings-service/internal/notify"
	"github.com/tazhibayda/greetings-service/internal/queue"
)

type sent struct{ to, subject, body string }

type recordingSender struct {
	got []sent
	err error
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.got = append(r.got, sent{to, subject, body})
	return r.err
}

func TestHandle_SendsToRecipient(t *testing.T) {
	rs := &recordingSender{}
	n := notify.New(rs, zap.NewNop())

	body := []byte(`{"id":"7d3f1c2e-9a4b-4c3d-8e2f-1a2b3c4d5e6f","message":"Hello","sender":"alice","recipient":"bob","occurredAt":"2024-01-01T00:00:00Z"}`)
	require.NoError(t, n.Handle(context.Background(), body))

	require.Len(t, rs.got, 1)
	require.Equal(t, "bob", rs.got[0].to)
	require.Equal(t, "A greeting from alice", rs.got[0].subject)
	require.Equal(t, "Hello", rs.got[0].body)
}

func TestHandle_NoRecipientSkips(t *testing.T) {
	rs := &recordingSender{}
	n := notify.New(rs, zap.NewNop())

	body := []byte(`{"id":"7d3f1c2e-9a4b-4c3d-8e2f-1a2b3c4d5e6f","message":"Hi","occurredAt":"2024-01-01T00:00:00Z"}`)
	require.NoError(t, n.Handle(context.Background(), body))
	require.Empty(t, rs.got)
}

func TestHandle_MalformedBody(t *testing.T) {
	n := notify.New(&recordingSender{}, zap.NewNop())
	err := n.Handle(context.Background(), []byte("{not json"))
	require.ErrorIs(t, err, queue.ErrMalformed)
}

func TestHandle_SenderErrorPropagates(t *testing.T) {
	rs := &recordingSender{err: errors.New("smtp down")}
	n := notify.New(rs, zap.NewNop())

	body := []byte(`{"id":"7d3f1c2e-9a4b-4c3d-8e2f-1a2b3c4d5e6f","message":"Hi","recipient":"bob","occurredAt":"2024-01-01T00:00:00Z"}`)
	err := n.Handle(context.Background(), body)
	require.EqualError(t, err, "smtp down")
	require.NotErrorIs(t, err, queue.ErrMalformed)
}

package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tazhibayda/greetings-service/internal/domain"
)

// MemoryStore keeps greetings in process memory. It is meant for local runs
// and tests; WithinTx gives no isolation.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.Greeting
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[uuid.UUID]domain.Greeting), now: time.Now}
}

// SetClock replaces the time source used to stamp rows.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryStore) Greetings() GreetingRepository { return memoryRepo{s: s} }

func (s *MemoryStore) WithinTx(ctx context.Context, _ bool, fn func(ctx context.Context, r GreetingRepository) error) error {
	return fn(ctx, s.Greetings())
}

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

type memoryRepo struct{ s *MemoryStore }

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func clone(g domain.Greeting) domain.Greeting {
	g.Sender = cloneStr(g.Sender)
	g.Recipient = cloneStr(g.Recipient)
	return g
}

func (r memoryRepo) Save(_ context.Context, g *domain.Greeting) (*domain.Greeting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now().UTC()
	if g.ID == uuid.Nil {
		row := clone(*g)
		row.ID = uuid.New()
		row.CreatedAt = now
		row.UpdatedAt = now
		r.s.rows[row.ID] = row
		out := clone(row)
		return &out, nil
	}

	row, ok := r.s.rows[g.ID]
	if !ok {
		return nil, ErrNotFound
	}
	row.Apply(domain.Fields{Message: g.Message, Sender: cloneStr(g.Sender), Recipient: cloneStr(g.Recipient)})
	if now.After(row.CreatedAt) {
		row.UpdatedAt = now
	} else {
		row.UpdatedAt = row.CreatedAt
	}
	r.s.rows[row.ID] = row
	out := clone(row)
	return &out, nil
}

func (r memoryRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Greeting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(row)
	return &out, nil
}

func (r memoryRepo) FindLatestBySender(ctx context.Context, sender string) (*domain.Greeting, error) {
	matches := r.filter(func(g domain.Greeting) bool { return g.HasSender(sender) })
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	latest := matches[len(matches)-1]
	return &latest, nil
}

// filter returns matching rows ordered by CreatedAt, then ID.
func (r memoryRepo) filter(keep func(domain.Greeting) bool) []domain.Greeting {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Greeting, 0)
	for _, row := range r.s.rows {
		if keep(row) {
			out = append(out, clone(row))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (r memoryRepo) FindAll(context.Context) ([]domain.Greeting, error) {
	return r.filter(func(domain.Greeting) bool { return true }), nil
}

func (r memoryRepo) FindBySender(_ context.Context, sender string) ([]domain.Greeting, error) {
	return r.filter(func(g domain.Greeting) bool { return g.HasSender(sender) }), nil
}

func (r memoryRepo) FindByRecipient(_ context.Context, recipient string) ([]domain.Greeting, error) {
	return r.filter(func(g domain.Greeting) bool { return g.HasRecipient(recipient) }), nil
}

func (r memoryRepo) FindByMessageContaining(_ context.Context, fragment string) ([]domain.Greeting, error) {
	needle := strings.ToLower(fragment)
	return r.filter(func(g domain.Greeting) bool {
		return strings.Contains(strings.ToLower(g.Message), needle)
	}), nil
}

func (r memoryRepo) FindBySenderAndRecipient(_ context.Context, sender, recipient string) ([]domain.Greeting, error) {
	return r.filter(func(g domain.Greeting) bool {
		return g.HasSender(sender) && g.HasRecipient(recipient)
	}), nil
}

func (r memoryRepo) FindCreatedAfter(_ context.Context, t time.Time) ([]domain.Greeting, error) {
	return r.filter(func(g domain.Greeting) bool { return g.CreatedAt.After(t) }), nil
}

func (r memoryRepo) DeleteByID(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.rows, id)
	return nil
}

func (r memoryRepo) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.rows[id]
	return ok, nil
}

func (r memoryRepo) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.rows)), nil
}

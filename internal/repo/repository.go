package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tazhibayda/greetings-service/internal/domain"
)

// ErrNotFound marks a lookup or mutation whose target row does not exist.
var ErrNotFound = errors.New("not found")

// GreetingRepository persists greetings in a single table or collection.
//
// List reads return an empty slice when nothing matches. FindByID and
// FindLatestBySender return ErrNotFound when there is no match.
type GreetingRepository interface {
	// Save inserts g when its ID is uuid.Nil, assigning the ID and stamping
	// both timestamps. Otherwise it overwrites message, sender and recipient
	// of the existing row and refreshes UpdatedAt.
	Save(ctx context.Context, g *domain.Greeting) (*domain.Greeting, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Greeting, error)
	FindAll(ctx context.Context) ([]domain.Greeting, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context) (int64, error)
	FindBySender(ctx context.Context, sender string) ([]domain.Greeting, error)
	FindByRecipient(ctx context.Context, recipient string) ([]domain.Greeting, error)
	// FindByMessageContaining matches fragment case-insensitively anywhere in
	// the message. Wildcard characters in fragment match literally.
	FindByMessageContaining(ctx context.Context, fragment string) ([]domain.Greeting, error)
	FindBySenderAndRecipient(ctx context.Context, sender, recipient string) ([]domain.Greeting, error)
	// FindCreatedAfter returns greetings created strictly after t.
	FindCreatedAfter(ctx context.Context, t time.Time) ([]domain.Greeting, error)
	FindLatestBySender(ctx context.Context, sender string) (*domain.Greeting, error)
}

// Store is a storage backend. WithinTx runs fn against a repository bound to
// one transaction: committed when fn returns nil, rolled back otherwise.
type Store interface {
	Greetings() GreetingRepository
	WithinTx(ctx context.Context, readOnly bool, fn func(ctx context.Context, r GreetingRepository) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

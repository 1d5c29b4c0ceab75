package repo

import (
	"context"
	"fmt"
)

type Options struct {
	Driver       string
	DatabaseURL  string
	MaxOpenConns int
	MongoURI     string
	MongoDB      string
}

// Open connects the configured backend and prepares its schema.
func Open(ctx context.Context, o Options) (Store, error) {
	switch o.Driver {
	case DriverPostgres, "":
		s, err := NewPostgresStore(ctx, o.DatabaseURL, o.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		if err := s.RunMigrations(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		return s, nil
	case DriverMongo:
		s, err := NewMongoStore(ctx, o.MongoURI, o.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return s, nil
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", o.Driver)
	}
}

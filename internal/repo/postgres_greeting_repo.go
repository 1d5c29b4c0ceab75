package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tazhibayda/greetings-service/internal/dbx"
	"github.com/tazhibayda/greetings-service/internal/domain"
)

const greetingColumns = `id, message, sender, recipient, created_at, updated_at`

type PostgresGreetingRepository struct {
	db dbx.DBTX
}

func NewPostgresGreetingRepository(db dbx.DBTX) *PostgresGreetingRepository {
	return &PostgresGreetingRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGreeting(row rowScanner) (*domain.Greeting, error) {
	g := &domain.Greeting{}
	if err := row.Scan(&g.ID, &g.Message, &g.Sender, &g.Recipient, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *PostgresGreetingRepository) Save(ctx context.Context, g *domain.Greeting) (*domain.Greeting, error) {
	if g.ID == uuid.Nil {
		return r.insert(ctx, g)
	}
	return r.update(ctx, g)
}

func (r *PostgresGreetingRepository) insert(ctx context.Context, g *domain.Greeting) (*domain.Greeting, error) {
	query :=
		`INSERT INTO greetings (id, message, sender, recipient, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())
		 RETURNING ` + greetingColumns

	saved, err := scanGreeting(r.db.QueryRowContext(ctx, query, uuid.New(), g.Message, g.Sender, g.Recipient))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

func (r *PostgresGreetingRepository) update(ctx context.Context, g *domain.Greeting) (*domain.Greeting, error) {
	query :=
		`UPDATE greetings
		 SET message = $2, sender = $3, recipient = $4, updated_at = GREATEST(now(), created_at)
		 WHERE id = $1
		 RETURNING ` + greetingColumns

	saved, err := scanGreeting(r.db.QueryRowContext(ctx, query, g.ID, g.Message, g.Sender, g.Recipient))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

func (r *PostgresGreetingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Greeting, error) {
	query := `SELECT ` + greetingColumns + ` FROM greetings WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *PostgresGreetingRepository) FindLatestBySender(ctx context.Context, sender string) (*domain.Greeting, error) {
	query :=
		`SELECT ` + greetingColumns + ` FROM greetings
		 WHERE sender = $1
		 ORDER BY created_at DESC
		 LIMIT 1`
	return r.findOne(ctx, query, sender)
}

func (r *PostgresGreetingRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Greeting, error) {
	g, err := scanGreeting(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func (r *PostgresGreetingRepository) FindAll(ctx context.Context) ([]domain.Greeting, error) {
	return r.findMany(ctx, `SELECT `+greetingColumns+` FROM greetings ORDER BY created_at, id`)
}

func (r *PostgresGreetingRepository) FindBySender(ctx context.Context, sender string) ([]domain.Greeting, error) {
	query := `SELECT ` + greetingColumns + ` FROM greetings WHERE sender = $1 ORDER BY created_at, id`
	return r.findMany(ctx, query, sender)
}

func (r *PostgresGreetingRepository) FindByRecipient(ctx context.Context, recipient string) ([]domain.Greeting, error) {
	query := `SELECT ` + greetingColumns + ` FROM greetings WHERE recipient = $1 ORDER BY created_at, id`
	return r.findMany(ctx, query, recipient)
}

func (r *PostgresGreetingRepository) FindByMessageContaining(ctx context.Context, fragment string) ([]domain.Greeting, error) {
	query :=
		`SELECT ` + greetingColumns + ` FROM greetings
		 WHERE message ILIKE '%' || $1 || '%' ESCAPE '\'
		 ORDER BY created_at, id`
	return r.findMany(ctx, query, escapeLike(fragment))
}

func (r *PostgresGreetingRepository) FindBySenderAndRecipient(ctx context.Context, sender, recipient string) ([]domain.Greeting, error) {
	query :=
		`SELECT ` + greetingColumns + ` FROM greetings
		 WHERE sender = $1 AND recipient = $2
		 ORDER BY created_at, id`
	return r.findMany(ctx, query, sender, recipient)
}

func (r *PostgresGreetingRepository) FindCreatedAfter(ctx context.Context, t time.Time) ([]domain.Greeting, error) {
	query := `SELECT ` + greetingColumns + ` FROM greetings WHERE created_at > $1 ORDER BY created_at, id`
	return r.findMany(ctx, query, t)
}

func (r *PostgresGreetingRepository) findMany(ctx context.Context, query string, args ...any) ([]domain.Greeting, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Greeting, 0)
	for rows.Next() {
		g, err := scanGreeting(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresGreetingRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM greetings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresGreetingRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM greetings WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresGreetingRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM greetings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// escapeLike makes %, _ and the escape character itself match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

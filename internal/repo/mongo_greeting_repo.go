package repo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tazhibayda/greetings-service/internal/domain"
)

// greetingDoc is the stored document; ids are kept as canonical UUID strings.
type greetingDoc struct {
	ID        string    `bson:"_id"`
	Message   string    `bson:"message"`
	Sender    *string   `bson:"sender,omitempty"`
	Recipient *string   `bson:"recipient,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d greetingDoc) toDomain() (domain.Greeting, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Greeting{}, fmt.Errorf("db error: bad id %q: %w", d.ID, err)
	}
	return domain.Greeting{
		ID:        id,
		Message:   d.Message,
		Sender:    d.Sender,
		Recipient: d.Recipient,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}

type MongoGreetingRepository struct {
	col *mongo.Collection
	now func() time.Time
}

// stamp returns the current time at BSON datetime precision.
func (r *MongoGreetingRepository) stamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func (r *MongoGreetingRepository) Save(ctx context.Context, g *domain.Greeting) (*domain.Greeting, error) {
	if g.ID == uuid.Nil {
		return r.insert(ctx, g)
	}
	return r.update(ctx, g)
}

func (r *MongoGreetingRepository) insert(ctx context.Context, g *domain.Greeting) (*domain.Greeting, error) {
	now := r.stamp()
	doc := greetingDoc{
		ID:        uuid.NewString(),
		Message:   g.Message,
		Sender:    g.Sender,
		Recipient: g.Recipient,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.col.InsertOne(ctx, doc)
	if IsDup(err) {
		// id collision, draw a new one
		doc.ID = uuid.NewString()
		_, err = r.col.InsertOne(ctx, doc)
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	saved, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *MongoGreetingRepository) update(ctx context.Context, g *domain.Greeting) (*domain.Greeting, error) {
	set := bson.M{"message": g.Message}
	unset := bson.M{}
	if g.Sender != nil {
		set["sender"] = *g.Sender
	} else {
		unset["sender"] = ""
	}
	if g.Recipient != nil {
		set["recipient"] = *g.Recipient
	} else {
		unset["recipient"] = ""
	}
	// $max keeps updated_at from moving backwards under clock skew.
	update := bson.M{"$set": set, "$max": bson.M{"updated_at": r.stamp()}}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var doc greetingDoc
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": g.ID.String()}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	saved, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *MongoGreetingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Greeting, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()}, nil)
}

func (r *MongoGreetingRepository) FindLatestBySender(ctx context.Context, sender string) (*domain.Greeting, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.findOne(ctx, bson.M{"sender": sender}, opts)
}

func (r *MongoGreetingRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*domain.Greeting, error) {
	var doc greetingDoc
	if err := r.col.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	g, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *MongoGreetingRepository) FindAll(ctx context.Context) ([]domain.Greeting, error) {
	return r.findMany(ctx, bson.M{})
}

func (r *MongoGreetingRepository) FindBySender(ctx context.Context, sender string) ([]domain.Greeting, error) {
	return r.findMany(ctx, bson.M{"sender": sender})
}

func (r *MongoGreetingRepository) FindByRecipient(ctx context.Context, recipient string) ([]domain.Greeting, error) {
	return r.findMany(ctx, bson.M{"recipient": recipient})
}

func (r *MongoGreetingRepository) FindByMessageContaining(ctx context.Context, fragment string) ([]domain.Greeting, error) {
	return r.findMany(ctx, bson.M{
		"message": primitive.Regex{Pattern: regexp.QuoteMeta(fragment), Options: "i"},
	})
}

func (r *MongoGreetingRepository) FindBySenderAndRecipient(ctx context.Context, sender, recipient string) ([]domain.Greeting, error) {
	return r.findMany(ctx, bson.M{"sender": sender, "recipient": recipient})
}

func (r *MongoGreetingRepository) FindCreatedAfter(ctx context.Context, t time.Time) ([]domain.Greeting, error) {
	return r.findMany(ctx, bson.M{"created_at": bson.M{"$gt": t.UTC()}})
}

func (r *MongoGreetingRepository) findMany(ctx context.Context, filter bson.M) ([]domain.Greeting, error) {
	cur, err := r.col.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]domain.Greeting, 0)
	for cur.Next(ctx) {
		var doc greetingDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		g, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *MongoGreetingRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoGreetingRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id.String()}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *MongoGreetingRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

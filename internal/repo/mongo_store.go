package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps greetings in the greetings collection.
//
// Every repository call is a single-document operation or a plain query, so
// WithinTx does not open a session transaction (that needs a replica set).
type MongoStore struct {
	Client       *mongo.Client
	DB           *mongo.Database
	colGreetings *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, dbname string) (*MongoStore, error) {
	cli, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetMaxPoolSize(50),
	)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	db := cli.Database(dbname)
	return &MongoStore{
		Client:       cli,
		DB:           db,
		colGreetings: db.Collection("greetings"),
	}, nil
}

// EnsureIndexes creates the indexes backing the sender, recipient and date lookups.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.colGreetings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sender", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("sender_created_desc"),
		},
		{
			Keys:    bson.D{{Key: "recipient", Value: 1}},
			Options: options.Index().SetName("recipient"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("created_asc"),
		},
	})
	return err
}

func (s *MongoStore) Greetings() GreetingRepository {
	return &MongoGreetingRepository{col: s.colGreetings, now: time.Now}
}

func (s *MongoStore) WithinTx(ctx context.Context, _ bool, fn func(ctx context.Context, r GreetingRepository) error) error {
	return fn(ctx, s.Greetings())
}

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error { return s.Client.Disconnect(ctx) }

func IsDup(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return false
}

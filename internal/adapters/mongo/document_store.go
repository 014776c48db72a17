// Package mongo stores records in MongoDB collections. Identifiers are the
// driver-assigned ObjectIDs.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
)

// Client wraps a connected driver client and the database records live in.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect dials uri and verifies the connection with a ping.
func Connect(ctx context.Context, uri, database string) (*Client, error) {
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Client{client: client, database: client.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// DocumentStore is one MongoDB collection decoded into T.
type DocumentStore[T any] struct {
	coll *mongo.Collection
}

func NewDocumentStore[T any](c *Client, collection string) *DocumentStore[T] {
	return &DocumentStore[T]{coll: c.database.Collection(collection)}
}

func (s *DocumentStore[T]) Find(ctx context.Context) ([]T, error) {
	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", s.coll.Name(), err)
	}
	docs := make([]T, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.coll.Name(), err)
	}
	return docs, nil
}

func (s *DocumentStore[T]) FindOne(ctx context.Context, id domain.ID) (T, error) {
	var doc T
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return doc, domain.ErrNotFound
		}
		return doc, fmt.Errorf("find %s %s: %w", s.coll.Name(), id.Hex(), err)
	}
	return doc, nil
}

func (s *DocumentStore[T]) InsertOne(ctx context.Context, doc T) (domain.ID, error) {
	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return domain.NilID, fmt.Errorf("insert %s: %w", s.coll.Name(), err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return domain.NilID, fmt.Errorf("insert %s: unexpected id type %T", s.coll.Name(), res.InsertedID)
	}
	return id, nil
}

func (s *DocumentStore[T]) ReplaceOne(ctx context.Context, id domain.ID, doc T) (int64, error) {
	res, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc)
	if err != nil {
		return 0, fmt.Errorf("replace %s %s: %w", s.coll.Name(), id.Hex(), err)
	}
	return res.MatchedCount, nil
}

func (s *DocumentStore[T]) DeleteOne(ctx context.Context, id domain.ID) (int64, error) {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return 0, fmt.Errorf("delete %s %s: %w", s.coll.Name(), id.Hex(), err)
	}
	return res.DeletedCount, nil
}
